// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for recollect.
//
// This package defines the Store interface that decouples the knowledge
// graph's persistence from ingestion and search. Backends (BadgerDB,
// in-memory BadgerDB for tests) are used interchangeably.
//
// # Data Model
//
// A Store holds three record kinds, each tagged with a namespace:
//
//   - Episode: one unit of ingested content
//   - Entity: a named node extracted from episodes
//   - Fact: a described, directed relationship between two entities
//
// Entities and facts carry the IDs of the episodes that mention them.
// Deleting an episode removes facts no other episode supports.
//
// # Serialization
//
// Records are encoded with mus-go primitives. Each record begins with a
// layout version so older databases can be detected.
//
// # Usage
//
//	store, err := badger.NewStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All Store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All Store methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
