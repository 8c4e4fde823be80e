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


// Package ai provides abstractions for the AI services recollect depends on.
//
// This package defines interfaces for text embeddings and for extracting
// entities and facts from episode content. Ingestion and search depend on
// these abstractions rather than on a concrete model vendor.
//
// # Design Principles
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Extractor: Turns content into entities and facts, guided by entity schemas
//   - Provider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// interface types. Test doubles (mock.NewMockEmbedder, mock.NewMockExtractor)
// return concrete types so tests can inject behavior and read call counts.
//
//	mockEmbed := mock.NewMockEmbedder()
//	mockEmbed.WithEmbedTextFunc(...)
//	count := mockEmbed.CallCount()
//
// # Validation
//
// Structured content that does not match its declared entity types is
// reported as a *ValidationError, which lists each offending field.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	out, err := provider.Extractor().Extract(ctx, ai.ExtractionRequest{Content: "Alice prefers tea"})
package ai
