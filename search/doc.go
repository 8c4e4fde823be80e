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


// Package search finds entities and facts relevant to a query.
//
// The Searcher ranks candidates with several signals:
//   - Semantic similarity between the query and stored vectors
//   - Verbatim keyword matching with stop-word filtering
//   - Graph proximity to an optional center entity
//
// Searches are scoped to one or more namespaces.
package search
