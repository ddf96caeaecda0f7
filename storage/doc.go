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


// Package storage provides the graph storage abstraction for unitgraph.
//
// This package defines the GraphWriter and GraphReader contracts the pipeline
// commits episodes through, independent of the backend that holds the graph.
// Three backends ship with the module:
//
//   - storage/badger: embedded store, the default and the one tests use
//   - storage/neo4j: Neo4j via Cypher
//   - storage/surreal: SurrealDB with RELATE edges
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.GraphStore interface to
// enforce abstraction:
//
//	store, err := badger.NewGraphStore(path) // returns storage.GraphStore
//
// # Visibility
//
// Every record carries its episode id. The episode root record has a status;
// it is written pending first and flipped to committed as the last step of a
// successful run. Readers only see committed episodes, so a run that fails
// half way through is never observable. CountEpisodeNodes is the one method
// that looks at raw records, which is how rollback is verified.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
