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

// Package storage provides the storage abstraction for cached embeddings.
//
// Building a vector index re-embeds every record of a snapshot. Most refreshes
// change few or no records, so vectors are memoized by a content ID derived
// from the embedding model and the flattened record text. The repository
// interface decouples that cache from its backend.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the interface:
//
//	repo, err := badger.NewEmbeddingRepository(backend) // storage.EmbeddingRepository
//
// # Serialization
//
// Vectors are encoded with mus-go primitives: a varint length followed by
// raw 4-byte floats.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
