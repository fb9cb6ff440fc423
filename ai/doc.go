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

// Package ai provides abstractions for the AI services the engine relies on.
//
// The engine depends on three capabilities, each behind a small interface:
//
//   - Embedder: turns flattened records and queries into vectors
//   - Generator: writes a natural-language answer from retrieved context
//   - KeywordExtractor: optionally proposes attribute filters for a query
//
// AIProvider bundles the three so they share configuration and lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo-backed clients for OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles
//   - ai/cached: an Embedder decorator that memoizes vectors in storage
//
// # Constructor Return Type Pattern
//
// Public production constructors return interfaces:
//
//	provider, err := openai.NewProvider(config) // returns ai.AIProvider
//
// Mock constructors return concrete types so tests can inject behavior and
// inspect call counts:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("offline")
//	}
//	count := embedder.CallCount()
package ai
