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

package mock

import "github.com/poiesic/tenderqa/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, generator and keyword extractor instances.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockGenerator
	keywords  *MockKeywordExtractor
	closed    bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockGenerator() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		generator: NewMockGenerator(),
		keywords:  NewMockKeywordExtractor(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// Nil services are replaced with defaults.
func NewMockProviderWithServices(embedder *MockEmbedder, generator *MockGenerator, keywords *MockKeywordExtractor) *MockProvider {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	if generator == nil {
		generator = NewMockGenerator()
	}
	if keywords == nil {
		keywords = NewMockKeywordExtractor()
	}
	return &MockProvider{
		embedder:  embedder,
		generator: generator,
		keywords:  keywords,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the mock generator.
func (p *MockProvider) Generator() ai.Generator {
	return p.generator
}

// KeywordExtractor returns the mock keyword extractor.
func (p *MockProvider) KeywordExtractor() ai.KeywordExtractor {
	return p.keywords
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockGenerator returns the underlying mock generator for test assertions.
func (p *MockProvider) GetMockGenerator() *MockGenerator {
	return p.generator
}

// GetMockKeywordExtractor returns the underlying mock keyword extractor.
func (p *MockProvider) GetMockKeywordExtractor() *MockKeywordExtractor {
	return p.keywords
}
