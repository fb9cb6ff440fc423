package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
)

// MockKeywordExtractor is a test double for ai.KeywordExtractor.
type MockKeywordExtractor struct {
	// ExtractKeywordsFunc is called by ExtractKeywords if set.
	// If nil, every vocabulary value sharing a word with the query is returned.
	ExtractKeywordsFunc func(ctx context.Context, query string, vocabulary map[core.Column][]string) ([]ai.Keyword, error)

	callCount atomic.Int64
}

// NewMockKeywordExtractor creates a mock keyword extractor with default behavior.
func NewMockKeywordExtractor() *MockKeywordExtractor {
	return &MockKeywordExtractor{}
}

// ExtractKeywords returns configured or word-overlap keywords.
func (m *MockKeywordExtractor) ExtractKeywords(ctx context.Context, query string, vocabulary map[core.Column][]string) ([]ai.Keyword, error) {
	m.callCount.Add(1)

	if m.ExtractKeywordsFunc != nil {
		return m.ExtractKeywordsFunc(ctx, query, vocabulary)
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		words[strings.Trim(w, ".,!?;:\"'()")] = true
	}

	keywords := []ai.Keyword{}
	for _, col := range core.FilterColumns {
		for _, v := range vocabulary[col] {
			for _, w := range strings.Fields(v) {
				if words[w] {
					keywords = append(keywords, ai.Keyword{Column: col, Value: v})
					break
				}
			}
		}
	}
	return keywords, nil
}

// CallCount returns the number of times ExtractKeywords was called.
func (m *MockKeywordExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockKeywordExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractKeywordsFunc = nil
}
