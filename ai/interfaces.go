package ai

import (
	"context"

	"github.com/poiesic/tenderqa/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces free text from a prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the model's completion of prompt, bounded by the
	// implementation's token budget.
	Generate(ctx context.Context, prompt string) (string, error)
}

// KeywordExtractor proposes attribute filters for a query.
// Implementations must be thread-safe for concurrent use.
type KeywordExtractor interface {
	// ExtractKeywords suggests (column, value) pairs mentioned or implied by
	// query. vocabulary holds the values each filterable column currently
	// contains; suggestions outside it are discarded by callers.
	// Returns an empty slice if nothing applies.
	ExtractKeywords(ctx context.Context, query string, vocabulary map[core.Column][]string) ([]Keyword, error)
}

// Keyword is an attribute value suggested by a KeywordExtractor.
type Keyword struct {
	Column core.Column
	Value  string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// KeywordExtractor returns the keyword extraction service.
	KeywordExtractor() KeywordExtractor

	// Close releases resources held by the provider and its services.
	Close() error
}
