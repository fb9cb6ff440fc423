package storage

import (
	"context"

	"github.com/poiesic/tenderqa/core"
)

// EmbeddingRepository persists embedding vectors keyed by content ID.
// Keys are expected to be derived from the embedded text and the model
// that produced the vector, so a key never maps to two different vectors.
type EmbeddingRepository interface {
	// GetEmbeddings returns the stored vectors for the given IDs.
	// Missing IDs are absent from the result (no error).
	GetEmbeddings(ctx context.Context, ids ...core.ID) (map[core.ID][]float32, error)

	// PutEmbeddings stores vectors, replacing existing entries.
	PutEmbeddings(ctx context.Context, entries map[core.ID][]float32) error

	// DeleteEmbeddings removes vectors by ID. Missing IDs are ignored.
	DeleteEmbeddings(ctx context.Context, ids ...core.ID) error

	// CountEmbeddings returns the number of stored vectors.
	CountEmbeddings(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
