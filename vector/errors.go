package vector

import "errors"

var (
	// ErrInvalidK is returned when a search asks for fewer than one result.
	ErrInvalidK = errors.New("k must be at least 1")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidBatchSize is returned when the batch size is less than one.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
)
