package vector

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
)

// Match is one search hit. Lower Distance is closer.
type Match struct {
	Position int
	Record   core.Record
	Distance float32
}

// Index is an immutable set of record vectors built from one snapshot.
// It is safe for concurrent searches.
type Index struct {
	snap       *records.Snapshot
	vectors    [][]float32
	dim        int
	normalized bool
}

// Snapshot returns the snapshot the index was built from.
func (ix *Index) Snapshot() *records.Snapshot {
	return ix.snap
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.vectors)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (ix *Index) Dimension() int {
	return ix.dim
}

// Search returns the k records closest to query by squared euclidean
// distance, nearest first. Ties keep snapshot order. When k exceeds the
// number of records every record is returned.
func (ix *Index) Search(query []float32, k int) ([]Match, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if ix.Len() == 0 {
		return []Match{}, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", core.ErrEmbedding, len(query), ix.dim)
	}
	if !Finite(query) {
		return nil, fmt.Errorf("%w: query has a non-finite component", core.ErrEmbedding)
	}
	if ix.normalized {
		query = Normalize(query)
	}

	matches := make([]Match, len(ix.vectors))
	for i, v := range ix.vectors {
		matches[i] = Match{Position: i, Distance: SquaredEuclidean(query, v)}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	matches = matches[:min(k, len(matches))]
	for i := range matches {
		matches[i].Record = ix.snap.Record(matches[i].Position)
	}
	return matches, nil
}

// SearchText embeds text and searches for its k nearest records.
// Embedding failures are reported as core.ErrEmbedding.
func (ix *Index) SearchText(ctx context.Context, embedder ai.Embedder, text string, k int) ([]Match, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if ix.Len() == 0 {
		return []Match{}, nil
	}
	q, err := embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	return ix.Search(q, k)
}
