package cached

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/storage"
)

var (
	// ErrEmbedderRequired is returned when no underlying embedder is given.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrRepositoryRequired is returned when no repository is given.
	ErrRepositoryRequired = errors.New("embedding repository is required")
)

// Embedder memoizes vectors from an underlying ai.Embedder in a
// storage.EmbeddingRepository. Cache read or write failures are logged and
// never fail an embedding call.
type Embedder struct {
	next   ai.Embedder
	repo   storage.EmbeddingRepository
	model  string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New wraps next. model namespaces the cache so vectors from different
// models never collide.
func New(next ai.Embedder, repo storage.EmbeddingRepository, model string, opts ...Option) (*Embedder, error) {
	if next == nil {
		return nil, ErrEmbedderRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	e := &Embedder{
		next:   next,
		repo:   repo,
		model:  model,
		logger: slog.Default().With("component", "embedding-cache"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Key returns the cache key for text under the embedder's model.
func (e *Embedder) Key(text string) core.ID {
	return core.IDFromContent(e.model + "\x00" + text)
}

// EmbedText returns the cached vector for text or embeds and caches it.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := e.Key(text)
	cached, err := e.repo.GetEmbeddings(ctx, key)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "err", err)
	}
	if v := cached[key]; len(v) > 0 {
		e.hits.Add(1)
		return v, nil
	}
	e.misses.Add(1)

	v, err := e.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		if err := e.repo.PutEmbeddings(ctx, map[core.ID][]float32{key: v}); err != nil {
			e.logger.Warn("embedding cache write failed", "count", 1, "err", err)
		}
	}
	return v, nil
}

// EmbedTexts serves cached vectors and embeds the rest in one call to the
// underlying embedder. Output order matches texts.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]core.ID, len(texts))
	for i, text := range texts {
		keys[i] = e.Key(text)
	}

	cached, err := e.repo.GetEmbeddings(ctx, keys...)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "err", err)
		cached = nil
	}

	out := make([][]float32, len(texts))
	var missingIdx []int
	var missingTexts []string
	for i, k := range keys {
		if v, ok := cached[k]; ok && len(v) > 0 {
			out[i] = v
			continue
		}
		missingIdx = append(missingIdx, i)
		missingTexts = append(missingTexts, texts[i])
	}
	e.hits.Add(int64(len(texts) - len(missingIdx)))
	e.misses.Add(int64(len(missingIdx)))

	if len(missingIdx) == 0 {
		return out, nil
	}

	fresh, err := e.next.EmbedTexts(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missingTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missingTexts))
	}

	entries := make(map[core.ID][]float32, len(fresh))
	for j, i := range missingIdx {
		out[i] = fresh[j]
		if len(fresh[j]) > 0 {
			entries[keys[i]] = fresh[j]
		}
	}
	if err := e.repo.PutEmbeddings(ctx, entries); err != nil {
		e.logger.Warn("embedding cache write failed", "count", len(entries), "err", err)
	}
	return out, nil
}

// Stats returns cumulative cache hits and misses.
func (e *Embedder) Stats() (hits, misses int) {
	return int(e.hits.Load()), int(e.misses.Load())
}
