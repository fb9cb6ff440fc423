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

package vector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
)

const defaultBatchSize = 32

// Builder embeds snapshots into indexes using a worker pool.
// A Builder may be reused for many builds and must be released when done.
type Builder struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	normalize bool
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPoolSize sets the number of concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

// WithBatchSize sets how many texts go to the embedder per call. Default 32.
func WithBatchSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		b.batchSize = size
		return nil
	}
}

// WithNormalize controls whether vectors are scaled to unit length before
// indexing. Default true.
func WithNormalize(normalize bool) Option {
	return func(b *Builder) error {
		b.normalize = normalize
		return nil
	}
}

// WithProgress reports build progress to w.
func WithProgress(w io.Writer) Option {
	return func(b *Builder) error {
		b.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a Builder backed by embedder.
func NewBuilder(embedder ai.Embedder, opts ...Option) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		embedder:  embedder,
		pool:      pool,
		batchSize: defaultBatchSize,
		normalize: true,
		logger:    slog.Default().With("component", "vector-builder"),
	}
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	return b, nil
}

// Release releases the worker pool. The builder must not be used afterwards.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

// Build embeds every record's flattened text and returns the resulting index.
//
// Batches are embedded concurrently but vectors are stored in snapshot order.
// Any embedder error, a vector count that does not match the batch, an empty
// vector, a NaN or infinite component or a dimension that differs from the
// first vector fails the whole build with core.ErrEmbedding. An empty snapshot yields an empty index
// without calling the embedder.
func (b *Builder) Build(ctx context.Context, snap *records.Snapshot) (*Index, error) {
	ix := &Index{snap: snap, normalized: b.normalize}
	n := snap.Len()
	if n == 0 {
		return ix, nil
	}

	texts := snap.FlattenedAll()
	vectors := make([][]float32, n)

	var tracker *ProgressTracker
	if b.progress != nil {
		tracker = NewProgressTracker(b.progress, n, b.batchSize)
		tracker.Start()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		cancel(err)
	}

	for start := 0; start < n; start += b.batchSize {
		end := min(start+b.batchSize, n)
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			batch, err := b.embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("records %d-%d: %w", start, end-1, err))
				return
			}
			if len(batch) != end-start {
				fail(fmt.Errorf("records %d-%d: got %d vectors for %d texts", start, end-1, len(batch), end-start))
				return
			}
			copy(vectors[start:end], batch)
			if tracker != nil {
				tracker.Add(end - start)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		b.logger.Error("index build failed", "records", n, "err", errs[0])
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, errors.Join(errs...))
	}
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: record %d has an empty vector", core.ErrEmbedding, i)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: record %d has dimension %d, want %d", core.ErrEmbedding, i, len(v), dim)
		}
		if !Finite(v) {
			return nil, fmt.Errorf("%w: record %d has a non-finite component", core.ErrEmbedding, i)
		}
		if b.normalize {
			vectors[i] = Normalize(v)
		}
	}

	if tracker != nil {
		tracker.Finish()
	}
	ix.vectors = vectors
	ix.dim = dim
	b.logger.Debug("index built", "records", n, "dimension", dim)
	return ix, nil
}

// Build is a convenience wrapper that creates a Builder, builds one index and
// releases the builder.
func Build(ctx context.Context, snap *records.Snapshot, embedder ai.Embedder, opts ...Option) (*Index, error) {
	b, err := NewBuilder(embedder, opts...)
	if err != nil {
		return nil, err
	}
	defer b.Release()
	return b.Build(ctx, snap)
}
