package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/tenderqa/ai/mock"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLoader returns a snapshot with one record per call number, or err.
type stubLoader struct {
	calls atomic.Int64
	err   atomic.Pointer[error]
}

func (l *stubLoader) Load(ctx context.Context) (*records.Snapshot, error) {
	n := l.calls.Add(1)
	if errp := l.err.Load(); errp != nil {
		return nil, *errp
	}
	recs := make([]core.Record, n)
	for i := range recs {
		recs[i] = core.Record{ID: fmt.Sprintf("t%d", i), Name: "tender", Locality: "guntur"}
	}
	return records.FromRecords(recs)
}

func (l *stubLoader) fail(err error) {
	l.err.Store(&err)
}

func (l *stubLoader) succeed() {
	l.err.Store(nil)
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *stubLoader, *mock.MockEmbedder) {
	t.Helper()
	loader := &stubLoader{}
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	builder, err := vector.NewBuilder(embedder, vector.WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(builder.Release)

	cache, err := NewCache(loader, builder, opts...)
	require.NoError(t, err)
	return cache, loader, embedder
}

var t0 = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)

func TestNewCache(t *testing.T) {
	builder, err := vector.NewBuilder(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer builder.Release()
	loader := LoaderFunc(func(ctx context.Context) (*records.Snapshot, error) { return records.Empty(), nil })

	t.Run("nil loader", func(t *testing.T) {
		_, err := NewCache(nil, builder)
		assert.Equal(t, ErrLoaderRequired, err)
	})

	t.Run("nil builder", func(t *testing.T) {
		_, err := NewCache(loader, nil)
		assert.Equal(t, ErrBuilderRequired, err)
	})

	t.Run("starts empty", func(t *testing.T) {
		cache, err := NewCache(loader, builder, WithLogger(nil))
		require.NoError(t, err)
		assert.Nil(t, cache.Current())
		assert.NoError(t, cache.LastError())
	})
}

func TestGetOrRebuild_TTL(t *testing.T) {
	cache, loader, _ := newTestCache(t, WithTTL(time.Minute))
	ctx := context.Background()

	g1, err := cache.GetOrRebuild(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g1.Number)
	assert.Equal(t, t0, g1.BuiltAt)

	g, err := cache.GetOrRebuild(ctx, t0.Add(59*time.Second))
	require.NoError(t, err)
	assert.Same(t, g1, g, "fresh generation is reused")
	assert.Equal(t, int64(1), loader.calls.Load())

	g2, err := cache.GetOrRebuild(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g2.Number)
	assert.Equal(t, int64(2), loader.calls.Load())
	assert.Same(t, g2, cache.Current())
}

func TestGetOrRebuild_NoExpiry(t *testing.T) {
	cache, loader, _ := newTestCache(t, WithTTL(0))
	ctx := context.Background()

	g1, err := cache.GetOrRebuild(ctx, t0)
	require.NoError(t, err)
	g, err := cache.GetOrRebuild(ctx, t0.Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Same(t, g1, g)
	assert.Equal(t, int64(1), loader.calls.Load())
}

func TestGenerationConsistency(t *testing.T) {
	cache, _, _ := newTestCache(t, WithTTL(time.Second))
	ctx := context.Background()

	for i := range 4 {
		g, err := cache.GetOrRebuild(ctx, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, g.Snapshot.Len(), g.Index.Len())
		assert.Same(t, g.Snapshot, g.Index.Snapshot())
		assert.Equal(t, 8, g.Index.Dimension())
		assert.Equal(t, g.Snapshot.Fingerprint(), g.Fingerprint)
	}
}

func TestInvalidate(t *testing.T) {
	cache, loader, _ := newTestCache(t, WithTTL(time.Hour))
	ctx := context.Background()

	g1, err := cache.GetOrRebuild(ctx, t0)
	require.NoError(t, err)

	cache.Invalidate()
	cache.Invalidate()

	g2, err := cache.GetOrRebuild(ctx, t0.Add(time.Second))
	require.NoError(t, err)
	assert.NotSame(t, g1, g2)
	assert.Equal(t, int64(2), loader.calls.Load(), "repeated invalidation rebuilds once")

	g3, err := cache.GetOrRebuild(ctx, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Same(t, g2, g3)
}

func TestGetOrRebuild_FirstLoadFails(t *testing.T) {
	cache, loader, _ := newTestCache(t)
	loader.fail(fmt.Errorf("%w: row 3 has 7 columns", core.ErrSchema))

	g, err := cache.GetOrRebuild(context.Background(), t0)
	assert.ErrorIs(t, err, core.ErrSchema)
	assert.Nil(t, g)
	assert.Nil(t, cache.Current())
	assert.ErrorIs(t, cache.LastError(), core.ErrSchema)
}

func TestGetOrRebuild_KeepsPreviousGenerationOnFailure(t *testing.T) {
	cache, loader, embedder := newTestCache(t, WithTTL(time.Minute))
	ctx := context.Background()

	g1, err := cache.GetOrRebuild(ctx, t0)
	require.NoError(t, err)

	t.Run("embedding failure", func(t *testing.T) {
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding service down")
		}
		defer func() { embedder.EmbedTextsFunc = nil }()

		g, err := cache.GetOrRebuild(ctx, t0.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Same(t, g1, g)
		assert.ErrorIs(t, cache.LastError(), core.ErrEmbedding)
	})

	t.Run("failed rebuild is not retried within a ttl", func(t *testing.T) {
		calls := loader.calls.Load()
		g, err := cache.GetOrRebuild(ctx, t0.Add(2*time.Minute+30*time.Second))
		require.NoError(t, err)
		assert.Same(t, g1, g)
		assert.Equal(t, calls, loader.calls.Load())
	})

	t.Run("retried after a ttl", func(t *testing.T) {
		g, err := cache.GetOrRebuild(ctx, t0.Add(3*time.Minute))
		require.NoError(t, err)
		assert.NotSame(t, g1, g)
		assert.Equal(t, uint64(2), g.Number)
		assert.NoError(t, cache.LastError())
	})
}

func TestGetOrRebuild_CancelledCallerDoesNotHoldOff(t *testing.T) {
	cache, loader, _ := newTestCache(t, WithTTL(time.Minute))

	g1, err := cache.GetOrRebuild(context.Background(), t0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, err := cache.GetOrRebuild(ctx, t0.Add(61*time.Second))
	require.NoError(t, err)
	assert.Same(t, g1, g)
	assert.NoError(t, cache.LastError())

	calls := loader.calls.Load()
	g, err = cache.GetOrRebuild(context.Background(), t0.Add(62*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g.Number)
	assert.Equal(t, calls+1, loader.calls.Load())
	assert.NoError(t, cache.LastError())
}

func TestGetOrRebuild_CancelledKeepsInvalidation(t *testing.T) {
	cache, _, _ := newTestCache(t, WithTTL(time.Minute))

	g1, err := cache.GetOrRebuild(context.Background(), t0)
	require.NoError(t, err)

	cache.Invalidate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cache.GetOrRebuild(ctx, t0.Add(time.Second))
	require.NoError(t, err)

	g, err := cache.GetOrRebuild(context.Background(), t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.NotSame(t, g1, g)
}

func TestRefresh(t *testing.T) {
	cache, loader, _ := newTestCache(t, WithTTL(time.Hour))
	ctx := context.Background()

	g1, err := cache.Refresh(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g1.Number)

	g2, err := cache.Refresh(ctx, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g2.Number)

	loader.fail(core.ErrSchema)
	_, err = cache.Refresh(ctx, t0.Add(2*time.Second))
	assert.ErrorIs(t, err, core.ErrSchema)
	assert.Same(t, g2, cache.Current(), "failed refresh keeps the published generation")

	loader.succeed()
	g3, err := cache.Refresh(ctx, t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), g3.Number)
}

func TestGetOrRebuild_ConcurrentStaleReadsRebuildOnce(t *testing.T) {
	cache, loader, _ := newTestCache(t)

	var wg sync.WaitGroup
	gens := make([]*Generation, 16)
	for i := range gens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := cache.GetOrRebuild(context.Background(), t0)
			assert.NoError(t, err)
			gens[i] = g
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), loader.calls.Load())
	for _, g := range gens {
		assert.Same(t, gens[0], g)
	}
}

func TestReadersSeeWholeGenerations(t *testing.T) {
	cache, _, _ := newTestCache(t, WithTTL(0))
	ctx := context.Background()
	_, err := cache.Refresh(ctx, t0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := cache.Current()
				assert.Equal(t, g.Snapshot.Len(), g.Index.Len())
			}
		}()
	}

	for i := 1; i <= 5; i++ {
		_, err := cache.Refresh(ctx, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}
