package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/vector"
)

// DefaultTTL is how long a generation is served before it is rebuilt.
const DefaultTTL = 60 * time.Second

// Generation is an immutable (snapshot, index) pair. Every record in
// Snapshot has exactly one vector in Index.
type Generation struct {
	Number      uint64
	Snapshot    *records.Snapshot
	Index       *vector.Index
	BuiltAt     time.Time
	Fingerprint core.ID
}

// Age returns how long ago the generation was built.
func (g *Generation) Age(now time.Time) time.Duration {
	return now.Sub(g.BuiltAt)
}

// Loader produces a fresh record snapshot, typically by fetching the dataset.
type Loader interface {
	Load(ctx context.Context) (*records.Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*records.Snapshot, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) (*records.Snapshot, error) {
	return f(ctx)
}

// IndexBuilder embeds a snapshot. *vector.Builder satisfies it.
type IndexBuilder interface {
	Build(ctx context.Context, snap *records.Snapshot) (*vector.Index, error)
}

// Cache serves the current generation and rebuilds it when it is stale.
//
// Readers load the published generation without locking. Rebuilds are
// serialized, so many concurrent stale reads cause a single rebuild. A failed
// rebuild leaves the previous generation published.
type Cache struct {
	loader  Loader
	builder IndexBuilder
	ttl     time.Duration
	logger  *slog.Logger

	current     atomic.Pointer[Generation]
	invalidated atomic.Bool

	mu        sync.Mutex // serializes rebuilds; guards the fields below
	number    uint64
	failedAt  time.Time
	lastError error
}

// Option configures a Cache.
type Option func(*Cache) error

// WithTTL sets how long a generation stays fresh. Zero or negative disables
// time-based expiry; only Invalidate and Refresh then trigger rebuilds.
// Default is 60s.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		c.ttl = ttl
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCache creates an empty cache. Nothing is loaded until the first
// GetOrRebuild or Refresh.
func NewCache(loader Loader, builder IndexBuilder, opts ...Option) (*Cache, error) {
	if loader == nil {
		return nil, ErrLoaderRequired
	}
	if builder == nil {
		return nil, ErrBuilderRequired
	}

	c := &Cache{
		loader:  loader,
		builder: builder,
		ttl:     DefaultTTL,
		logger:  slog.Default().With("component", "snapshot-cache"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Current returns the published generation, or nil if none has been built.
func (c *Cache) Current() *Generation {
	return c.current.Load()
}

// LastError returns the error of the most recent failed rebuild, or nil if
// the most recent rebuild succeeded.
func (c *Cache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Invalidate marks the published generation stale. The next GetOrRebuild
// rebuilds it. Calling Invalidate repeatedly has no further effect.
func (c *Cache) Invalidate() {
	c.invalidated.Store(true)
}

// GetOrRebuild returns a generation that is fresh at now, rebuilding first if
// needed.
//
// When a rebuild fails and an older generation exists, the older generation
// is returned without error and the failure is available from LastError.
// Further rebuild attempts are then held off for one TTL unless the cache is
// invalidated. When no generation has ever been built the error is returned.
func (c *Cache) GetOrRebuild(ctx context.Context, now time.Time) (*Generation, error) {
	if g := c.current.Load(); c.fresh(g, now) {
		return g, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have rebuilt while we waited.
	g := c.current.Load()
	if c.fresh(g, now) {
		return g, nil
	}
	if g != nil && !c.invalidated.Load() && c.ttl > 0 && !c.failedAt.IsZero() && now.Sub(c.failedAt) < c.ttl {
		return g, nil
	}

	next, err := c.rebuildLocked(ctx, now)
	if err != nil {
		if g != nil {
			c.logger.Warn("rebuild failed, serving previous generation",
				"generation", g.Number, "age", g.Age(now), "err", err)
			return g, nil
		}
		return nil, err
	}
	return next, nil
}

// Refresh rebuilds unconditionally and returns the new generation. On
// failure the previous generation stays published and the error is returned.
func (c *Cache) Refresh(ctx context.Context, now time.Time) (*Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx, now)
}

func (c *Cache) fresh(g *Generation, now time.Time) bool {
	if g == nil || c.invalidated.Load() {
		return false
	}
	return c.ttl <= 0 || g.Age(now) < c.ttl
}

func (c *Cache) rebuildLocked(ctx context.Context, now time.Time) (*Generation, error) {
	// Invalidations that arrive during the rebuild apply to the next one.
	invalidated := c.invalidated.Swap(false)

	snap, err := c.loader.Load(ctx)
	if err != nil {
		return nil, c.fail(ctx, now, invalidated, err)
	}
	ix, err := c.builder.Build(ctx, snap)
	if err != nil {
		return nil, c.fail(ctx, now, invalidated, err)
	}

	c.number++
	g := &Generation{
		Number:      c.number,
		Snapshot:    snap,
		Index:       ix,
		BuiltAt:     now,
		Fingerprint: snap.Fingerprint(),
	}
	c.current.Store(g)
	c.failedAt = time.Time{}
	c.lastError = nil

	c.logger.Info("generation published",
		"generation", g.Number, "records", snap.Len(), "dimension", ix.Dimension(), "fingerprint", g.Fingerprint)
	return g, nil
}

// fail records a rebuild failure. A rebuild abandoned because its caller's
// context ended says nothing about the data source, so it is not recorded and
// the next caller rebuilds.
func (c *Cache) fail(ctx context.Context, now time.Time, invalidated bool, err error) error {
	if ctx.Err() != nil {
		if invalidated {
			c.invalidated.Store(true)
		}
		c.logger.Debug("rebuild abandoned", "err", err)
		return err
	}
	c.failedAt = now
	c.lastError = err
	c.logger.Error("rebuild failed", "err", err)
	return err
}
