package tenderqa

import (
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/search"
	"github.com/poiesic/tenderqa/snapshot"
)

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	topK          int
	ttl           time.Duration
	keywordAssist bool
	cacheDir      string
	cacheEnabled  bool
	cacheEntryTTL time.Duration
	poolSize      int
	batchSize     int
	progress      io.Writer
	loadOptions   []records.LoadOption
	clock         func() time.Time
	logger        *slog.Logger
}

func defaultEngineOptions() *engineOptions {
	return &engineOptions{
		aiConfig:     ai.DefaultConfig(),
		topK:         search.DefaultTopK,
		ttl:          snapshot.DefaultTTL,
		cacheEnabled: true,
		clock:        time.Now,
		logger:       slog.Default(),
	}
}

// WithAIConfig sets the endpoints and models used when the engine creates
// its own AI provider.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies an AI provider instead of creating one from the AI
// config. The engine does not close a supplied provider.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithTopK sets how many records semantic search retrieves. Default 3.
func WithTopK(k int) EngineOption {
	return func(o *engineOptions) {
		o.topK = k
	}
}

// WithTTL sets how long a built index is served before the dataset is
// fetched again. Zero disables time-based refresh. Default 60s.
func WithTTL(ttl time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.ttl = ttl
	}
}

// WithKeywordAssist lets the generative model suggest filter values. Its
// suggestions are only used when they exist in the data. Default off.
func WithKeywordAssist(enabled bool) EngineOption {
	return func(o *engineOptions) {
		o.keywordAssist = enabled
	}
}

// WithEmbeddingCacheDir keeps the embedding cache on disk under dir.
func WithEmbeddingCacheDir(dir string) EngineOption {
	return func(o *engineOptions) {
		o.cacheDir = dir
		o.cacheEnabled = true
	}
}

// WithInMemoryEmbeddingCache keeps the embedding cache in memory. This is the
// default.
func WithInMemoryEmbeddingCache() EngineOption {
	return func(o *engineOptions) {
		o.cacheDir = ""
		o.cacheEnabled = true
	}
}

// WithoutEmbeddingCache embeds every record on every rebuild.
func WithoutEmbeddingCache() EngineOption {
	return func(o *engineOptions) {
		o.cacheEnabled = false
	}
}

// WithEmbeddingCacheTTL expires cached vectors after ttl. Zero keeps them
// until the cache is deleted.
func WithEmbeddingCacheTTL(ttl time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.cacheEntryTTL = ttl
	}
}

// WithPoolSize sets how many embedding batches run concurrently during a
// rebuild. Default runtime.NumCPU() / 2.
func WithPoolSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.poolSize = size
	}
}

// WithBatchSize sets how many records are sent to the embedder per call.
// Default 32.
func WithBatchSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.batchSize = size
	}
}

// WithProgress reports index build progress to w.
func WithProgress(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithLoadOptions passes options to records.Load, such as the header mode.
func WithLoadOptions(opts ...records.LoadOption) EngineOption {
	return func(o *engineOptions) {
		o.loadOptions = append(o.loadOptions, opts...)
	}
}

// WithClock replaces time.Now for TTL decisions and turn timestamps.
func WithClock(clock func() time.Time) EngineOption {
	return func(o *engineOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
