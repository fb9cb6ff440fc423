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

package tenderqa

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/ai/cached"
	"github.com/poiesic/tenderqa/ai/openai"
	"github.com/poiesic/tenderqa/answer"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/search"
	"github.com/poiesic/tenderqa/session"
	"github.com/poiesic/tenderqa/snapshot"
	"github.com/poiesic/tenderqa/source"
	"github.com/poiesic/tenderqa/storage"
	"github.com/poiesic/tenderqa/storage/badger"
	"github.com/poiesic/tenderqa/vector"
)

// Engine answers questions about a tender dataset. It owns the snapshot
// cache, the embedding cache and the AI provider, and is safe for
// concurrent use.
type Engine struct {
	source       source.Source
	provider     ai.AIProvider
	ownsProvider bool
	backend      *badger.Backend
	embedCache   storage.EmbeddingRepository
	cached       *cached.Embedder
	builder      *vector.Builder
	cache        *snapshot.Cache
	router       *search.Router
	synthesizer  *answer.Synthesizer
	sessions     *session.Store
	loadOptions  []records.LoadOption
	clock        func() time.Time
	logger       *slog.Logger
	closed       atomic.Bool
}

// Answer is a response together with how it was produced.
type Answer struct {
	Text       string
	Mode       core.Mode
	Generation uint64
	Result     core.RetrievalResult
}

// Status describes the published generation.
type Status struct {
	Ready       bool
	Generation  uint64
	Records     int
	Dimension   int
	BuiltAt     time.Time
	Age         time.Duration
	Fingerprint string
	LastError   string
	CacheHits   int
	CacheMisses int
	Sessions    int
}

// NewEngine creates an engine reading from src. Nothing is fetched until the
// first question or Refresh.
func NewEngine(src source.Source, opts ...EngineOption) (*Engine, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}

	// Apply options
	options := defaultEngineOptions()
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger.With("component", "engine")

	e := &Engine{
		source:      src,
		provider:    options.provider,
		sessions:    session.NewStore(),
		loadOptions: options.loadOptions,
		clock:       options.clock,
		logger:      logger,
	}

	// Create AI provider with configured settings
	if e.provider == nil {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		e.provider = provider
		e.ownsProvider = true
	}

	if err := e.init(options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) init(options *engineOptions) error {
	indexEmbedder := e.provider.Embedder()
	if options.cacheEnabled {
		backend, err := badger.OpenBackend(options.cacheDir, options.cacheDir == "")
		if err != nil {
			return fmt.Errorf("opening embedding cache: %w", err)
		}
		e.backend = backend

		repo, err := badger.NewEmbeddingRepository(backend, badger.WithEntryTTL(options.cacheEntryTTL))
		if err != nil {
			return err
		}
		e.embedCache = repo

		e.cached, err = cached.New(indexEmbedder, repo, options.aiConfig.EmbeddingModel,
			cached.WithLogger(options.logger.With("component", "embedding-cache")))
		if err != nil {
			return err
		}
		indexEmbedder = e.cached
	}

	builderOpts := []vector.Option{vector.WithLogger(options.logger.With("component", "vector-builder"))}
	if options.poolSize > 0 {
		builderOpts = append(builderOpts, vector.WithPoolSize(options.poolSize))
	}
	if options.batchSize > 0 {
		builderOpts = append(builderOpts, vector.WithBatchSize(options.batchSize))
	}
	if options.progress != nil {
		builderOpts = append(builderOpts, vector.WithProgress(options.progress))
	}
	builder, err := vector.NewBuilder(indexEmbedder, builderOpts...)
	if err != nil {
		return err
	}
	e.builder = builder

	e.cache, err = snapshot.NewCache(snapshot.LoaderFunc(e.load), builder,
		snapshot.WithTTL(options.ttl),
		snapshot.WithLogger(options.logger.With("component", "snapshot-cache")))
	if err != nil {
		return err
	}

	routerOpts := []search.Option{
		search.WithTopK(options.topK),
		search.WithLogger(options.logger.With("component", "router")),
	}
	if options.keywordAssist {
		routerOpts = append(routerOpts, search.WithKeywordExtractor(e.provider.KeywordExtractor()))
	}
	e.router, err = search.NewRouter(e.provider.Embedder(), routerOpts...)
	if err != nil {
		return err
	}

	e.synthesizer, err = answer.NewSynthesizer(e.provider.Generator(),
		answer.WithLogger(options.logger.With("component", "synthesizer")))
	return err
}

// load fetches the dataset and builds a record snapshot.
func (e *Engine) load(ctx context.Context) (*records.Snapshot, error) {
	rows, err := e.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}
	snap, err := records.Load(rows, e.loadOptions...)
	if err != nil {
		return nil, err
	}
	if snap.IsEmpty() {
		e.logger.Warn("dataset has no records", "err", core.ErrEmptyDataset)
	}
	return snap, nil
}

// Ask answers query. The only errors are a dataset that has never loaded
// successfully and a cancelled context; collaborator failures degrade to a
// fixed or partial response.
func (e *Engine) Ask(ctx context.Context, query string) (string, error) {
	a, err := e.Query(ctx, query, nil)
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Query answers query and reports how the answer was produced. monitor may
// be nil.
func (e *Engine) Query(ctx context.Context, query string, monitor search.RouteMonitor) (*Answer, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	gen, err := e.cache.GetOrRebuild(ctx, e.clock())
	if err != nil {
		return nil, err
	}

	result, err := e.router.RouteWithMonitor(ctx, gen.Snapshot, gen.Index, query, monitor)
	if err != nil {
		return nil, err
	}

	text := e.synthesizer.Render(ctx, result, query)
	e.logger.Debug("answered", "generation", gen.Number, "mode", result.Mode)
	return &Answer{
		Text:       text,
		Mode:       result.Mode,
		Generation: gen.Number,
		Result:     result,
	}, nil
}

// AskInSession answers query and records the exchange in sess. monitor may
// be nil. Nothing is recorded when the query cannot be answered.
func (e *Engine) AskInSession(ctx context.Context, sess *session.Session, query string, monitor search.RouteMonitor) (*Answer, error) {
	if err := core.ValidateTurn(&core.Turn{Role: core.RoleUser, Text: query, At: e.clock()}); err != nil {
		return nil, err
	}
	a, err := e.Query(ctx, query, monitor)
	if err != nil {
		return nil, err
	}
	if err := sess.AppendExchange(query, a.Text, e.clock()); err != nil {
		return nil, err
	}
	return a, nil
}

// Refresh discards the published generation and rebuilds it from the data
// source. If the rebuild fails the previous generation keeps serving and the
// error is returned.
func (e *Engine) Refresh(ctx context.Context) (Status, error) {
	if e.closed.Load() {
		return Status{}, ErrClosed
	}
	e.cache.Invalidate()
	if _, err := e.cache.Refresh(ctx, e.clock()); err != nil {
		return e.Status(), err
	}
	return e.Status(), nil
}

// Status reports the published generation.
func (e *Engine) Status() Status {
	st := Status{Sessions: e.sessions.Len()}
	if err := e.cache.LastError(); err != nil {
		st.LastError = err.Error()
	}
	if e.cached != nil {
		st.CacheHits, st.CacheMisses = e.cached.Stats()
	}

	gen := e.cache.Current()
	if gen == nil {
		return st
	}
	st.Ready = true
	st.Generation = gen.Number
	st.Records = gen.Snapshot.Len()
	st.Dimension = gen.Index.Dimension()
	st.BuiltAt = gen.BuiltAt
	st.Age = gen.Age(e.clock())
	st.Fingerprint = gen.Fingerprint.String()
	return st
}

// Sessions returns the engine's session store.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// NewSession starts a conversation.
func (e *Engine) NewSession() *session.Session {
	return e.sessions.Create(e.clock())
}

// Close releases the worker pool, the embedding cache and, if the engine
// created it, the AI provider. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	if e.builder != nil {
		e.builder.Release()
	}

	// Close AI provider first
	if e.ownsProvider && e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}

	if e.embedCache != nil {
		if err := e.embedCache.Close(); err != nil {
			e.logger.Error("error closing embedding repository", "err", err)
		}
	}

	// Close backend
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing embedding cache", "err", err)
			return err
		}
	}
	return nil
}
