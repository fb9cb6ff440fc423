package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/filter"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/vector"
)

// DefaultTopK is the number of records semantic search retrieves.
const DefaultTopK = 3

// Router decides, per query, between attribute filtering and semantic search.
// A Router holds no per-query state and is safe for concurrent use.
type Router struct {
	embedder  ai.Embedder
	extractor ai.KeywordExtractor
	topK      int
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router) error

// WithTopK sets how many records semantic search returns. Default 3.
func WithTopK(k int) Option {
	return func(r *Router) error {
		if k < 1 {
			return ErrInvalidTopK
		}
		r.topK = k
		return nil
	}
}

// WithKeywordExtractor enables keyword assist: suggestions from extractor
// are validated against the snapshot's distinct values and used as extra
// filter values. Default is disabled.
func WithKeywordExtractor(extractor ai.KeywordExtractor) Option {
	return func(r *Router) error {
		r.extractor = extractor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRouter creates a router that embeds queries with embedder.
func NewRouter(embedder ai.Embedder, opts ...Option) (*Router, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Router{
		embedder: embedder,
		topK:     DefaultTopK,
		logger:   slog.Default().With("component", "router"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// TopK returns the configured semantic top-k.
func (r *Router) TopK() int {
	return r.topK
}

// Route retrieves candidates for query from one snapshot and its index.
func (r *Router) Route(ctx context.Context, snap *records.Snapshot, ix *vector.Index, query string) (core.RetrievalResult, error) {
	return r.RouteWithMonitor(ctx, snap, ix, query, nil)
}

// RouteWithMonitor is Route with a monitor receiving callbacks at each stage.
//
// The only error returned is the context's, when ctx is done. Failing to
// embed the query is reported as core.ModeUnavailable.
func (r *Router) RouteWithMonitor(ctx context.Context, snap *records.Snapshot, ix *vector.Index, query string, monitor RouteMonitor) (core.RetrievalResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	if err := ctx.Err(); err != nil {
		return core.RetrievalResult{}, err
	}

	if snap.IsEmpty() {
		result := core.RetrievalResult{Mode: core.ModeNone}
		monitor.Finish(result)
		return result, nil
	}

	normalized := core.Normalize(query)

	hints := r.keywordHints(ctx, snap, normalized)
	monitor.AfterKeywordExtraction(hints)

	// 1. Attribute filters take priority whenever one is recognized
	matched := filter.Match(snap, normalized, hints...)
	monitor.AfterFilter(matched)
	if matched.Recognized() {
		rows := make([]core.Record, len(matched.Rows))
		for i, pos := range matched.Rows {
			rows[i] = snap.Record(pos)
		}
		result := core.RetrievalResult{
			Mode:    core.ModeStructured,
			Rows:    rows,
			Matched: matched.Matched,
		}
		r.logger.Debug("structured match", "columns", len(matched.Matched), "rows", len(rows))
		monitor.Finish(result)
		return result, nil
	}

	// 2. Fall through to nearest-neighbor search
	if ix == nil {
		r.logger.Warn("no vector index for snapshot", "records", snap.Len())
		result := core.RetrievalResult{Mode: core.ModeUnavailable}
		monitor.Finish(result)
		return result, nil
	}

	matches, err := ix.SearchText(ctx, r.embedder, normalized, r.topK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return core.RetrievalResult{}, ctxErr
		}
		r.logger.Error("error embedding query", "query", query, "err", err)
		result := core.RetrievalResult{Mode: core.ModeUnavailable}
		monitor.Finish(result)
		return result, nil
	}
	monitor.AfterSemanticSearch(matches)

	snippets := make([]core.Snippet, len(matches))
	for i, m := range matches {
		snippets[i] = core.Snippet{
			Position: m.Position,
			Record:   m.Record,
			Text:     snap.Flattened(m.Position),
			Distance: m.Distance,
		}
	}
	result := core.RetrievalResult{Mode: core.ModeSemantic, Snippets: snippets}
	r.logger.Debug("semantic match", "snippets", len(snippets))
	monitor.Finish(result)
	return result, nil
}

// keywordHints asks the extractor, if any, for filter suggestions. Failures
// are logged and ignored; the matcher discards values it does not know.
func (r *Router) keywordHints(ctx context.Context, snap *records.Snapshot, query string) []filter.Hint {
	if r.extractor == nil || query == "" {
		return nil
	}

	vocabulary := make(map[core.Column][]string, len(core.FilterColumns))
	for _, col := range core.FilterColumns {
		if values := snap.Distinct(col); len(values) > 0 {
			vocabulary[col] = values
		}
	}

	keywords, err := r.extractor.ExtractKeywords(ctx, query, vocabulary)
	if err != nil {
		r.logger.Warn("keyword extraction failed", "err", err)
		return nil
	}

	hints := make([]filter.Hint, 0, len(keywords))
	for _, kw := range keywords {
		hints = append(hints, filter.Hint{Column: kw.Column, Value: kw.Value})
	}
	return hints
}
