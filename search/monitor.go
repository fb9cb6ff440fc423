package search

import (
	"fmt"
	"io"

	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/filter"
	"github.com/poiesic/tenderqa/vector"
)

// RouteMonitor provides hooks to observe the routing process.
// Implement this interface to trace intermediate steps of a single query.
type RouteMonitor interface {
	Start(query string)
	AfterKeywordExtraction(hints []filter.Hint)
	AfterFilter(result filter.Result)
	AfterSemanticSearch(matches []vector.Match)
	Finish(result core.RetrievalResult)
}

// noopMonitor is a no-op implementation of RouteMonitor
type noopMonitor struct{}

var _ RouteMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                         {}
func (n *noopMonitor) AfterKeywordExtraction(_ []filter.Hint) {}
func (n *noopMonitor) AfterFilter(_ filter.Result)            {}
func (n *noopMonitor) AfterSemanticSearch(_ []vector.Match)   {}
func (n *noopMonitor) Finish(_ core.RetrievalResult)          {}

// TraceMonitor writes a human-readable trace of each stage to a writer.
// The CLI uses it for --explain.
type TraceMonitor struct {
	w io.Writer
}

var _ RouteMonitor = (*TraceMonitor)(nil)

// NewTraceMonitor creates a monitor that writes to w.
func NewTraceMonitor(w io.Writer) *TraceMonitor {
	return &TraceMonitor{w: w}
}

func (m *TraceMonitor) Start(query string) {
	fmt.Fprintf(m.w, "query: %q\n", query)
}

func (m *TraceMonitor) AfterKeywordExtraction(hints []filter.Hint) {
	for _, h := range hints {
		fmt.Fprintf(m.w, "  hint: %s=%q\n", h.Column, h.Value)
	}
}

func (m *TraceMonitor) AfterFilter(result filter.Result) {
	if !result.Recognized() {
		fmt.Fprintln(m.w, "  filter: no attribute recognized")
		return
	}
	for _, col := range result.Matched {
		fmt.Fprintf(m.w, "  filter: %s in %q\n", col, result.Values[col])
	}
	fmt.Fprintf(m.w, "  filter: %d row(s)\n", len(result.Rows))
}

func (m *TraceMonitor) AfterSemanticSearch(matches []vector.Match) {
	for _, match := range matches {
		fmt.Fprintf(m.w, "  nearest: #%d %s [%0.4f]\n", match.Position, match.Record.ID, match.Distance)
	}
}

func (m *TraceMonitor) Finish(result core.RetrievalResult) {
	fmt.Fprintf(m.w, "  mode: %s\n", result.Mode)
}
