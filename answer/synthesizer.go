package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Synthesizer turns retrieval results into response text.
type Synthesizer struct {
	generator ai.Generator
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSynthesizer creates a synthesizer. generator may be nil, in which case
// semantic results are always rendered as formatted snippets.
func NewSynthesizer(generator ai.Generator, opts ...Option) (*Synthesizer, error) {
	s := &Synthesizer{
		generator: generator,
		logger:    slog.Default().With("component", "synthesizer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Render produces the response for result. query is the question as the user
// typed it. Render never fails: a generator error degrades to the formatted
// snippets.
func (s *Synthesizer) Render(ctx context.Context, result core.RetrievalResult, query string) string {
	switch result.Mode {
	case core.ModeStructured:
		if len(result.Rows) == 0 {
			return MsgNoFilterMatches
		}
		return FormatRecords(result.Rows)
	case core.ModeSemantic:
		if len(result.Snippets) == 0 {
			return MsgNoSemanticMatches
		}
		return s.generate(ctx, result.Snippets, query)
	case core.ModeUnavailable:
		return MsgSearchUnavailable
	default:
		return MsgNoData
	}
}

func (s *Synthesizer) generate(ctx context.Context, snippets []core.Snippet, query string) string {
	if s.generator == nil {
		return FormatSnippets(snippets)
	}

	out, err := s.generator.Generate(ctx, Prompt(snippets, query))
	if err != nil {
		s.logger.Warn("generation failed, returning snippets",
			"snippets", len(snippets), "err", fmt.Errorf("%w: %w", core.ErrGeneration, err))
		return FormatSnippets(snippets)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		s.logger.Warn("generator returned no text, returning snippets", "snippets", len(snippets))
		return FormatSnippets(snippets)
	}
	return out
}

// Prompt builds the generation prompt: the retrieved snippets as numbered
// context lines followed by the question.
func Prompt(snippets []core.Snippet, query string) string {
	var sb strings.Builder
	sb.WriteString("Answer using this data:\n")
	for i, sn := range snippets {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, sn.Text)
	}
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(query))
	return sb.String()
}

// FormatSnippets renders retrieved snippets without generation.
func FormatSnippets(snippets []core.Snippet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Closest %s:\n", plural(len(snippets), "record", "records"))
	for i, sn := range snippets {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, sn.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatRecords renders structured matches as a counted, numbered list.
func FormatRecords(rows []core.Record) string {
	// cases.Caser is stateful; one per call.
	title := cases.Title(language.English)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching record(s):\n", len(rows))
	for i, r := range rows {
		name := title.String(r.Name)
		if name == "" {
			name = strings.ToUpper(r.ID)
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)

		if r.Category != "" {
			fmt.Fprintf(&sb, "   Category: %s\n", title.String(r.Category))
		}
		if loc := joinNonEmpty(", ", title.String(r.Locality), title.String(r.Region)); loc != "" {
			fmt.Fprintf(&sb, "   Location: %s\n", loc)
		}
		if dates := dateRange(r.StartDate, r.EndDate); dates != "" {
			fmt.Fprintf(&sb, "   Dates: %s\n", dates)
		}
		if r.Link != "" {
			fmt.Fprintf(&sb, "   Link: %s\n", r.Link)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func dateRange(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + " to " + end
	case start != "":
		return "from " + start
	case end != "":
		return "until " + end
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
