package tenderqa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/tenderqa/ai/mock"
	"github.com/poiesic/tenderqa/answer"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{"ID", "Name", "State", "City", "Category", "Start Date", "End Date", "Link"}

// rowsSource serves a mutable set of rows.
type rowsSource struct {
	mu    sync.Mutex
	rows  [][]string
	err   error
	calls int
}

func (s *rowsSource) Fetch(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]string, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *rowsSource) set(rows [][]string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.err = rows, err
}

func (s *rowsSource) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine   *Engine
	source   *rowsSource
	provider *mock.MockProvider
	clock    *fakeClock
}

func newHarness(t *testing.T, rows [][]string, opts ...EngineOption) *harness {
	t.Helper()
	h := &harness{
		source:   &rowsSource{rows: rows},
		provider: mock.NewMockProviderWithServices(nil, nil, nil),
		clock:    &fakeClock{now: time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)},
	}
	h.provider.GetMockEmbedder().Dimension = 16

	base := []EngineOption{
		WithProvider(h.provider),
		WithClock(h.clock.Now),
		WithPoolSize(2),
	}
	engine, err := NewEngine(h.source, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	h.engine = engine
	return h
}

var guntur = []string{"T-101", "Road Resurfacing", "Andhra Pradesh", "Guntur", "Construction", "2025-10-20", "2025-10-25", "https://tenders.example.org/101"}

func TestNewEngine(t *testing.T) {
	t.Run("nil source", func(t *testing.T) {
		_, err := NewEngine(nil)
		assert.Equal(t, ErrSourceRequired, err)
	})

	t.Run("invalid top-k", func(t *testing.T) {
		_, err := NewEngine(&rowsSource{}, WithProvider(mock.NewMockProvider()), WithTopK(0))
		assert.ErrorIs(t, err, search.ErrInvalidTopK)
	})

	t.Run("nothing is fetched before the first question", func(t *testing.T) {
		h := newHarness(t, [][]string{header, guntur})
		assert.Zero(t, h.source.fetches())
		assert.False(t, h.engine.Status().Ready)
	})

	t.Run("supplied provider is not closed", func(t *testing.T) {
		provider := mock.NewMockProviderWithServices(nil, nil, nil)
		engine, err := NewEngine(&rowsSource{}, WithProvider(provider), WithoutEmbeddingCache())
		require.NoError(t, err)
		require.NoError(t, engine.Close())
		require.NoError(t, engine.Close(), "close is idempotent")
		assert.False(t, provider.Closed())
	})
}

// One record in Guntur; "tenders in Guntur" is answered from the filters.
func TestScenario_StructuredMatch(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})

	a, err := h.engine.Query(context.Background(), "tenders in Guntur", nil)
	require.NoError(t, err)

	assert.Equal(t, core.ModeStructured, a.Mode)
	require.Len(t, a.Result.Rows, 1)
	assert.Equal(t, "t-101", a.Result.Rows[0].ID)
	assert.Contains(t, a.Text, "Found 1 matching record(s):")
	assert.Contains(t, a.Text, "Road Resurfacing")
	assert.Contains(t, a.Text, "Guntur, Andhra Pradesh")
	assert.Contains(t, a.Text, "2025-10-20 to 2025-10-25")
	assert.Zero(t, h.provider.GetMockGenerator().CallCount())
}

// An unknown locality falls through to semantic search; with the generator
// down, the single snippet is returned instead of an error.
func TestScenario_SemanticFallbackWithoutGenerator(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})
	embedder := h.provider.GetMockEmbedder()
	generator := h.provider.GetMockGenerator()
	generator.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("generator unavailable")
	}

	var queried []string
	var mu sync.Mutex
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		mu.Lock()
		queried = append(queried, text)
		mu.Unlock()
		return mock.GenerateDeterministicVector(text, 16), nil
	}

	a, err := h.engine.Query(context.Background(), "tenders in Vizag", nil)
	require.NoError(t, err)

	assert.Equal(t, core.ModeSemantic, a.Mode)
	assert.Equal(t, []string{"tenders in vizag"}, queried, "the query is embedded")
	assert.Equal(t, 1, generator.CallCount())
	require.Len(t, a.Result.Snippets, 1)
	assert.Equal(t, answer.FormatSnippets(a.Result.Snippets), a.Text)
	assert.Contains(t, a.Text, "t-101 | road resurfacing | andhra pradesh | guntur")
}

// An empty dataset always yields the no-data message.
func TestScenario_EmptyDataset(t *testing.T) {
	for name, rows := range map[string][][]string{
		"no rows":     nil,
		"header only": {header},
		"blank rows":  {header, {"", "", "", "", "", "", "", ""}},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, rows)

			a, err := h.engine.Query(context.Background(), "tenders in Guntur", nil)
			require.NoError(t, err)
			assert.Equal(t, core.ModeNone, a.Mode)
			assert.Equal(t, answer.MsgNoData, a.Text)
			assert.Zero(t, h.provider.GetMockEmbedder().CallCount())
		})
	}
}

// Guntur matches but the named category has no records there.
func TestScenario_FiltersExcludeEverything(t *testing.T) {
	electronics := []string{"T-202", "Laptop Supply", "Telangana", "Hyderabad", "Electronics", "2025-11-01", "2025-11-15", ""}
	h := newHarness(t, [][]string{header, guntur, electronics})

	a, err := h.engine.Query(context.Background(), "electronics tenders in guntur", nil)
	require.NoError(t, err)

	assert.Equal(t, core.ModeStructured, a.Mode)
	assert.Empty(t, a.Result.Rows)
	assert.Equal(t, []core.Column{core.ColumnLocality, core.ColumnCategory}, a.Result.Matched)
	assert.Equal(t, answer.MsgNoFilterMatches, a.Text)
	assert.NotEqual(t, answer.MsgNoData, a.Text)
	assert.NotEqual(t, answer.MsgNoSemanticMatches, a.Text)
}

func TestAsk_GeneratedAnswer(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})
	h.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "There is a road resurfacing tender in Guntur.", nil
	}

	text, err := h.engine.Ask(context.Background(), "any road work?")
	require.NoError(t, err)
	assert.Equal(t, "There is a road resurfacing tender in Guntur.", text)
	assert.Contains(t, h.provider.GetMockGenerator().LastPrompt(), "Question: any road work?")
}

func TestAsk_QueryEmbeddingFailure(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})
	h.provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding endpoint down")
	}

	text, err := h.engine.Ask(context.Background(), "tenders in Vizag")
	require.NoError(t, err)
	assert.Equal(t, answer.MsgSearchUnavailable, text)
}

func TestAsk_SchemaErrorBeforeFirstLoad(t *testing.T) {
	h := newHarness(t, [][]string{{"a", "b", "c"}})

	_, err := h.engine.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, core.ErrSchema)
}

func TestTTLRefresh(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur}, WithTTL(time.Minute))
	ctx := context.Background()

	_, err := h.engine.Ask(ctx, "guntur")
	require.NoError(t, err)
	assert.Equal(t, 1, h.source.fetches())

	h.clock.Advance(30 * time.Second)
	_, err = h.engine.Ask(ctx, "guntur")
	require.NoError(t, err)
	assert.Equal(t, 1, h.source.fetches(), "served from cache within the ttl")

	hyderabad := []string{"T-303", "Bridge Repair", "Telangana", "Hyderabad", "Construction", "2025-12-01", "2025-12-10", ""}
	h.source.set([][]string{header, guntur, hyderabad}, nil)
	h.clock.Advance(31 * time.Second)

	a, err := h.engine.Query(ctx, "construction", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, h.source.fetches())
	assert.Equal(t, uint64(2), a.Generation)
	assert.Len(t, a.Result.Rows, 2)
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur}, WithTTL(time.Hour))
	ctx := context.Background()

	st, err := h.engine.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, st.Ready)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, 16, st.Dimension)

	t.Run("is idempotent", func(t *testing.T) {
		st2, err := h.engine.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), st2.Generation)
		assert.Equal(t, st.Fingerprint, st2.Fingerprint)
		assert.Equal(t, st.Records, st2.Records)
	})

	t.Run("unchanged records come from the embedding cache", func(t *testing.T) {
		st3, err := h.engine.Refresh(ctx)
		require.NoError(t, err)
		assert.Positive(t, st3.CacheHits)
	})

	t.Run("failure keeps the previous generation", func(t *testing.T) {
		before := h.engine.Status()
		h.source.set([][]string{header, {"too", "short"}}, nil)

		_, err := h.engine.Refresh(ctx)
		assert.ErrorIs(t, err, core.ErrSchema)

		after := h.engine.Status()
		assert.Equal(t, before.Generation, after.Generation)
		assert.Contains(t, after.LastError, "schema")

		text, err := h.engine.Ask(ctx, "guntur")
		require.NoError(t, err)
		assert.Contains(t, text, "Found 1 matching record(s):")
	})

	t.Run("fetch failure keeps the previous generation", func(t *testing.T) {
		h.source.set(nil, errors.New("network unreachable"))
		_, err := h.engine.Refresh(ctx)
		assert.Error(t, err)
		assert.True(t, h.engine.Status().Ready)
	})
}

func TestRefresh_EmbeddingFailureKeepsIndex(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur}, WithoutEmbeddingCache())
	ctx := context.Background()

	_, err := h.engine.Refresh(ctx)
	require.NoError(t, err)

	h.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	}
	_, err = h.engine.Refresh(ctx)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Equal(t, uint64(1), h.engine.Status().Generation)
}

func TestAskInSession(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})
	sess := h.engine.NewSession()

	var trace bytes.Buffer
	_, err := h.engine.AskInSession(context.Background(), sess, "tenders in Guntur", search.NewTraceMonitor(&trace))
	require.NoError(t, err)
	assert.Contains(t, trace.String(), "mode: structured")

	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "tenders in Guntur", turns[0].Text)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Contains(t, turns[1].Text, "Found 1 matching record(s):")
	assert.Equal(t, 1, h.engine.Status().Sessions)

	_, err = h.engine.AskInSession(context.Background(), sess, "", nil)
	assert.ErrorIs(t, err, core.ErrEmptyText)
	assert.Equal(t, 2, sess.Len())
}

func TestAskInSession_FailureRecordsNothing(t *testing.T) {
	t.Run("never loaded", func(t *testing.T) {
		h := newHarness(t, nil)
		h.source.set(nil, errors.New("connection refused"))
		sess := h.engine.NewSession()

		_, err := h.engine.AskInSession(context.Background(), sess, "tenders in Guntur", nil)
		require.Error(t, err)
		assert.Zero(t, sess.Len())
	})

	t.Run("closed engine", func(t *testing.T) {
		h := newHarness(t, [][]string{header, guntur})
		sess := h.engine.NewSession()
		require.NoError(t, h.engine.Close())

		_, err := h.engine.AskInSession(context.Background(), sess, "tenders in Guntur", nil)
		assert.ErrorIs(t, err, ErrClosed)
		assert.Zero(t, sess.Len())
	})
}

func TestQuery_Monitor(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})
	var buf bytes.Buffer

	_, err := h.engine.Query(context.Background(), "guntur", search.NewTraceMonitor(&buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mode: structured")
}

func TestHeaderOption(t *testing.T) {
	h := newHarness(t, [][]string{guntur}, WithLoadOptions(records.WithHeader(records.HeaderPresent)))

	a, err := h.engine.Query(context.Background(), "guntur", nil)
	require.NoError(t, err)
	assert.Equal(t, core.ModeNone, a.Mode, "the only row was discarded as a header")
}

func TestClosedEngine(t *testing.T) {
	h := newHarness(t, [][]string{header, guntur})
	require.NoError(t, h.engine.Close())

	_, err := h.engine.Ask(context.Background(), "guntur")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.engine.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentQueriesDuringRefresh(t *testing.T) {
	rows := [][]string{header}
	for i := range 20 {
		rows = append(rows, []string{fmt.Sprintf("T-%d", i), "Works", "Andhra Pradesh", "Guntur", "Construction", "", "", ""})
	}
	h := newHarness(t, rows, WithTTL(0))
	ctx := context.Background()
	_, err := h.engine.Refresh(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				a, err := h.engine.Query(ctx, "guntur", nil)
				if assert.NoError(t, err) {
					assert.Len(t, a.Result.Rows, 20)
				}
			}
		}()
	}
	for range 5 {
		_, err := h.engine.Refresh(ctx)
		require.NoError(t, err)
	}
	wg.Wait()
}
