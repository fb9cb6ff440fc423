package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/tenderqa"
	"github.com/poiesic/tenderqa/ai/mock"
	"github.com/poiesic/tenderqa/answer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	mu   sync.Mutex
	rows [][]string
	err  error
}

func (s *fakeSource) Fetch(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.err
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

var dataset = [][]string{
	{"ID", "Name", "Region", "Locality", "Category", "Start Date", "End Date", "Link"},
	{"T-101", "Road Resurfacing", "Andhra Pradesh", "Guntur", "Construction", "2025-10-20", "2025-10-25", "https://tenders.example.org/101"},
	{"T-202", "Laptop Supply", "Telangana", "Hyderabad", "Electronics", "2025-11-01", "2025-11-15", ""},
}

func newTestServer(t *testing.T) (*gin.Engine, *fakeSource) {
	t.Helper()
	src := &fakeSource{rows: dataset}
	provider := mock.NewMockProviderWithServices(nil, nil, nil)
	provider.GetMockEmbedder().Dimension = 8

	engine, err := tenderqa.NewEngine(src, tenderqa.WithProvider(provider), tenderqa.WithPoolSize(1))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return NewRouter(NewAPI(engine)), src
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestAskHandler(t *testing.T) {
	router, _ := newTestServer(t)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMode    string
		wantMatches int
		wantAnswer  string
	}{
		{
			name:        "structured",
			body:        `{"query":"tenders in Guntur"}`,
			wantStatus:  http.StatusOK,
			wantMode:    "structured",
			wantMatches: 1,
		},
		{
			name:        "filters exclude everything",
			body:        `{"query":"electronics in guntur"}`,
			wantStatus:  http.StatusOK,
			wantMode:    "structured",
			wantMatches: 0,
			wantAnswer:  answer.MsgNoFilterMatches,
		},
		{
			name:        "semantic",
			body:        `{"query":"road works near the coast"}`,
			wantStatus:  http.StatusOK,
			wantMode:    "semantic",
			wantMatches: 2,
			wantAnswer:  "mock answer",
		},
		{
			name:       "missing query",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"query":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/ask", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, w.Body.String(), "error")
				return
			}

			resp := decode[askResponse](t, w)
			assert.Equal(t, tt.wantMode, resp.Mode)
			assert.Equal(t, tt.wantMatches, resp.Matches)
			assert.Equal(t, uint64(1), resp.Generation)
			if tt.wantAnswer != "" {
				assert.Equal(t, tt.wantAnswer, resp.Answer)
			}
		})
	}
}

func TestAskHandler_Explain(t *testing.T) {
	router, _ := newTestServer(t)

	w := do(t, router, http.MethodPost, "/api/v1/ask", `{"query":"tenders in Guntur","explain":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[askResponse](t, w)
	assert.Contains(t, resp.Trace, `query: "tenders in Guntur"`)
	assert.Contains(t, resp.Trace, "mode: structured")
}

func TestAskHandler_ExplainInSession(t *testing.T) {
	router, _ := newTestServer(t)

	w := do(t, router, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]string](t, w)["session_id"]

	w = do(t, router, http.MethodPost, "/api/v1/ask", `{"query":"tenders in Guntur","session_id":"`+id+`","explain":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[askResponse](t, w)
	assert.Equal(t, id, resp.SessionID)
	assert.Contains(t, resp.Trace, "mode: structured")
}

func TestAskHandler_NeverLoaded(t *testing.T) {
	router, src := newTestServer(t)
	src.fail(errors.New("connection refused"))

	w := do(t, router, http.MethodPost, "/api/v1/ask", `{"query":"guntur"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestSessions(t *testing.T) {
	router, _ := newTestServer(t)

	w := do(t, router, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]string](t, w)["session_id"]
	require.NotEmpty(t, id)

	w = do(t, router, http.MethodPost, "/api/v1/ask", `{"query":"tenders in Guntur","session_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, decode[askResponse](t, w).SessionID)

	w = do(t, router, http.MethodGet, "/api/v1/sessions/"+id+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		SessionID string         `json:"session_id"`
		Turns     []turnResponse `json:"turns"`
	}](t, w)
	require.Len(t, history.Turns, 2)
	assert.Equal(t, "user", history.Turns[0].Role)
	assert.Equal(t, "tenders in Guntur", history.Turns[0].Text)
	assert.Equal(t, "assistant", history.Turns[1].Role)

	w = do(t, router, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/sessions/"+id+"/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions_Errors(t *testing.T) {
	router, _ := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"history of malformed id", http.MethodGet, "/api/v1/sessions/not-a-uuid/history", "", http.StatusBadRequest},
		{"history of unknown id", http.MethodGet, "/api/v1/sessions/0b6f1c4e-3a52-4d8e-9d6c-4f2b8a9e1c7d/history", "", http.StatusNotFound},
		{"delete unknown id", http.MethodDelete, "/api/v1/sessions/0b6f1c4e-3a52-4d8e-9d6c-4f2b8a9e1c7d", "", http.StatusNotFound},
		{"ask in unknown session", http.MethodPost, "/api/v1/ask", `{"query":"guntur","session_id":"0b6f1c4e-3a52-4d8e-9d6c-4f2b8a9e1c7d"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStatusAndRefresh(t *testing.T) {
	router, src := newTestServer(t)

	w := do(t, router, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[statusResponse](t, w)
	assert.False(t, st.Ready)
	assert.Nil(t, st.BuiltAt)

	w = do(t, router, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	st = decode[statusResponse](t, w)
	assert.True(t, st.Ready)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 8, st.Dimension)
	assert.NotNil(t, st.BuiltAt)

	src.fail(errors.New("upstream timeout"))
	w = do(t, router, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	failed := decode[struct {
		Error  string         `json:"error"`
		Status statusResponse `json:"status"`
	}](t, w)
	assert.Contains(t, failed.Error, "upstream timeout")
	assert.Equal(t, uint64(1), failed.Status.Generation)
	assert.True(t, failed.Status.Ready)
}
