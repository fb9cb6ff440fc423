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

package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/tenderqa"
	"github.com/poiesic/tenderqa/core"
	"github.com/poiesic/tenderqa/search"
	"github.com/poiesic/tenderqa/session"
)

// Engine is the subset of *tenderqa.Engine the API serves.
type Engine interface {
	Query(ctx context.Context, query string, monitor search.RouteMonitor) (*tenderqa.Answer, error)
	AskInSession(ctx context.Context, sess *session.Session, query string, monitor search.RouteMonitor) (*tenderqa.Answer, error)
	Refresh(ctx context.Context) (tenderqa.Status, error)
	Status() tenderqa.Status
	Sessions() *session.Store
	NewSession() *session.Session
}

var _ Engine = (*tenderqa.Engine)(nil)

// API provides handlers for the question answering service.
type API struct {
	engine Engine
	logger *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAPI creates the handlers for engine.
func NewAPI(engine Engine, opts ...Option) *API {
	a := &API{
		engine: engine,
		logger: slog.Default().With("component", "http"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type askRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
	Explain   bool   `json:"explain"`
}

type askResponse struct {
	Answer     string `json:"answer"`
	Mode       string `json:"mode"`
	Generation uint64 `json:"generation"`
	Matches    int    `json:"matches"`
	SessionID  string `json:"session_id,omitempty"`
	Trace      string `json:"trace,omitempty"`
}

type statusResponse struct {
	Ready       bool       `json:"ready"`
	Generation  uint64     `json:"generation"`
	Records     int        `json:"records"`
	Dimension   int        `json:"dimension"`
	BuiltAt     *time.Time `json:"built_at,omitempty"`
	Age         string     `json:"age,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CacheHits   int        `json:"cache_hits"`
	CacheMisses int        `json:"cache_misses"`
	Sessions    int        `json:"sessions"`
}

type turnResponse struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

func toStatus(st tenderqa.Status) statusResponse {
	out := statusResponse{
		Ready:       st.Ready,
		Generation:  st.Generation,
		Records:     st.Records,
		Dimension:   st.Dimension,
		Fingerprint: st.Fingerprint,
		LastError:   st.LastError,
		CacheHits:   st.CacheHits,
		CacheMisses: st.CacheMisses,
		Sessions:    st.Sessions,
	}
	if st.Ready {
		builtAt := st.BuiltAt
		out.BuiltAt = &builtAt
		out.Age = st.Age.Round(time.Second).String()
	}
	return out
}

func matches(a *tenderqa.Answer) int {
	if a.Mode == core.ModeStructured {
		return len(a.Result.Rows)
	}
	return len(a.Result.Snippets)
}

// AskHandler answers a question. With a session_id the exchange is recorded
// in that session.
func (a *API) AskHandler(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	ctx := c.Request.Context()
	var (
		ans   *tenderqa.Answer
		trace bytes.Buffer
		err   error
	)
	var monitor search.RouteMonitor
	if req.Explain {
		monitor = search.NewTraceMonitor(&trace)
	}
	if req.SessionID != "" {
		sess, serr := a.engine.Sessions().Get(req.SessionID)
		if serr != nil {
			a.sessionError(c, serr)
			return
		}
		ans, err = a.engine.AskInSession(ctx, sess, req.Query, monitor)
	} else {
		ans, err = a.engine.Query(ctx, req.Query, monitor)
	}
	if err != nil {
		a.engineError(c, err)
		return
	}

	c.JSON(http.StatusOK, askResponse{
		Answer:     ans.Text,
		Mode:       ans.Mode.String(),
		Generation: ans.Generation,
		Matches:    matches(ans),
		SessionID:  req.SessionID,
		Trace:      trace.String(),
	})
}

// RefreshHandler rebuilds the index. When the rebuild fails the previous
// generation keeps serving and the response carries both the error and the
// status.
func (a *API) RefreshHandler(c *gin.Context) {
	st, err := a.engine.Refresh(c.Request.Context())
	if err != nil {
		a.logger.Warn("refresh failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "status": toStatus(st)})
		return
	}
	c.JSON(http.StatusOK, toStatus(st))
}

// StatusHandler reports the published generation.
func (a *API) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, toStatus(a.engine.Status()))
}

// CreateSessionHandler starts a conversation.
func (a *API) CreateSessionHandler(c *gin.Context) {
	sess := a.engine.NewSession()
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID()})
}

// HistoryHandler lists a conversation's turns, oldest first.
func (a *API) HistoryHandler(c *gin.Context) {
	sess, err := a.engine.Sessions().Get(c.Param("id"))
	if err != nil {
		a.sessionError(c, err)
		return
	}

	turns := sess.Turns()
	out := make([]turnResponse, len(turns))
	for i, t := range turns {
		out[i] = turnResponse{Role: t.Role.String(), Text: t.Text, At: t.At}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID(), "turns": out})
}

// DeleteSessionHandler ends a conversation.
func (a *API) DeleteSessionHandler(c *gin.Context) {
	if err := a.engine.Sessions().Delete(c.Param("id")); err != nil {
		a.sessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (a *API) engineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tenderqa.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		// The dataset has never loaded.
		a.logger.Error("question failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}
