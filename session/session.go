package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/tenderqa/core"
)

var (
	// ErrNotFound is returned when a session id is unknown.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidID is returned when a session id is not a UUID.
	ErrInvalidID = errors.New("invalid session id")
)

// Session is an append-only conversation log. It is safe for concurrent use.
// Turns are kept in memory only and never feed back into retrieval.
type Session struct {
	id      string
	created time.Time

	mu         sync.RWMutex
	turns      []core.Turn
	lastActive time.Time
}

// New creates an empty session with a random id.
func New(now time.Time) *Session {
	return &Session{
		id:         uuid.NewString(),
		created:    now,
		lastActive: now,
	}
}

// ID returns the session's UUID.
func (s *Session) ID() string {
	return s.id
}

// Created returns when the session was started.
func (s *Session) Created() time.Time {
	return s.created
}

// Append adds a turn to the log.
func (s *Session) Append(role core.Role, text string, at time.Time) error {
	turn := core.Turn{Role: role, Text: text, At: at}
	if err := core.ValidateTurn(&turn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	s.lastActive = at
	return nil
}

// AppendExchange adds a user turn and the assistant's reply together. Neither
// is added unless both are valid.
func (s *Session) AppendExchange(query, reply string, at time.Time) error {
	user := core.Turn{Role: core.RoleUser, Text: query, At: at}
	if err := core.ValidateTurn(&user); err != nil {
		return err
	}
	assistant := core.Turn{Role: core.RoleAssistant, Text: reply, At: at}
	if err := core.ValidateTurn(&assistant); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, user, assistant)
	s.lastActive = at
	return nil
}

// Turns returns a copy of the log, oldest first.
func (s *Session) Turns() []core.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// LastActive returns the time of the latest turn, or the creation time.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Clear drops every turn.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Store indexes live sessions by id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create starts and registers a new session.
func (st *Store) Create(now time.Time) *Session {
	s := New(now)
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Get looks a session up by id.
func (st *Store) Get(id string) (*Session, error) {
	key, err := canonical(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete ends a session and discards its log.
func (st *Store) Delete(id string) error {
	key, err := canonical(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	if !ok {
		return ErrNotFound
	}
	s.Clear()
	delete(st.sessions, key)
	return nil
}

// Expire deletes sessions idle for at least idle and returns how many were
// removed.
func (st *Store) Expire(now time.Time, idle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastActive()) >= idle {
			s.Clear()
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func canonical(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}
