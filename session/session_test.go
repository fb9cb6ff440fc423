package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/tenderqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)

func TestSession_Append(t *testing.T) {
	s := New(t0)
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)
	assert.Equal(t, t0, s.Created())

	require.NoError(t, s.Append(core.RoleUser, "tenders in guntur", t0.Add(time.Second)))
	require.NoError(t, s.Append(core.RoleAssistant, "Found 1 matching record(s):", t0.Add(2*time.Second)))

	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, t0.Add(2*time.Second), s.LastActive())

	turns[0].Text = "mutated"
	assert.Equal(t, "tenders in guntur", s.Turns()[0].Text, "Turns returns a copy")
}

func TestSession_AppendValidation(t *testing.T) {
	tests := []struct {
		name    string
		role    core.Role
		text    string
		at      time.Time
		wantErr error
	}{
		{name: "empty text", role: core.RoleUser, text: "", at: t0, wantErr: core.ErrEmptyText},
		{name: "invalid role", role: core.Role(9), text: "hi", at: t0, wantErr: core.ErrInvalidRole},
		{name: "future timestamp", role: core.RoleUser, text: "hi", at: time.Now().Add(time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(t0)
			err := s.Append(tt.role, tt.text, tt.at)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Zero(t, s.Len())
		})
	}
}

func TestSession_Clear(t *testing.T) {
	s := New(t0)
	require.NoError(t, s.Append(core.RoleUser, "hello", t0))
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Turns())
}

func TestSession_ConcurrentAppend(t *testing.T) {
	s := New(t0)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(core.RoleUser, "q", t0.Add(time.Duration(i)*time.Millisecond)))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestStore(t *testing.T) {
	st := NewStore()
	s := st.Create(t0)
	assert.Equal(t, 1, st.Len())

	t.Run("get", func(t *testing.T) {
		got, err := st.Get(s.ID())
		require.NoError(t, err)
		assert.Same(t, s, got)

		got, err = st.Get(strings.ToUpper(s.ID()))
		require.NoError(t, err, "ids are case-insensitive")
		assert.Same(t, s, got)
	})

	t.Run("unknown and invalid ids", func(t *testing.T) {
		_, err := st.Get(uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = st.Get("not-a-uuid")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.ErrorIs(t, st.Delete("../etc"), ErrInvalidID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Append(core.RoleUser, "hello", t0))
		require.NoError(t, st.Delete(s.ID()))
		assert.Zero(t, s.Len(), "deleting a session clears its log")
		assert.ErrorIs(t, st.Delete(s.ID()), ErrNotFound)
		assert.Zero(t, st.Len())
	})
}

func TestStore_Expire(t *testing.T) {
	st := NewStore()
	idle := st.Create(t0)
	active := st.Create(t0)
	require.NoError(t, active.Append(core.RoleUser, "still here", t0.Add(25*time.Minute)))

	removed := st.Expire(t0.Add(30*time.Minute), 30*time.Minute)
	assert.Equal(t, 1, removed)

	_, err := st.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(active.ID())
	assert.NoError(t, err)
}

func TestSession_AppendExchange(t *testing.T) {
	s := New(t0)
	require.NoError(t, s.AppendExchange("tenders in guntur", "Found 1 matching record(s):", t0.Add(time.Second)))

	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, t0.Add(time.Second), s.LastActive())

	assert.ErrorIs(t, s.AppendExchange("", "reply", t0), core.ErrEmptyText)
	assert.ErrorIs(t, s.AppendExchange("query", "", t0), core.ErrEmptyText)
	assert.Equal(t, 2, s.Len(), "invalid exchanges add nothing")
}
