package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/intentdb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, backend, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

func TestStore_CreateSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotZero(t, first)

	second, err := store.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	exists, err := store.SessionExists(ctx, first)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.SessionExists(ctx, core.ID(99999))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_AppendTurn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)

	t.Run("assigns id and timestamp", func(t *testing.T) {
		turn, err := store.AppendTurn(ctx, sessionID, core.SpeakerUser, "hello")
		require.NoError(t, err)
		assert.NotZero(t, turn.Id)
		assert.Equal(t, sessionID, turn.SessionId)
		assert.False(t, turn.Timestamp.IsZero())
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		_, err := store.AppendTurn(ctx, core.ID(99999), core.SpeakerUser, "hello")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		_, err := store.AppendTurn(ctx, sessionID, core.SpeakerUser, "")
		assert.ErrorIs(t, err, core.ErrEmptyContent)
	})

	t.Run("invalid speaker rejected", func(t *testing.T) {
		_, err := store.AppendTurn(ctx, sessionID, core.Speaker(42), "hello")
		assert.ErrorIs(t, err, core.ErrInvalidSpeaker)
	})
}

func TestStore_Turns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		speaker := core.SpeakerUser
		if i%2 == 1 {
			speaker = core.SpeakerAssistant
		}
		_, err := store.AppendTurn(ctx, sessionID, speaker, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	t.Run("chronological order", func(t *testing.T) {
		turns, err := store.Turns(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, turns, 5)
		for i, turn := range turns {
			assert.Equal(t, fmt.Sprintf("turn %d", i), turn.Content)
		}
		assert.Equal(t, core.SpeakerUser, turns[0].Speaker)
		assert.Equal(t, core.SpeakerAssistant, turns[1].Speaker)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		otherID, err := store.CreateSession(ctx)
		require.NoError(t, err)
		_, err = store.AppendTurn(ctx, otherID, core.SpeakerUser, "other session")
		require.NoError(t, err)

		turns, err := store.Turns(ctx, otherID)
		require.NoError(t, err)
		require.Len(t, turns, 1)
		assert.Equal(t, "other session", turns[0].Content)
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		_, err := store.Turns(ctx, core.ID(99999))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestStore_RecentTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		_, err := store.AppendTurn(ctx, sessionID, core.SpeakerUser, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	t.Run("returns tail in order", func(t *testing.T) {
		turns, err := store.RecentTurns(ctx, sessionID, 2)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "turn 4", turns[0].Content)
		assert.Equal(t, "turn 5", turns[1].Content)
	})

	t.Run("n larger than history", func(t *testing.T) {
		turns, err := store.RecentTurns(ctx, sessionID, 100)
		require.NoError(t, err)
		assert.Len(t, turns, 6)
	})

	t.Run("non-positive n", func(t *testing.T) {
		turns, err := store.RecentTurns(ctx, sessionID, 0)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

func TestStore_DeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)
	_, err = store.AppendTurn(ctx, sessionID, core.SpeakerUser, "hello")
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, sessionID))

	exists, err := store.SessionExists(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Turns(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, store.DeleteSession(ctx, sessionID), ErrSessionNotFound)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	store, err := NewStore(backend)
	require.NoError(t, err)

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)
	_, err = store.AppendTurn(ctx, sessionID, core.SpeakerUser, "persisted")
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	store, err = NewStore(backend)
	require.NoError(t, err)
	defer backend.Close()
	defer store.Close()

	turns, err := store.Turns(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "persisted", turns[0].Content)
}
