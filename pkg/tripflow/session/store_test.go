package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripflow/pkg/tripflow/session"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) session.Store

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	snap := func(id, status string) session.Snapshot {
		return session.Snapshot{
			SessionID: id,
			Status:    status,
			State:     json.RawMessage(`{"messages":[]}`),
		}
	}

	t.Run(name+"/Save_and_Load", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		saved := snap("sess-1", "completed")
		saved.PendingStep = ""
		require.NoError(t, store.Save(saved))

		loaded, err := store.Load("sess-1")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", loaded.SessionID)
		assert.Equal(t, "completed", loaded.Status)
		assert.Equal(t, saved.State, loaded.State)
		assert.False(t, loaded.CreatedAt.IsZero())
		assert.False(t, loaded.UpdatedAt.IsZero())
	})

	t.Run(name+"/Load_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Load("sess-nonexistent")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run(name+"/Save_Overwrite_KeepsCreatedAt", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(snap("sess-1", "awaiting_approval")))
		first, err := store.Load("sess-1")
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
		updated := snap("sess-1", "completed")
		updated.State = json.RawMessage(`{"messages":[{"role":"user","content":"hi"}]}`)
		require.NoError(t, store.Save(updated))

		second, err := store.Load("sess-1")
		require.NoError(t, err)
		assert.Equal(t, "completed", second.Status)
		assert.Equal(t, updated.State, second.State)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	})

	t.Run(name+"/PendingStep_RoundTrip", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		suspended := snap("sess-1", "awaiting_approval")
		suspended.PendingStep = "itinerary"
		require.NoError(t, store.Save(suspended))

		loaded, err := store.Load("sess-1")
		require.NoError(t, err)
		assert.Equal(t, "itinerary", loaded.PendingStep)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run(name+"/List_MostRecentFirst", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(snap("sess-old", "completed")))
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, store.Save(snap("sess-new", "awaiting_approval")))

		infos, err := store.List()
		require.NoError(t, err)
		require.Len(t, infos, 2)

		assert.Equal(t, "sess-new", infos[0].SessionID)
		assert.Equal(t, "awaiting_approval", infos[0].Status)
		assert.Equal(t, "sess-old", infos[1].SessionID)
		assert.Equal(t, int64(len(`{"messages":[]}`)), infos[0].Size)
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(snap("sess-1", "completed")))
		require.NoError(t, store.Delete("sess-1"))

		_, err := store.Load("sess-1")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run(name+"/Delete_Nonexistent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		assert.NoError(t, store.Delete("sess-nonexistent"))
	})

	t.Run(name+"/DataCopy", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		state := json.RawMessage(`{"messages":[]}`)
		require.NoError(t, store.Save(session.Snapshot{
			SessionID: "sess-1",
			Status:    "completed",
			State:     state,
		}))

		// Modify the caller's slice after save
		state[0] = 'X'

		loaded, err := store.Load("sess-1")
		require.NoError(t, err)
		assert.Equal(t, json.RawMessage(`{"messages":[]}`), loaded.State)
	})

	t.Run(name+"/Close_ThenError", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Save(snap("sess-1", "completed"))
		assert.ErrorIs(t, err, session.ErrStoreClosed)

		_, err = store.Load("sess-1")
		assert.ErrorIs(t, err, session.ErrStoreClosed)

		_, err = store.List()
		assert.ErrorIs(t, err, session.ErrStoreClosed)
	})
}

// TestMemoryStore_Contract runs contract tests against MemoryStore.
func TestMemoryStore_Contract(t *testing.T) {
	storeContractTest(t, "MemoryStore", func(t *testing.T) session.Store {
		return session.NewMemoryStore()
	})
}

// TestSQLiteStore_Contract runs contract tests against SQLiteStore.
func TestSQLiteStore_Contract(t *testing.T) {
	storeContractTest(t, "SQLiteStore", func(t *testing.T) session.Store {
		store, err := session.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}
