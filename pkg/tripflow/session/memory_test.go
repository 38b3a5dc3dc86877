package session_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripflow/pkg/tripflow/session"
)

func TestMemoryStore_Len(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Save(session.Snapshot{SessionID: "sess-1", Status: "completed"}))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Save(session.Snapshot{SessionID: "sess-2", Status: "completed"}))
	assert.Equal(t, 2, store.Len())

	// Overwrite is not a new session
	require.NoError(t, store.Save(session.Snapshot{SessionID: "sess-1", Status: "failed"}))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Delete("sess-1"))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := session.NewMemoryStore()
	defer store.Close()

	const numGoroutines = 100
	const numOps = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()

			sessionID := fmt.Sprintf("sess-%d", id%10)
			for j := 0; j < numOps; j++ {
				switch j % 5 {
				case 0, 1:
					_ = store.Save(session.Snapshot{
						SessionID: sessionID,
						Status:    "completed",
						State:     json.RawMessage(`{}`),
					})
				case 2:
					_, _ = store.Load(sessionID)
				case 3:
					_, _ = store.List()
				case 4:
					_ = store.Delete(sessionID)
				}
			}
		}(i)
	}

	wg.Wait()
}
