package session

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store for testing and single-run use.
// Data is lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Snapshot
	closed   bool
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Snapshot),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(snapshot Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	now := time.Now().UTC()
	if existing, ok := m.sessions[snapshot.SessionID]; ok {
		snapshot.CreatedAt = existing.CreatedAt
	} else if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	snapshot.UpdatedAt = now

	// Copy the state to avoid retaining the caller's slice
	stored := make(json.RawMessage, len(snapshot.State))
	copy(stored, snapshot.State)
	snapshot.State = stored

	m.sessions[snapshot.SessionID] = snapshot
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(sessionID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snapshot, ok := m.sessions[sessionID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	// Return a copy to prevent modification
	state := make(json.RawMessage, len(snapshot.State))
	copy(state, snapshot.State)
	snapshot.State = state
	return snapshot, nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.sessions))
	for _, snapshot := range m.sessions {
		infos = append(infos, Info{
			SessionID:   snapshot.SessionID,
			Status:      snapshot.Status,
			PendingStep: snapshot.PendingStep,
			UpdatedAt:   snapshot.UpdatedAt,
			Size:        int64(len(snapshot.State)),
		})
	}

	// Most recent first
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})

	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.sessions, sessionID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.sessions = nil
	return nil
}

// Len returns the number of stored sessions. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
