// Package session provides persistent storage for planning sessions so a
// conversation suspended at an approval checkpoint survives a restart.
package session

import (
	"encoding/json"
	"errors"
	"time"
)

// Snapshot is one persisted planning session: the serialized conversation
// state plus the bookkeeping needed to resume it.
type Snapshot struct {
	SessionID   string          `json:"session_id"`
	Status      string          `json:"status"`
	PendingStep string          `json:"pending_step,omitempty"`
	State       json.RawMessage `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Info provides session metadata without loading the full state.
type Info struct {
	SessionID   string
	Status      string
	PendingStep string
	UpdatedAt   time.Time
	Size        int64
}

// Store persists session snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot, overwriting any previous snapshot for the
	// same session.
	Save(snapshot Snapshot) error

	// Load retrieves a session snapshot.
	// Returns ErrNotFound if the session doesn't exist.
	Load(sessionID string) (Snapshot, error)

	// List returns metadata for all stored sessions, most recently
	// updated first. Returns an empty slice (not an error) when the
	// store is empty.
	List() ([]Info, error)

	// Delete removes a session. Returns nil if it doesn't exist.
	Delete(sessionID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for session storage.
var (
	// ErrNotFound indicates the session doesn't exist.
	ErrNotFound = errors.New("session not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("session store closed")
)
