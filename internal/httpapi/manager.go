// Package httpapi exposes the planning workflow as a JSON chat API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/session"
)

// StatusFailed marks a session whose run terminated with a workflow error.
// The engine's own statuses cover completion and suspension.
const StatusFailed = "failed"

// Manager errors surfaced to the transport layer.
var (
	// ErrSessionNotFound indicates no session with the given ID exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrApprovalPending indicates the session is suspended at a
	// checkpoint and needs an approval decision, not a chat message.
	ErrApprovalPending = errors.New("session is awaiting approval")

	// ErrNoApprovalPending indicates an approval decision arrived for a
	// session that is not suspended.
	ErrNoApprovalPending = errors.New("session has no pending approval")

	// ErrNoItinerary indicates the session has not produced an itinerary.
	ErrNoItinerary = errors.New("session has no itinerary yet")
)

// Session is the caller's view of one planning conversation.
type Session struct {
	ID          string
	Status      string
	PendingStep string
	State       tripflow.TravelState
}

// Manager coordinates planning sessions: it drives the engine, persists
// snapshots after every invocation, and serializes concurrent requests
// against the same session.
type Manager struct {
	engine *tripflow.Engine
	store  session.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a session manager.
func NewManager(engine *tripflow.Engine, store session.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engine: engine,
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Create starts a new planning session from the user's first message and
// runs the workflow until it completes or suspends for approval.
func (m *Manager) Create(ctx context.Context, message string) (*Session, error) {
	sessionID := uuid.NewString()

	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state := tripflow.NewState(message)
	return m.run(ctx, sessionID, state, func(execCtx tripflow.Context) (tripflow.Outcome, error) {
		return m.engine.Run(execCtx, state)
	})
}

// Message appends a user message to an existing session and resumes the
// conversation. A session suspended at a checkpoint rejects messages; the
// caller must answer the approval first.
func (m *Manager) Message(ctx context.Context, sessionID, message string) (*Session, error) {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snapshot, state, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status == string(tripflow.StatusAwaitingApproval) {
		return nil, ErrApprovalPending
	}

	state.AppendMessage(tripflow.RoleUser, message)
	return m.run(ctx, sessionID, state, func(execCtx tripflow.Context) (tripflow.Outcome, error) {
		return m.engine.Run(execCtx, state)
	})
}

// Approve applies the human's decision to a suspended session and resumes it.
func (m *Manager) Approve(ctx context.Context, sessionID string, approved bool, feedback string) (*Session, error) {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snapshot, state, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status != string(tripflow.StatusAwaitingApproval) || snapshot.PendingStep == "" {
		return nil, ErrNoApprovalPending
	}

	pendingStep := snapshot.PendingStep
	return m.run(ctx, sessionID, state, func(execCtx tripflow.Context) (tripflow.Outcome, error) {
		return m.engine.Resume(execCtx, state, pendingStep, tripflow.Approval{
			Approved: approved,
			Feedback: feedback,
		})
	})
}

// Get returns the current view of a session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	snapshot, state, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          snapshot.SessionID,
		Status:      snapshot.Status,
		PendingStep: snapshot.PendingStep,
		State:       state,
	}, nil
}

// List returns metadata for all stored sessions.
func (m *Manager) List() ([]session.Info, error) {
	return m.store.List()
}

// Itinerary returns the session's assembled itinerary.
func (m *Manager) Itinerary(sessionID string) (*tripflow.Itinerary, error) {
	_, state, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Itinerary == nil {
		return nil, ErrNoItinerary
	}
	return state.Itinerary, nil
}

// run invokes the engine, persists the outcome, and builds the session view.
// A terminal workflow error becomes the failed status rather than a
// transport error; the error trail in the state tells the caller what broke.
func (m *Manager) run(ctx context.Context, sessionID string, state tripflow.TravelState, invoke func(tripflow.Context) (tripflow.Outcome, error)) (*Session, error) {
	execCtx := tripflow.NewContext(ctx,
		tripflow.WithSessionID(sessionID),
		tripflow.WithLogger(m.logger),
	)

	outcome, runErr := invoke(execCtx)

	status := string(outcome.Status)
	var wfErr *tripflow.WorkflowError
	switch {
	case runErr == nil:
	case errors.As(runErr, &wfErr):
		status = StatusFailed
	default:
		return nil, runErr
	}

	if err := m.persist(sessionID, status, outcome); err != nil {
		return nil, err
	}

	return &Session{
		ID:          sessionID,
		Status:      status,
		PendingStep: outcome.PendingStep,
		State:       outcome.State,
	}, nil
}

func (m *Manager) persist(sessionID, status string, outcome tripflow.Outcome) error {
	encoded, err := json.Marshal(outcome.State)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return m.store.Save(session.Snapshot{
		SessionID:   sessionID,
		Status:      status,
		PendingStep: outcome.PendingStep,
		State:       encoded,
	})
}

func (m *Manager) load(sessionID string) (session.Snapshot, tripflow.TravelState, error) {
	snapshot, err := m.store.Load(sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return session.Snapshot{}, tripflow.TravelState{}, ErrSessionNotFound
	}
	if err != nil {
		return session.Snapshot{}, tripflow.TravelState{}, err
	}

	var state tripflow.TravelState
	if err := json.Unmarshal(snapshot.State, &state); err != nil {
		return session.Snapshot{}, tripflow.TravelState{}, fmt.Errorf("decode session state: %w", err)
	}
	return snapshot, state, nil
}

func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
