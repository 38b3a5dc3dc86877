package tripflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to steps.
// It extends context.Context with workflow-specific metadata.
//
// Context is immutable after creation. The engine creates derived contexts
// for each step with an updated step name and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with session and step
	// context. Never returns nil - defaults to slog.Default() if not
	// configured.
	Logger() *slog.Logger

	// SessionID returns the unique identifier for this conversation
	// session. Auto-generated if not configured.
	SessionID() string

	// StepName returns the step currently executing.
	// Empty string before execution starts.
	StepName() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	sessionID string
	stepName  string
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// SessionID returns the session identifier.
func (c *executionContext) SessionID() string {
	return c.sessionID
}

// StepName returns the current step name.
func (c *executionContext) StepName() string {
	return c.stepName
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with session_id and step during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithSessionID sets the session identifier for the context.
// If not set, a UUID will be auto-generated.
func WithSessionID(id string) ContextOption {
	return func(c *executionContext) {
		c.sessionID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := tripflow.NewContext(context.Background(),
//	    tripflow.WithLogger(myLogger),
//	    tripflow.WithSessionID("session-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context:   ctx,
		logger:    slog.Default(),
		sessionID: uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withStep returns a new context with the given step name set.
// Used internally by the engine to enrich the context per-step.
func (c *executionContext) withStep(step string) *executionContext {
	return &executionContext{
		Context:   c.Context,
		logger:    c.logger.With("session_id", c.sessionID, "step", step),
		sessionID: c.sessionID,
		stepName:  step,
	}
}

// stepContext derives a per-step context from any Context implementation.
func stepContext(ctx Context, step string) Context {
	if ec, ok := ctx.(*executionContext); ok {
		return ec.withStep(step)
	}
	return ctx
}
