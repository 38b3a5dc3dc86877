package tripflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/tripflow/pkg/tripflow/observability"
	"go.opentelemetry.io/otel/trace"
)

// Status describes how an engine invocation ended.
type Status string

// Engine outcome statuses.
const (
	// StatusCompleted means the supervisor routed to End.
	StatusCompleted Status = "completed"

	// StatusAwaitingApproval means execution suspended at a human-approval
	// checkpoint. Call Resume with the human's decision to continue.
	StatusAwaitingApproval Status = "awaiting_approval"
)

// Outcome is the result of one engine invocation. When Status is
// StatusAwaitingApproval, PendingStep names the checkpoint and the caller
// owns the state until it resumes the session.
type Outcome struct {
	State       TravelState
	Status      Status
	PendingStep string
}

// Approval is the human's verdict at a checkpoint.
type Approval struct {
	Approved bool
	Feedback string
}

// DefaultOscillationLimit is how many times the identical (step, error kind)
// pair may recur before the engine forces termination.
const DefaultOscillationLimit = 3

// DefaultMaxSteps bounds total step executions per invocation, failed
// routing decisions included, independent of the oscillation guard.
const DefaultMaxSteps = 50

// Engine owns the fixed star-topology routing table and drives execution
// until the supervisor routes to End, a checkpoint suspends the run, or an
// unrecoverable WorkflowError terminates it.
//
// An Engine is safe for concurrent use across independent sessions; all
// per-session state lives in the TravelState threaded through Run and Resume.
type Engine struct {
	router Router
	steps  map[string]Step

	logger           *slog.Logger
	metrics          observability.MetricsRecorder
	spans            observability.SpanManager
	tracingEnabled   bool
	oscillationLimit int
	maxSteps         int
	approvalEnabled  bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the structured logger. Defaults to slog.Default().
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to no-op.
func WithMetrics(m observability.MetricsRecorder) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for runs and steps.
func WithTracing() EngineOption {
	return func(e *Engine) {
		e.spans = observability.NewSpanManager()
		e.tracingEnabled = true
	}
}

// WithOscillationLimit sets how many identical (step, error kind) failures
// may recur before termination. Default: DefaultOscillationLimit.
func WithOscillationLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.oscillationLimit = n
		}
	}
}

// WithMaxSteps sets the overall step execution ceiling per invocation;
// failed routing decisions count toward it. Default: DefaultMaxSteps.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithApprovalDisabled turns off human-approval checkpoints. The engine
// auto-approves candidate results with no feedback entry.
func WithApprovalDisabled() EngineOption {
	return func(e *Engine) {
		e.approvalEnabled = false
	}
}

// NewEngine creates an engine over the supervisor router and spoke steps.
//
// Panics if router is nil, a step name is empty or duplicated, or a step is
// named End or StepSupervisor (the hub is the router, not a spoke).
func NewEngine(router Router, steps []Step, opts ...EngineOption) *Engine {
	if router == nil {
		panic("tripflow: router cannot be nil")
	}

	e := &Engine{
		router:           router,
		steps:            make(map[string]Step, len(steps)),
		logger:           slog.Default(),
		metrics:          observability.NoopMetrics{},
		spans:            observability.NoopSpanManager{},
		oscillationLimit: DefaultOscillationLimit,
		maxSteps:         DefaultMaxSteps,
		approvalEnabled:  true,
	}

	for _, step := range steps {
		name := step.Name()
		if name == "" {
			panic("tripflow: step name cannot be empty")
		}
		if name == End || name == StepSupervisor {
			panic(fmt.Sprintf("tripflow: step name %q is reserved", name))
		}
		if _, exists := e.steps[name]; exists {
			panic(fmt.Sprintf("tripflow: duplicate step name: %s", name))
		}
		e.steps[name] = step
	}

	// The parallel marker is registered automatically when both of its
	// branches are present.
	if _, ok := e.steps[StepParallelSearch]; !ok {
		_, hasFlight := e.steps[StepFlight]
		_, hasHotel := e.steps[StepHotel]
		if hasFlight && hasHotel {
			e.steps[StepParallelSearch] = parallelSearchStep{}
		}
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run drives the workflow from the given state until termination or an
// approval checkpoint. The returned Outcome holds the state either way; on
// error it is the state at the point of failure.
func (e *Engine) Run(ctx Context, state TravelState) (Outcome, error) {
	if ctx == nil {
		return Outcome{State: state}, ErrNilContext
	}
	return e.loop(ctx, state)
}

// Resume continues a session suspended at an approval checkpoint. The
// human's decision is applied to the state (feedback appended, approval
// recorded or candidates discarded) and control returns to the supervisor.
func (e *Engine) Resume(ctx Context, state TravelState, pendingStep string, approval Approval) (Outcome, error) {
	if ctx == nil {
		return Outcome{State: state}, ErrNilContext
	}
	if pendingStep == "" {
		return Outcome{State: state}, ErrNoPendingApproval
	}

	state.ApplyApproval(pendingStep, approval.Approved, approval.Feedback)
	e.metrics.RecordApproval(ctx, pendingStep, approval.Approved)
	observability.LogApproval(e.logger, ctx.SessionID(), pendingStep, approval.Approved)

	return e.loop(ctx, state)
}

// loop is the dispatch loop: supervisor decides, spoke executes, control
// returns to the supervisor. Runs until End, suspension, or WorkflowError.
func (e *Engine) loop(ctx Context, state TravelState) (outcome Outcome, runErr error) {
	sessionID := ctx.SessionID()
	startTime := time.Now()
	observability.LogWorkflowStart(e.logger, sessionID)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if e.tracingEnabled {
		execCtx, runSpan = e.spans.StartWorkflowSpan(ctx, sessionID)
		defer func() {
			e.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	// Oscillation guard bookkeeping. Progress (any successful step) resets it.
	var (
		lastFailStep string
		lastFailKind ErrorKind
		repeats      int
	)
	executed := 0

	defer func() {
		duration := time.Since(startTime)
		e.metrics.RecordWorkflowRun(ctx, runErr == nil, duration)
		if runErr != nil {
			observability.LogWorkflowError(e.logger, sessionID, runErr, float64(duration.Milliseconds()))
		} else {
			observability.LogWorkflowComplete(e.logger, sessionID, string(outcome.Status), float64(duration.Milliseconds()), executed)
		}
	}()

	for {
		if executed >= e.maxSteps {
			return Outcome{State: state}, &WorkflowError{
				Step:    lastFailStep,
				Kind:    lastFailKind,
				Repeats: repeats,
				Err:     ErrOscillation,
			}
		}

		select {
		case <-ctx.Done():
			return Outcome{State: state}, ctx.Err()
		default:
		}

		// Hub: the supervisor emits exactly one routing decision.
		var (
			decision Decision
			decErr   error
		)
		state, decision, decErr = e.router.Decide(stepContext(ctx, StepSupervisor), state)
		if decErr != nil {
			// A failed decision counts toward maxSteps so a router that
			// keeps failing with alternating error kinds cannot loop past
			// the oscillation guard unbounded.
			executed++
			state.RecordFailure(StepSupervisor, decErr)
			if term, wfErr := e.trackFailure(&lastFailStep, &lastFailKind, &repeats, StepSupervisor, decErr); term {
				return Outcome{State: state}, wfErr
			}
			continue
		}

		if decision.Next == End {
			return Outcome{State: state, Status: StatusCompleted}, nil
		}

		step, known := e.steps[decision.Next]
		if !known {
			decErr = fmt.Errorf("%w: %q", ErrUnroutable, decision.Next)
			executed++
			state.RecordFailure(StepSupervisor, decErr)
			if term, wfErr := e.trackFailure(&lastFailStep, &lastFailKind, &repeats, StepSupervisor, decErr); term {
				return Outcome{State: state}, wfErr
			}
			continue
		}

		observability.LogStepStart(e.logger, step.Name())

		stepTracingCtx := execCtx
		var stepSpan trace.Span
		if e.tracingEnabled {
			stepTracingCtx, stepSpan = e.spans.StartStepSpan(execCtx, step.Name())
		}

		prevErr := state.Err
		stepStart := time.Now()

		var stepErr error
		if step.Name() == StepParallelSearch {
			state, stepErr = e.runParallelSearch(ctx, state)
		} else {
			state, stepErr = e.executeStep(ctx, step, state)
		}
		executed++

		stepDuration := time.Since(stepStart)
		e.metrics.RecordStepExecution(stepTracingCtx, step.Name(), stepDuration, stepErr)
		if e.tracingEnabled {
			e.spans.EndSpanWithError(stepSpan, stepErr)
		}

		if stepErr != nil {
			// Step failures are caught here, recorded on the state, and
			// routed back to the supervisor; they never surface past the
			// engine.
			observability.LogStepError(e.logger, step.Name(), stepErr)
			state.RecordFailure(step.Name(), stepErr)
			if term, wfErr := e.trackFailure(&lastFailStep, &lastFailKind, &repeats, step.Name(), stepErr); term {
				return Outcome{State: state}, wfErr
			}
			continue
		}

		observability.LogStepComplete(e.logger, step.Name(), float64(stepDuration.Milliseconds()))

		// The step succeeded: clear a pre-existing error unless the step
		// recorded a fresh one (parallel search with a failed branch).
		if state.Err == prevErr {
			state.ClearError()
		}
		lastFailStep, lastFailKind, repeats = "", "", 0

		if pending := e.pendingApproval(&state, step.Name()); pending != "" {
			if !e.approvalEnabled {
				state.ApplyApproval(pending, true, "")
				continue
			}
			observability.LogApprovalRequested(e.logger, sessionID, pending)
			return Outcome{State: state, Status: StatusAwaitingApproval, PendingStep: pending}, nil
		}
	}
}

// trackFailure updates the oscillation counter. Returns true with the
// terminal error when the identical (step, kind) pair exceeded the limit.
func (e *Engine) trackFailure(lastStep *string, lastKind *ErrorKind, repeats *int, step string, err error) (bool, error) {
	kind := KindOf(err)
	if *lastStep == step && *lastKind == kind {
		*repeats++
	} else {
		*lastStep, *lastKind, *repeats = step, kind, 1
	}

	if *repeats > e.oscillationLimit {
		cause := ErrOscillation
		if errors.Is(err, ErrUnroutable) {
			cause = ErrUnroutable
		}
		return true, &WorkflowError{
			Step:    step,
			Kind:    kind,
			Repeats: *repeats,
			Err:     cause,
		}
	}
	return false, nil
}

// executeStep runs a single spoke step with panic recovery.
func (e *Engine) executeStep(ctx Context, step Step, state TravelState) (result TravelState, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = state
			err = fmt.Errorf("step %s panicked: %v\n%s", step.Name(), r, debug.Stack())
		}
	}()

	return step.Run(stepContext(ctx, step.Name()), state)
}

// pendingApproval returns the checkpoint name when the just-executed step
// produced candidate results that still lack a human sign-off.
func (e *Engine) pendingApproval(state *TravelState, step string) string {
	switch step {
	case StepFlight:
		if len(state.FlightOptions) > 0 && !state.Approved(StepFlight) {
			return StepFlight
		}
	case StepHotel:
		if len(state.HotelOptions) > 0 && !state.Approved(StepHotel) {
			return StepHotel
		}
	case StepParallelSearch:
		if (len(state.FlightOptions) > 0 && !state.Approved(StepFlight)) ||
			(len(state.HotelOptions) > 0 && !state.Approved(StepHotel)) {
			return StepParallelSearch
		}
	case StepItinerary:
		if state.Itinerary != nil && !state.Itinerary.HumanApproved {
			return StepItinerary
		}
	}
	return ""
}
