// Package tripflow provides the conversation workflow for the travel
// planning assistant: the shared travel state, the agent step contracts,
// and the engine that routes state between steps.
package tripflow

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a step failure so the supervisor can pick the right
// recovery route.
type ErrorKind string

// Error kinds.
const (
	// KindSearch covers travel-search provider failures: provider down,
	// rate limited, or no results for the query.
	KindSearch ErrorKind = "search"

	// KindInference covers language-model call failures and timeouts.
	KindInference ErrorKind = "inference"

	// KindPrecondition marks a step invoked before its dependencies were
	// satisfied. The record names the missing step so the supervisor can
	// route there instead of retrying blindly.
	KindPrecondition ErrorKind = "precondition"

	// KindWorkflow marks an unrecoverable engine failure. It is the only
	// kind that terminates a run.
	KindWorkflow ErrorKind = "workflow"

	// KindUnknown is the fallback for errors that match no other kind.
	KindUnknown ErrorKind = "unknown"
)

// Sentinel errors for engine termination.
var (
	// ErrUnroutable indicates the supervisor produced a decision naming
	// no known step.
	ErrUnroutable = errors.New("no step claims the routing decision")

	// ErrOscillation indicates the same step failed with the same error
	// kind more times than the configured limit.
	ErrOscillation = errors.New("step oscillating without progress")

	// ErrNoPendingApproval indicates Resume was called on a session that
	// is not suspended at an approval checkpoint.
	ErrNoPendingApproval = errors.New("no approval pending")

	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// SearchError reports a travel-search provider failure.
type SearchError struct {
	// QueryType is the search performed ("flight", "hotel", "destination").
	QueryType string
	// Status is the provider's status ("unavailable", "rate_limited",
	// "no_results", or an HTTP status).
	Status string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s search failed (%s): %v", e.QueryType, e.Status, e.Err)
	}
	return fmt.Sprintf("%s search failed: %s", e.QueryType, e.Status)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// InferenceError reports a language-model call failure.
type InferenceError struct {
	// Provider identifies the inference backend ("remote-api", "local-model").
	Provider string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference via %s failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// PreconditionError reports a step invoked before its inputs exist.
type PreconditionError struct {
	// Step is the step that refused to run.
	Step string
	// Missing is the step that must run first to satisfy the dependency.
	Missing string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("step %s requires %s to run first", e.Step, e.Missing)
}

// WorkflowError terminates a run. Every other error is recoverable through
// supervisor-directed retry or human intervention; this one surfaces to the
// caller as a hard failure.
type WorkflowError struct {
	// Step is the step involved in the terminal condition.
	Step string
	// Kind is the recurring error kind, for oscillation failures.
	Kind ErrorKind
	// Repeats is how many times the (step, kind) pair recurred.
	Repeats int
	// Err is the sentinel cause (ErrUnroutable or ErrOscillation).
	Err error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if errors.Is(e.Err, ErrOscillation) {
		return fmt.Sprintf("workflow terminated: step %s failed with %s errors %d times: %v",
			e.Step, e.Kind, e.Repeats, e.Err)
	}
	return fmt.Sprintf("workflow terminated at step %s: %v", e.Step, e.Err)
}

// Unwrap returns the sentinel cause for errors.Is support.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// KindOf classifies an error into an ErrorKind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return KindSearch
	}

	var infErr *InferenceError
	if errors.As(err, &infErr) {
		return KindInference
	}

	var preErr *PreconditionError
	if errors.As(err, &preErr) {
		return KindPrecondition
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return KindWorkflow
	}
	if errors.Is(err, ErrUnroutable) || errors.Is(err, ErrOscillation) {
		return KindWorkflow
	}

	return KindUnknown
}
