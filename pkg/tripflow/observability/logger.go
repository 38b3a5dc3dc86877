// Package observability provides structured logging, metrics, and tracing
// for the travel-planning workflow.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
)

// LogWorkflowStart logs the start of a workflow invocation.
func LogWorkflowStart(logger *slog.Logger, sessionID string) {
	if logger == nil {
		return
	}
	logger.Info("workflow starting",
		slog.String("session_id", sessionID),
	)
}

// LogWorkflowComplete logs a workflow invocation that ended normally,
// either completed or suspended awaiting approval.
func LogWorkflowComplete(logger *slog.Logger, sessionID, status string, durationMs float64, stepCount int) {
	if logger == nil {
		return
	}
	logger.Info("workflow finished",
		slog.String("session_id", sessionID),
		slog.String("status", status),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", stepCount),
	)
}

// LogWorkflowError logs workflow termination by error.
func LogWorkflowError(logger *slog.Logger, sessionID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("workflow failed",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, step string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("step", step),
	)
}

// LogStepComplete logs successful step completion.
func LogStepComplete(logger *slog.Logger, step string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("step", step),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs a step failure. Step failures are recoverable; the
// supervisor decides what happens next.
func LogStepError(logger *slog.Logger, step string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("step failed",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// LogApprovalRequested logs suspension at a human-approval checkpoint.
func LogApprovalRequested(logger *slog.Logger, sessionID, step string) {
	if logger == nil {
		return
	}
	logger.Info("awaiting human approval",
		slog.String("session_id", sessionID),
		slog.String("step", step),
	)
}

// LogApproval logs the human's verdict at a checkpoint.
func LogApproval(logger *slog.Logger, sessionID, step string, approved bool) {
	if logger == nil {
		return
	}
	logger.Info("human approval received",
		slog.String("session_id", sessionID),
		slog.String("step", step),
		slog.Bool("approved", approved),
	)
}

// LogCacheLookup logs a search cache hit or miss.
func LogCacheLookup(logger *slog.Logger, queryType string, hit bool) {
	if logger == nil {
		return
	}
	logger.Debug("cache lookup",
		slog.String("query_type", queryType),
		slog.Bool("hit", hit),
	)
}

// LogSnapshot logs a session snapshot save.
func LogSnapshot(logger *slog.Logger, sessionID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("session snapshot saved",
		slog.String("session_id", sessionID),
		slog.Int("size_bytes", sizeBytes),
	)
}
