package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records workflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStepExecution records a step execution with its duration and
	// error status.
	RecordStepExecution(ctx context.Context, step string, duration time.Duration, err error)

	// RecordWorkflowRun records a workflow invocation completion.
	RecordWorkflowRun(ctx context.Context, success bool, duration time.Duration)

	// RecordApproval records a human-approval verdict.
	RecordApproval(ctx context.Context, step string, approved bool)

	// RecordCacheLookup records a search cache hit or miss.
	RecordCacheLookup(ctx context.Context, queryType string, hit bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepExecutions  metric.Int64Counter
	stepLatency     metric.Float64Histogram
	stepErrors      metric.Int64Counter
	workflowRuns    metric.Int64Counter
	workflowLatency metric.Float64Histogram
	approvals       metric.Int64Counter
	cacheLookups    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("tripflow")

	stepExecutions, err := meter.Int64Counter("tripflow.step.executions",
		metric.WithDescription("Number of step executions"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("tripflow.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("tripflow.step.errors",
		metric.WithDescription("Number of step execution errors"),
	)
	if err != nil {
		return nil, err
	}

	workflowRuns, err := meter.Int64Counter("tripflow.workflow.runs",
		metric.WithDescription("Number of workflow invocations"),
	)
	if err != nil {
		return nil, err
	}

	workflowLatency, err := meter.Float64Histogram("tripflow.workflow.latency_ms",
		metric.WithDescription("Workflow invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	approvals, err := meter.Int64Counter("tripflow.approvals",
		metric.WithDescription("Number of human-approval verdicts"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter("tripflow.cache.lookups",
		metric.WithDescription("Number of search cache lookups"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepExecutions:  stepExecutions,
		stepLatency:     stepLatency,
		stepErrors:      stepErrors,
		workflowRuns:    workflowRuns,
		workflowLatency: workflowLatency,
		approvals:       approvals,
		cacheLookups:    cacheLookups,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStepExecution records a step execution.
func (m *otelMetrics) RecordStepExecution(ctx context.Context, step string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("step", step),
	}

	m.stepExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordWorkflowRun records a workflow invocation.
func (m *otelMetrics) RecordWorkflowRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.workflowRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.workflowLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordApproval records a human-approval verdict.
func (m *otelMetrics) RecordApproval(ctx context.Context, step string, approved bool) {
	m.approvals.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("approved", approved),
	))
}

// RecordCacheLookup records a search cache lookup.
func (m *otelMetrics) RecordCacheLookup(ctx context.Context, queryType string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query_type", queryType),
		attribute.Bool("hit", hit),
	))
}
