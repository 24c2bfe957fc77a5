package transaction

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsCollector receives decision and latency observations.
type MetricsCollector interface {
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
	RecordDecision(ctx context.Context, disposition, reason string)
	RecordError(ctx context.Context, operation, kind string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoopMetricsCollector) RecordDecision(context.Context, string, string)                 {}
func (NoopMetricsCollector) RecordError(context.Context, string, string)                    {}

// Instrument names
const (
	MetricOperationDuration = "fraudguard.transaction.operation.duration"
	MetricDecisions         = "fraudguard.transaction.decisions"
	MetricErrors            = "fraudguard.transaction.errors"
)

// OtelMetricsCollector records observations on OpenTelemetry instruments.
type OtelMetricsCollector struct {
	duration  metric.Float64Histogram
	decisions metric.Int64Counter
	errors    metric.Int64Counter
}

// NewOtelMetricsCollector registers the transaction instruments on meter.
func NewOtelMetricsCollector(meter metric.Meter) (*OtelMetricsCollector, error) {
	duration, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("Duration of transaction service operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	decisions, err := meter.Int64Counter(MetricDecisions,
		metric.WithDescription("Risk decisions applied to recorded transactions"))
	if err != nil {
		return nil, fmt.Errorf("create decisions counter: %w", err)
	}

	errs, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Failed transaction service operations by error kind"))
	if err != nil {
		return nil, fmt.Errorf("create errors counter: %w", err)
	}

	return &OtelMetricsCollector{duration: duration, decisions: decisions, errors: errs}, nil
}

func (m *OtelMetricsCollector) RecordOperationDuration(ctx context.Context, operation string, d time.Duration) {
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *OtelMetricsCollector) RecordDecision(ctx context.Context, disposition, reason string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("disposition", disposition),
		attribute.String("reason", reason),
	))
}

func (m *OtelMetricsCollector) RecordError(ctx context.Context, operation, kind string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", kind),
	))
}
