// Package ports defines the interfaces that form the contract between the
// evaluation engines and the surrounding collaborators that own storage,
// transport, and observability.
// These interfaces enable dependency inversion and keep the engines free of
// I/O: all loading and persisting happens on the collaborator's side of the
// boundary.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-merit/internal/domain"
)

// SnapshotSource loads the immutable rating snapshot for one
// (cycle, evaluee) pair. Implementations typically read the cycle,
// assignment, rating, and open-alert rows inside a single transaction so the
// aggregation engine never observes a partially-submitted set.
type SnapshotSource interface {
	// Snapshot returns the current evaluation state for the given evaluee
	// within the given cycle.
	Snapshot(ctx context.Context, cycleID, evalueeID uuid.UUID) (domain.EvalueeSnapshot, error)
}

// ResultSink persists aggregation output.
// Implementations must upsert on (cycle, evaluee) so idempotent
// recomputation does not accumulate duplicate rows.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.EvaluationResult) error
}

// AlertSink receives fairness alerts raised during aggregation.
// The aggregation engine has already de-duplicated against unresolved
// alerts; implementations only need to persist or publish what they receive.
type AlertSink interface {
	PublishAlert(ctx context.Context, alert domain.FairnessMetric) error
}

// InsightsGenerator produces optional narrative analysis for an aggregated
// result. Generation happens outside the pure aggregation path, so
// implementations are free to call external services.
type InsightsGenerator interface {
	// GenerateInsights returns an analysis payload for the result, keyed
	// the way it should be stored on EvaluationResult.Insights.
	GenerateInsights(ctx context.Context, result domain.EvaluationResult) (map[string]any, error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like alerts emitted, transition
	// rejections, awards recorded, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like completion percentage.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like final scores or
	// variance values.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
