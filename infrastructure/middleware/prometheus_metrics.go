// Package middleware provides cross-cutting concerns for the evaluation
// engines, currently operational metrics collection.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-merit/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of aggregation throughput,
// fairness alerting, and recognition activity.
type PrometheusMetrics struct {
	recomputeTotal    *prometheus.CounterVec
	alertsEmitted     *prometheus.CounterVec
	awardsRecorded    *prometheus.CounterVec
	operationCounter  *prometheus.CounterVec
	executionLatency  *prometheus.HistogramVec
	finalScores       *prometheus.HistogramVec
	completionPercent *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all required metrics in the given registerer. Passing nil registers in
// the global Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		recomputeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluation_recompute_total",
				Help: "Total number of aggregation recomputations, by outcome.",
			},
			[]string{"engine", "status"},
		),
		alertsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairness_alerts_emitted_total",
				Help: "Total number of fairness alerts raised by the aggregation engine.",
			},
			[]string{"engine", "alert_type", "alert_level"},
		),
		awardsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awards_recorded_total",
				Help: "Total number of award grants recorded against eligibility tracking.",
			},
			[]string{"engine", "award_type"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_operations_total",
				Help: "Total number of engine operations performed, by status.",
			},
			[]string{"operation", "status", "engine"},
		),
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_execution_duration_seconds",
				Help:    "Execution time of engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "engine"},
		),
		finalScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evaluation_final_score",
				Help:    "Distribution of weighted final scores on the 1-10 scale.",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"engine"},
		),
		completionPercent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "evaluation_completion_percentage",
				Help: "Latest completion percentage per evaluee and cycle period.",
			},
			[]string{"engine", "period"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, engineLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	engine := engineLabel(labels)

	switch metric {
	case "evaluation_recompute_total":
		pm.recomputeTotal.WithLabelValues(engine, statusLabel(labels)).Add(value)
	case "fairness_alerts_emitted_total":
		pm.alertsEmitted.WithLabelValues(engine, labels["alert_type"], labels["alert_level"]).Add(value)
	case "awards_recorded_total":
		pm.awardsRecorded.WithLabelValues(engine, labels["award_type"]).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, statusLabel(labels), engine).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	if metric == "evaluation_completion_percentage" {
		pm.completionPercent.WithLabelValues(engineLabel(labels), labels["period"]).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == "evaluation_final_score" {
		pm.finalScores.WithLabelValues(engineLabel(labels)).Observe(value)
		return
	}
	pm.executionLatency.WithLabelValues(metric, engineLabel(labels)).Observe(value)
}

func engineLabel(labels map[string]string) string {
	if engine, ok := labels["engine"]; ok && engine != "" {
		return engine
	}
	return "unknown"
}

func statusLabel(labels map[string]string) string {
	if status, ok := labels["status"]; ok && status != "" {
		return status
	}
	return "success"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
