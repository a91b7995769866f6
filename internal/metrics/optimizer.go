package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OptimizerMetrics is the Prometheus implementation for orchestrator
// metrics.
type OptimizerMetrics struct {
	passesTotal      *prometheus.CounterVec
	passDuration     *prometheus.HistogramVec
	analysisRebuilds *prometheus.CounterVec
	groupIterations  prometheus.Histogram
}

// NewOptimizerMetrics creates a Prometheus-backed OptimizerMetrics
// instance. Returns nil if metrics are not enabled.
func NewOptimizerMetrics() *OptimizerMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &OptimizerMetrics{
		passesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jitcore_optimizer_passes_total",
				Help: "Total number of optimization passes dispatched, by name and outcome",
			},
			[]string{"opt_name", "outcome"},
		),
		passDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jitcore_optimizer_pass_duration_seconds",
				Help:    "Time spent inside performOptimization, by pass name",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"opt_name"},
		),
		analysisRebuilds: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jitcore_optimizer_analysis_rebuilds_total",
				Help: "Total number of analysis cache rebuilds, by analysis kind",
			},
			[]string{"analysis"},
		),
		groupIterations: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jitcore_optimizer_group_iterations",
				Help:    "Number of re-entry iterations a group ran before stabilizing",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),
	}
}

// RecordPass records a dispatched pass outcome.
func (m *OptimizerMetrics) RecordPass(optName, outcome string) {
	if m == nil {
		return
	}
	m.passesTotal.WithLabelValues(optName, outcome).Inc()
}

// ObservePassDuration records how long a pass ran.
func (m *OptimizerMetrics) ObservePassDuration(optName string, d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(optName).Observe(d.Seconds())
}

// RecordAnalysisRebuild records an analysis cache rebuild.
func (m *OptimizerMetrics) RecordAnalysisRebuild(analysis string) {
	if m == nil {
		return
	}
	m.analysisRebuilds.WithLabelValues(analysis).Inc()
}

// ObserveGroupIterations records how many re-entry iterations a group ran.
func (m *OptimizerMetrics) ObserveGroupIterations(iterations int) {
	if m == nil {
		return
	}
	m.groupIterations.Observe(float64(iterations))
}
