package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DispatcherMetrics is the Prometheus implementation for signal dispatcher
// metrics.
type DispatcherMetrics struct {
	syncDispatches     *prometheus.CounterVec
	asyncSignals       *prometheus.CounterVec
	reporterQueueDepth prometheus.Gauge
	handlersRegistered *prometheus.GaugeVec
}

// NewDispatcherMetrics creates a Prometheus-backed DispatcherMetrics
// instance. Returns nil if metrics are not enabled.
func NewDispatcherMetrics() *DispatcherMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &DispatcherMetrics{
		syncDispatches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jitcore_dispatcher_sync_dispatches_total",
				Help: "Total number of synchronous protected-call dispatches, by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		asyncSignals: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jitcore_dispatcher_async_signals_total",
				Help: "Total number of asynchronous signals delivered, by signal name",
			},
			[]string{"signal"},
		),
		reporterQueueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "jitcore_dispatcher_reporter_queue_depth",
				Help: "Depth of the reporter thread's pending-report queue, sampled each wakeup",
			},
		),
		handlersRegistered: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jitcore_dispatcher_handlers_registered",
				Help: "Number of handler records currently registered, by kind (sync/async)",
			},
			[]string{"kind"},
		),
	}
}

// RecordSyncDispatch records a synchronous protected-call outcome.
func (m *DispatcherMetrics) RecordSyncDispatch(category, outcome string) {
	if m == nil {
		return
	}
	m.syncDispatches.WithLabelValues(category, outcome).Inc()
}

// RecordAsyncSignal records delivery of an asynchronous signal.
func (m *DispatcherMetrics) RecordAsyncSignal(signal string) {
	if m == nil {
		return
	}
	m.asyncSignals.WithLabelValues(signal).Inc()
}

// SetReporterQueueDepth samples the reporter thread's current queue depth.
func (m *DispatcherMetrics) SetReporterQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.reporterQueueDepth.Set(float64(depth))
}

// SetHandlersRegistered sets the registered-handler gauge for the given
// kind ("sync" or "async").
func (m *DispatcherMetrics) SetHandlersRegistered(kind string, count int) {
	if m == nil {
		return
	}
	m.handlersRegistered.WithLabelValues(kind).Set(float64(count))
}
