package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for Herald, backed by any go-utils MetricFactory.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	InteractionsTotal   gu.Counter
	InteractionLatency  gu.Histogram
	HandlerErrorsTotal  gu.Counter
	DeferredTasksActive gu.Gauge
	SyncRunsTotal       gu.Counter
	SyncCallsTotal      gu.Counter
	SyncDuration        gu.Histogram
}

// NewMetrics creates Herald metric instruments using the supplied factory,
// typically the MetricFactory of the host application's metrics stack.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		InteractionsTotal:   factory.Counter("herald_interactions_total"),
		InteractionLatency:  factory.Histogram("herald_interaction_latency_seconds"),
		HandlerErrorsTotal:  factory.Counter("herald_handler_errors_total"),
		DeferredTasksActive: factory.Gauge("herald_deferred_tasks_active"),
		SyncRunsTotal:       factory.Counter("herald_sync_runs_total"),
		SyncCallsTotal:      factory.Counter("herald_sync_calls_total"),
		SyncDuration:        factory.Histogram("herald_sync_duration_seconds"),
	}
}

// RecordInteraction records one dispatched interaction by kind and final HTTP status.
func (m *Metrics) RecordInteraction(kind string, status int, latencySeconds float64) {
	if m == nil {
		return
	}
	m.InteractionsTotal.WithLabels(map[string]string{"kind": kind, "status": statusClass(status)}).Inc()
	m.InteractionLatency.Observe(latencySeconds)
}

// RecordHandlerError counts a failed or panicking handler.
func (m *Metrics) RecordHandlerError(kind string) {
	if m == nil {
		return
	}
	m.HandlerErrorsTotal.WithLabels(map[string]string{"kind": kind}).Inc()
}

// TaskStarted and TaskFinished track deferred tasks in flight.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.DeferredTasksActive.Inc()
}

// TaskFinished decrements the in-flight deferred task gauge.
func (m *Metrics) TaskFinished() {
	if m == nil {
		return
	}
	m.DeferredTasksActive.Dec()
}

// RecordSyncCall counts one remote-mutating call by operation (create, patch, delete).
func (m *Metrics) RecordSyncCall(op string) {
	if m == nil {
		return
	}
	m.SyncCallsTotal.WithLabels(map[string]string{"op": op}).Inc()
}

// RecordSyncRun records a finished sync run.
func (m *Metrics) RecordSyncRun(result string, seconds float64) {
	if m == nil {
		return
	}
	m.SyncRunsTotal.WithLabels(map[string]string{"result": result}).Inc()
	m.SyncDuration.Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 200 && status < 300:
		return "2xx"
	default:
		return "other"
	}
}
