// Package metrics defines the gateway's Prometheus collectors (§10.5):
// sessions opened/closed by teardown reason, tool invocations by tool
// name and status, outbound queue depth, and model-stream errors by
// kind. Modeled on the teacher repository's
// runtime/metrics/prometheus/metrics.go package-level collector-vars
// shape, narrowed from its pipeline/provider/validator vocabulary to the
// gateway's own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voice_gateway"

var (
	// SessionsOpenedTotal counts every session admitted by the Gateway
	// Supervisor.
	SessionsOpenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Total number of sessions accepted by the gateway",
		},
	)

	// SessionsClosedTotal counts session teardowns, labeled by the reason
	// the session left its active set (§4.9 Failure Semantics summary).
	SessionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions torn down, by reason",
		},
		[]string{"reason"}, // client_close, model_error, session_timeout, supervisor_shutdown, queue_overflow, protocol_error
	)

	// SessionsActive is a gauge of sessions currently registered with the
	// supervisor.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently active",
		},
	)

	// ToolInvocationsTotal counts tool calls processed by the Tool
	// Invocation Coordinator, by tool name and result status.
	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations, by tool name and status",
		},
		[]string{"tool", "status"}, // status: success, error
	)

	// OutboundQueueDepth is a gauge of the most recently observed
	// outbound queue length, aggregated across active sessions (§4.4,
	// §8 "outbound queue never exceeds its cap").
	OutboundQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbound_queue_depth",
			Help:      "Aggregate outbound queue depth across active sessions",
		},
	)

	// ModelStreamErrorsTotal counts model-stream teardown causes, by
	// kind (§4.5 point 3, §4.9).
	ModelStreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_stream_errors_total",
			Help:      "Total number of model stream errors, by kind",
		},
		[]string{"kind"}, // reset, other
	)

	allCollectors = []prometheus.Collector{
		SessionsOpenedTotal,
		SessionsClosedTotal,
		SessionsActive,
		ToolInvocationsTotal,
		OutboundQueueDepth,
		ModelStreamErrorsTotal,
	}
)

// Teardown reasons recorded on SessionsClosedTotal (§4.9).
const (
	ReasonClientClose        = "client_close"
	ReasonModelError         = "model_error"
	ReasonSessionTimeout     = "session_timeout"
	ReasonSupervisorShutdown = "supervisor_shutdown"
	ReasonQueueOverflow      = "queue_overflow"
	ReasonProtocolError      = "protocol_error"
)

// Model-stream error kinds recorded on ModelStreamErrorsTotal (§4.5
// point 3).
const (
	StreamErrorReset = "reset"
	StreamErrorOther = "other"
)

// RecordSessionOpened records a newly admitted session.
func RecordSessionOpened() {
	SessionsOpenedTotal.Inc()
	SessionsActive.Inc()
}

// RecordSessionClosed records a session leaving the active set for the
// given reason.
func RecordSessionClosed(reason string) {
	SessionsClosedTotal.WithLabelValues(reason).Inc()
	SessionsActive.Dec()
}

// RecordToolInvocation records one tool call's outcome.
func RecordToolInvocation(tool, status string) {
	ToolInvocationsTotal.WithLabelValues(tool, status).Inc()
}

// RecordOutboundQueueDepth sets the current aggregate outbound queue
// depth observation.
func RecordOutboundQueueDepth(depth int) {
	OutboundQueueDepth.Set(float64(depth))
}

// RecordModelStreamError records a model-stream teardown cause.
func RecordModelStreamError(kind string) {
	ModelStreamErrorsTotal.WithLabelValues(kind).Inc()
}
