// Package metrics is the process-wide Prometheus registry: every
// counter, histogram, and gauge named in the observability surface,
// registered once at package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CDCEventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdc_events_processed_total",
		Help: "Outbox CDC rows successfully published to the broker.",
	}, []string{"event_type"})

	CDCEventsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdc_events_failed_total",
		Help: "Outbox CDC rows that failed to publish, by terminal reason.",
	}, []string{"event_type", "reason"})

	CDCProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cdc_processing_duration_seconds",
		Help:    "Time spent processing one outbox CDC row, from extract to acknowledge or DLQ.",
		Buckets: []float64{0.001, 0.005, 0.010, 0.050, 0.100, 0.500, 1, 5},
	}, []string{"event_type"})

	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Attempts made by a retry policy, by operation and attempt number.",
	}, []string{"operation", "attempt"})

	RetrySuccessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_success_total",
		Help: "Retry operations that eventually succeeded.",
	}, []string{"operation"})

	RetryFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_failure_total",
		Help: "Retry operations that exhausted attempts or hit a permanent error.",
	}, []string{"operation"})

	DLQMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlq_messages_total",
		Help: "Messages written to the dead-letter queue.",
	})

	DLQMessagesByEventType = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlq_messages_by_event_type",
		Help: "Messages written to the dead-letter queue, by event type.",
	}, []string{"event_type"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current circuit breaker state: 0=Closed, 1=Open, 2=HalfOpen.",
	}, []string{"name"})

	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions.",
	}, []string{"from_state", "to_state"})

	ActorHealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "actor_health_status",
		Help: "Per-component health status: 0=Unhealthy, 1=Degraded, 2=Healthy.",
	}, []string{"component"})

	ActorMessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actor_messages_sent_total",
		Help: "Messages sent into a supervised component's inbox.",
	}, []string{"actor", "message_type"})

	ActorMessagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actor_messages_received_total",
		Help: "Messages drained from a supervised component's inbox.",
	}, []string{"actor", "message_type"})
)

// CircuitStateValue maps the three circuit breaker states onto the
// gauge encoding the dashboards expect: 0 closed, 1 open, 2 half-open.
func CircuitStateValue(stateName string) float64 {
	switch stateName {
	case "open":
		return 1
	case "half-open":
		return 2
	default:
		return 0
	}
}
