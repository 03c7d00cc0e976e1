package config

import (
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/metrics"
)

// CircuitBreakerConfig holds the Closed/Open/HalfOpen tuning knobs:
// consecutive failures before tripping, how long to stay open, and how
// many consecutive half-open successes re-close it.
type CircuitBreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	SuccessThreshold uint32
}

// DefaultBrokerCircuit matches the broker_circuit preset (5/30s/3).
var DefaultBrokerCircuit = CircuitBreakerConfig{
	FailureThreshold: 5,
	OpenTimeout:      30 * time.Second,
	SuccessThreshold: 3,
}

// DefaultDatabaseCircuit is the 5/60s/2 tuning used for the
// database-facing circuit breakers (event store, outbox, DLQ).
var DefaultDatabaseCircuit = CircuitBreakerConfig{
	FailureThreshold: 5,
	OpenTimeout:      60 * time.Second,
	SuccessThreshold: 2,
}

// NewCircuitBreaker creates a circuit breaker with the given name and
// tuning. The name uniquely identifies the breaker instance in logs.
//
// isFailure, if given, overrides which non-nil errors count against the
// breaker: it should return true only for errors that indicate the
// underlying dependency is unhealthy. This lets a caller exclude
// expected, normal-control-flow errors (e.g. an optimistic-concurrency
// conflict) from tripping the breaker open under ordinary contention.
// Omitted, every non-nil error counts as a failure.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, isFailure ...func(error) bool) *gobreaker.CircuitBreaker {
	var classify func(error) bool
	if len(isFailure) > 0 {
		classify = isFailure[0]
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.SuccessThreshold,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if classify == nil {
				return false
			}
			return !classify(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.CircuitStateValue(to.String()))
			metrics.CircuitBreakerTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
		},
	})
}
