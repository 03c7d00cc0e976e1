package config

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

type classifiedError struct{}

func (e *classifiedError) Error() string { return "classified error" }

func TestNewCircuitBreaker_TripsOnConsecutiveFailuresWithoutClassifier(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute, SuccessThreshold: 1}
	cb := NewCircuitBreaker("test-no-classifier", cfg)

	failing := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, failing })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker to be open after %d consecutive failures, got %s", cfg.FailureThreshold, cb.State())
	}
}

func TestNewCircuitBreaker_ClassifiedErrorsDoNotTripBreaker(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute, SuccessThreshold: 1}
	ignorable := &classifiedError{}
	cb := NewCircuitBreaker("test-classifier", cfg, func(err error) bool {
		var ce *classifiedError
		return !errors.As(err, &ce)
	})

	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, ignorable })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("expected breaker to stay closed against a classified non-failure, got %s", cb.State())
	}
}

func TestNewCircuitBreaker_UnclassifiedErrorsStillTripBreaker(t *testing.T) {
	cfg := CircuitBreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute, SuccessThreshold: 1}
	unrelated := errors.New("db connection refused")
	cb := NewCircuitBreaker("test-classifier-passthrough", cfg, func(err error) bool {
		var ce *classifiedError
		return !errors.As(err, &ce)
	})

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, unrelated })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker to open on an unrelated error despite the classifier, got %s", cb.State())
	}
}
