// Package resilience implements the retry policy the CDC relay drives
// broker publishes with: bounded exponential backoff, with an optional
// transient/permanent classification that short-circuits retries for
// errors the caller marks as permanent.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures bounded exponential backoff.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Preset policies for the default, aggressive and conservative retry
// profiles.
var (
	DefaultPolicy = Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
	AggressivePolicy = Policy{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	ConservativePolicy = Policy{
		MaxAttempts:  2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
)

// Outcome classifies how a retried operation ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomePermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomePermanentFailure:
		return "PermanentFailure"
	default:
		return "Failed"
	}
}

// Result is the terminal outcome of a Run/RunOnTransient call.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Transient is the capability errors implement to participate in
// RunOnTransient's permanent/transient classification.
type Transient interface {
	IsTransient() bool
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // attempt counting is ours, not the library's
	b.Reset()
	return b
}

// Run calls op(attempt) starting at attempt 1, retrying on error up to
// MaxAttempts, sleeping the configured backoff between attempts.
func (p Policy) Run(ctx context.Context, op func(attempt int) error) Result {
	return p.run(ctx, op, false)
}

// RunOnTransient behaves like Run, except an error that implements
// Transient and reports IsTransient() == false short-circuits immediately
// as OutcomePermanentFailure without further attempts.
func (p Policy) RunOnTransient(ctx context.Context, op func(attempt int) error) Result {
	return p.run(ctx, op, true)
}

func (p Policy) run(ctx context.Context, op func(attempt int) error, classify bool) Result {
	b := p.backOff()
	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op(attempt)
		if err == nil {
			return Result{Outcome: OutcomeSuccess, Attempts: attempt}
		}
		lastErr = err

		if classify {
			if t, ok := err.(Transient); ok && !t.IsTransient() {
				return Result{Outcome: OutcomePermanentFailure, Attempts: attempt, Err: lastErr}
			}
		}

		if attempt >= p.MaxAttempts {
			return Result{Outcome: OutcomeFailed, Attempts: attempt, Err: lastErr}
		}

		delay := b.NextBackOff()
		select {
		case <-ctx.Done():
			return Result{Outcome: OutcomeFailed, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}
