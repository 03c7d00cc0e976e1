package eventsourcing

import "fmt"

// Aggregate is the generic command->events, event->state-fold contract.
// Concrete aggregates (order.Aggregate, customer.Aggregate) implement it
// over their own closed event/command sum types.
type Aggregate interface {
	// ApplyFirstEvent constructs the aggregate's identity and initial
	// state from its birth event. It must fail with *NotInitialized if
	// the envelope does not carry a valid birth event for this
	// aggregate type.
	ApplyFirstEvent(env Envelope) error

	// ApplyEvent folds one subsequent event into state. It must be a
	// deterministic, pure function of the envelope and prior state, and
	// must advance Version() by exactly one.
	ApplyEvent(env Envelope) error

	// HandleCommand validates business rules against the current state
	// and returns the events that result, without mutating state. An
	// empty slice is a legitimate no-op result.
	HandleCommand(cmd Command) ([]DomainEvent, error)

	AggregateID() string
	Version() int64
}

// LoadFromEvents is the canonical reconstruction: apply the first
// envelope, fold the rest, and verify the resulting version matches the
// last envelope's sequence number exactly (the sequence number is
// authoritative, not merely a count of applied events). newFn supplies a
// fresh zero-value aggregate for ApplyFirstEvent to populate.
func LoadFromEvents[A Aggregate](newFn func() A, envelopes []Envelope) (A, error) {
	var zero A
	if len(envelopes) == 0 {
		return zero, fmt.Errorf("eventsourcing: cannot load an aggregate from zero events")
	}

	agg := newFn()
	if err := agg.ApplyFirstEvent(envelopes[0]); err != nil {
		return zero, err
	}

	for _, env := range envelopes[1:] {
		if err := agg.ApplyEvent(env); err != nil {
			return zero, err
		}
	}

	last := envelopes[len(envelopes)-1]
	if agg.Version() != last.SequenceNumber {
		return zero, fmt.Errorf(
			"eventsourcing: aggregate %q version %d does not match last applied sequence number %d",
			agg.AggregateID(), agg.Version(), last.SequenceNumber,
		)
	}

	return agg, nil
}
