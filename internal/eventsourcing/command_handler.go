package eventsourcing

import (
	"context"
	"encoding/json"
)

// Serializer turns a DomainEvent into its stored JSON payload. Concrete
// aggregate packages pass json.Marshal in practice; it is parameterized
// here only to keep the handler from importing encoding/json concerns
// the caller doesn't need.
type Serializer func(DomainEvent) ([]byte, error)

// EventStore is the port Handler depends on, satisfied by *Store[A].
// Handler is written against this interface, not the concrete store, so
// it can be exercised in tests against a hand-rolled fake.
type EventStore[A Aggregate] interface {
	AppendEvents(ctx context.Context, aggregateID string, expectedVersion int64, envelopes []Envelope, publishToOutbox bool) (int64, error)
	LoadAggregate(ctx context.Context, aggregateID string) (A, error)
	AggregateExists(ctx context.Context, aggregateID string) (bool, error)
}

// Handler is the command-handling orchestration layer: load-or-synthesize
// an aggregate, run the command against it, wrap the resulting events in
// envelopes, and append them atomically.
type Handler[A Aggregate] struct {
	store     EventStore[A]
	newFn     func() A
	serialize Serializer
}

// NewHandler builds a Handler bound to one aggregate type's EventStore.
func NewHandler[A Aggregate](store EventStore[A], newFn func() A, serialize Serializer) *Handler[A] {
	if serialize == nil {
		serialize = json.Marshal
	}
	return &Handler[A]{store: store, newFn: newFn, serialize: serialize}
}

// Handle loads the target aggregate (or starts from zero for a birth
// command), calls HandleCommand, and appends whatever events it
// returns. A non-birth command against an aggregate with no recorded
// history returns AggregateNotFound without calling HandleCommand at
// all, so a missing aggregate can never be mistaken for a fresh one. An
// empty event slice is a legitimate no-op: the handler returns the
// aggregate's current version unchanged, without writing anything.
func (h *Handler[A]) Handle(ctx context.Context, aggregateID string, correlationID, causationID, userID string, cmd Command) (int64, error) {
	exists, err := h.store.AggregateExists(ctx, aggregateID)
	if err != nil {
		return 0, err
	}

	var agg A
	var expectedVersion int64
	if exists {
		agg, err = h.store.LoadAggregate(ctx, aggregateID)
		if err != nil {
			return 0, err
		}
		expectedVersion = agg.Version()
	} else {
		if !cmd.IsBirthCommand() {
			return 0, &AggregateNotFound{AggregateID: aggregateID}
		}
		agg = h.newFn()
		expectedVersion = 0
	}

	events, err := agg.HandleCommand(cmd)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return expectedVersion, nil
	}

	envelopes := make([]Envelope, len(events))
	for i, evt := range events {
		payload, err := h.serialize(evt)
		if err != nil {
			return 0, &DeserializationError{EventType: evt.EventType(), Err: err}
		}
		env := NewEnvelope(aggregateID, evt.EventType(), payload, correlationID, causationID, userID)
		envelopes[i] = env
	}

	return h.store.AppendEvents(ctx, aggregateID, expectedVersion, envelopes, true)
}
