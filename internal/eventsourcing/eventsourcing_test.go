package eventsourcing

import (
	"context"
	"errors"
	"testing"
)

// testEvent/testCommand/testAggregate are a minimal closed sum type used
// only to exercise the generic triangle, rather than reaching into a
// real aggregate package.

type testEvent struct {
	Type  string
	Value int
}

func (e testEvent) EventType() string { return e.Type }

type testCommand struct {
	Kind  string
	Delta int
}

func (c testCommand) CommandType() string  { return c.Kind }
func (c testCommand) IsBirthCommand() bool { return c.Kind == "Birth" }

type testAggregate struct {
	id      string
	version int64
	total   int
}

func newTestAggregate() *testAggregate { return &testAggregate{} }

func (a *testAggregate) ApplyFirstEvent(env Envelope) error {
	if env.EventType != "Born" {
		return &NotInitialized{AggregateID: env.AggregateID, EventType: env.EventType}
	}
	a.id = env.AggregateID
	a.version = env.SequenceNumber
	a.total = 0
	return nil
}

func (a *testAggregate) ApplyEvent(env Envelope) error {
	switch env.EventType {
	case "Incremented":
		a.total++
	default:
		return &NotInitialized{AggregateID: env.AggregateID, EventType: env.EventType}
	}
	a.version++
	return nil
}

func (a *testAggregate) HandleCommand(cmd Command) ([]DomainEvent, error) {
	c := cmd.(testCommand)
	switch c.Kind {
	case "Birth":
		return []DomainEvent{testEvent{Type: "Born"}}, nil
	case "Increment":
		if a.id == "" {
			return nil, &ValidationError{Reason: "aggregate has not been born yet"}
		}
		if c.Delta == 0 {
			return nil, nil
		}
		events := make([]DomainEvent, c.Delta)
		for i := range events {
			events[i] = testEvent{Type: "Incremented", Value: 1}
		}
		return events, nil
	case "Fail":
		return nil, &ValidationError{Reason: "deliberate failure"}
	}
	return nil, &ValidationError{Reason: "unknown command"}
}

func (a *testAggregate) AggregateID() string { return a.id }
func (a *testAggregate) Version() int64      { return a.version }

func envelopeAt(aggregateID, eventType string, seq int64) Envelope {
	env := NewEnvelope(aggregateID, eventType, []byte("{}"), "corr", "", "")
	env.SequenceNumber = seq
	return env
}

func TestLoadFromEvents_ReconstructsState(t *testing.T) {
	envelopes := []Envelope{
		envelopeAt("agg-1", "Born", 1),
		envelopeAt("agg-1", "Incremented", 2),
		envelopeAt("agg-1", "Incremented", 3),
	}

	agg, err := LoadFromEvents(newTestAggregate, envelopes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.Version() != 3 {
		t.Errorf("version = %d, want 3", agg.Version())
	}
	if agg.total != 2 {
		t.Errorf("total = %d, want 2", agg.total)
	}
}

func TestLoadFromEvents_EmptyHistory(t *testing.T) {
	if _, err := LoadFromEvents(newTestAggregate, nil); err == nil {
		t.Fatal("expected an error for empty history")
	}
}

func TestLoadFromEvents_VersionMismatchIsRejected(t *testing.T) {
	envelopes := []Envelope{
		envelopeAt("agg-1", "Born", 1),
		envelopeAt("agg-1", "Incremented", 5), // gap: should be 2
	}
	if _, err := LoadFromEvents(newTestAggregate, envelopes); err == nil {
		t.Fatal("expected a version-mismatch error")
	}
}

// fakeStore is a hand-rolled in-memory EventStore[*testAggregate],
// favoring a small stand-in over a mocking library.
type fakeStore struct {
	envelopesByID map[string][]Envelope
	appendErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{envelopesByID: map[string][]Envelope{}}
}

func (f *fakeStore) AppendEvents(_ context.Context, aggregateID string, expectedVersion int64, envelopes []Envelope, _ bool) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	existing := f.envelopesByID[aggregateID]
	if int64(len(existing)) != expectedVersion {
		return 0, &ConcurrencyConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: int64(len(existing))}
	}
	for i, env := range envelopes {
		env.SequenceNumber = expectedVersion + int64(i) + 1
		existing = append(existing, env)
	}
	f.envelopesByID[aggregateID] = existing
	return int64(len(existing)), nil
}

func (f *fakeStore) LoadAggregate(_ context.Context, aggregateID string) (*testAggregate, error) {
	envelopes, ok := f.envelopesByID[aggregateID]
	if !ok || len(envelopes) == 0 {
		return nil, &AggregateNotFound{AggregateID: aggregateID}
	}
	return LoadFromEvents(newTestAggregate, envelopes)
}

func (f *fakeStore) AggregateExists(_ context.Context, aggregateID string) (bool, error) {
	envelopes, ok := f.envelopesByID[aggregateID]
	return ok && len(envelopes) > 0, nil
}

func TestHandler_BirthCommandCreatesAggregate(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler[*testAggregate](store, newTestAggregate, nil)

	version, err := handler.Handle(context.Background(), "agg-1", "corr-1", "", "", testCommand{Kind: "Birth"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestHandler_NoOpCommandLeavesVersionUnchanged(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler[*testAggregate](store, newTestAggregate, nil)
	ctx := context.Background()

	if _, err := handler.Handle(ctx, "agg-1", "corr-1", "", "", testCommand{Kind: "Birth"}); err != nil {
		t.Fatalf("birth failed: %v", err)
	}

	version, err := handler.Handle(ctx, "agg-1", "corr-2", "", "", testCommand{Kind: "Increment", Delta: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1 (no-op should not advance it)", version)
	}
}

func TestHandler_ValidationErrorWritesNothing(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler[*testAggregate](store, newTestAggregate, nil)
	ctx := context.Background()

	if _, err := handler.Handle(ctx, "agg-1", "corr-1", "", "", testCommand{Kind: "Birth"}); err != nil {
		t.Fatalf("birth failed: %v", err)
	}

	_, err := handler.Handle(ctx, "agg-1", "corr-2", "", "", testCommand{Kind: "Fail"})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	agg, err := store.LoadAggregate(ctx, "agg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.Version() != 1 {
		t.Errorf("version = %d, want 1 (failed command must not append)", agg.Version())
	}
}

func TestHandler_ConcurrencyConflictPropagates(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler[*testAggregate](store, newTestAggregate, nil)
	ctx := context.Background()

	if _, err := handler.Handle(ctx, "agg-1", "corr-1", "", "", testCommand{Kind: "Birth"}); err != nil {
		t.Fatalf("birth failed: %v", err)
	}

	store.appendErr = &ConcurrencyConflict{AggregateID: "agg-1", Expected: 1, Actual: 2}
	_, err := handler.Handle(ctx, "agg-1", "corr-2", "", "", testCommand{Kind: "Increment", Delta: 1})
	var conflict *ConcurrencyConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConcurrencyConflict, got %v", err)
	}
}

func TestHandler_NonBirthCommandAgainstMissingAggregate(t *testing.T) {
	store := newFakeStore()
	handler := NewHandler[*testAggregate](store, newTestAggregate, nil)

	// Aggregate doesn't exist and Increment isn't a birth command, so
	// Handle must reject before ever synthesizing a zero-value instance
	// or calling HandleCommand.
	_, err := handler.Handle(context.Background(), "missing", "corr-1", "", "", testCommand{Kind: "Increment", Delta: 1})
	var notFound *AggregateNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *AggregateNotFound, got %v", err)
	}
	if notFound.AggregateID != "missing" {
		t.Fatalf("expected AggregateID %q, got %q", "missing", notFound.AggregateID)
	}
}
