package eventsourcing

import "fmt"

// ConcurrencyConflict is returned by AppendEvents when the caller's
// expected_version does not match the aggregate's current sequence, or
// when two concurrent appends collide at commit time.
type ConcurrencyConflict struct {
	AggregateID string
	Expected    int64
	Actual      int64
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("concurrency conflict on aggregate %q: expected version %d, actual %d",
		e.AggregateID, e.Expected, e.Actual)
}

// AggregateNotFound is returned by the command handler for a non-birth
// command against an aggregate with no recorded history.
type AggregateNotFound struct {
	AggregateID string
}

func (e *AggregateNotFound) Error() string {
	return fmt.Sprintf("aggregate %q not found", e.AggregateID)
}

// ValidationError wraps a business-rule violation raised by
// Aggregate.HandleCommand. No events are written when this is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotInitialized is raised by Aggregate.ApplyFirstEvent when handed an
// event that is not a valid birth event for that aggregate type. It
// signals an internal bug, not a recoverable condition.
type NotInitialized struct {
	AggregateID string
	EventType   string
}

func (e *NotInitialized) Error() string {
	return fmt.Sprintf("aggregate %q: %q is not a valid birth event", e.AggregateID, e.EventType)
}

// DeserializationError wraps a failure to decode stored event_data back
// into a DomainEvent.
type DeserializationError struct {
	EventType string
	Err       error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserializing event %q: %v", e.EventType, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// StorageError wraps an underlying database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
