// Package eventsourcing implements the Aggregate/Command-Handler/Event-Store
// triangle: immutable event envelopes, the generic aggregate contract, a
// PostgreSQL-backed event store with an atomic outbox write, and the
// command handler that ties the two together.
package eventsourcing

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the immutable metadata-bearing wrapper around a domain
// event as stored.
type Envelope struct {
	EventID        string
	AggregateID    string
	SequenceNumber int64
	EventType      string
	EventVersion   int
	EventData      []byte
	CausationID    string
	CorrelationID  string
	UserID         string
	Timestamp      time.Time
	Metadata       map[string]string
}

// NewEnvelope builds an envelope for a freshly produced domain event. The
// sequence number is left at zero: the event store is the sole authority
// for assigning it.
func NewEnvelope(aggregateID, eventType string, eventData []byte, correlationID, causationID, userID string) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		AggregateID:   aggregateID,
		EventType:     eventType,
		EventVersion:  1,
		EventData:     eventData,
		CausationID:   causationID,
		CorrelationID: correlationID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
		Metadata:      map[string]string{},
	}
}
