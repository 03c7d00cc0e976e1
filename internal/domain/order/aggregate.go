package order

import (
	"encoding/json"
	"time"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/eventsourcing"
)

// Aggregate is the Order write-model: identity, lifecycle status and
// line items, folded from its event history.
type Aggregate struct {
	id         string
	version    int64
	customerID string
	items      []Item
	status     Status
	tracking   string
	carrier    string
	createdAt  time.Time
}

// New returns a zero-value aggregate, used both to fold birth events and
// as the disposable instance handed to HandleCommand for a birth
// command.
func New() *Aggregate { return &Aggregate{} }

func (a *Aggregate) AggregateID() string { return a.id }
func (a *Aggregate) Version() int64      { return a.version }
func (a *Aggregate) Status() Status      { return a.status }

func (a *Aggregate) ApplyFirstEvent(env eventsourcing.Envelope) error {
	if env.EventType != "OrderCreated" {
		return &eventsourcing.NotInitialized{AggregateID: env.AggregateID, EventType: env.EventType}
	}
	var evt Created
	if err := json.Unmarshal(env.EventData, &evt); err != nil {
		return &eventsourcing.DeserializationError{EventType: env.EventType, Err: err}
	}
	a.id = evt.OrderID
	a.customerID = evt.CustomerID
	a.items = evt.Items
	a.status = StatusCreated
	a.createdAt = env.Timestamp
	a.version = env.SequenceNumber
	return nil
}

func (a *Aggregate) ApplyEvent(env eventsourcing.Envelope) error {
	switch env.EventType {
	case "OrderConfirmed":
		a.status = StatusConfirmed
	case "OrderShipped":
		var evt Shipped
		if err := json.Unmarshal(env.EventData, &evt); err != nil {
			return &eventsourcing.DeserializationError{EventType: env.EventType, Err: err}
		}
		a.status = StatusShipped
		a.tracking = evt.Tracking
		a.carrier = evt.Carrier
	case "OrderCancelled":
		a.status = StatusCancelled
	default:
		return &eventsourcing.NotInitialized{AggregateID: a.id, EventType: env.EventType}
	}
	a.version++
	return nil
}

func (a *Aggregate) HandleCommand(cmd eventsourcing.Command) ([]eventsourcing.DomainEvent, error) {
	// Handler already rejects a non-birth command against a missing
	// aggregate before it ever reaches here; this guard is a second line
	// of defense against a zero-value aggregate being handed a non-birth
	// command directly (the "" status would otherwise fall through the
	// switches below as if it were a valid lifecycle state).
	if !cmd.IsBirthCommand() && a.id == "" {
		return nil, &eventsourcing.AggregateNotFound{AggregateID: a.id}
	}

	switch c := cmd.(type) {
	case CreateOrder:
		if len(c.Items) == 0 {
			return nil, &EmptyItems{}
		}
		return []eventsourcing.DomainEvent{Created{OrderID: c.OrderID, CustomerID: c.CustomerID, Items: c.Items}}, nil

	case ConfirmOrder:
		switch a.status {
		case StatusCreated:
			return []eventsourcing.DomainEvent{Confirmed{}}, nil
		case StatusCancelled:
			return nil, &AlreadyCancelled{OrderID: a.id}
		case StatusShipped:
			return nil, &AlreadyShipped{OrderID: a.id}
		default:
			return nil, nil // already confirmed: no-op
		}

	case ShipOrder:
		if a.status != StatusConfirmed {
			return nil, &NotConfirmed{OrderID: a.id, Status: a.status}
		}
		return []eventsourcing.DomainEvent{Shipped{Tracking: c.Tracking, Carrier: c.Carrier}}, nil

	case CancelOrder:
		switch a.status {
		case StatusCancelled:
			return nil, nil // already cancelled: no-op
		case StatusShipped:
			return nil, &AlreadyShipped{OrderID: a.id}
		default:
			return []eventsourcing.DomainEvent{Cancelled{Reason: c.Reason}}, nil
		}
	}
	return nil, nil
}
