package customer

import (
	"encoding/json"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/eventsourcing"
)

// Aggregate is the Customer write-model.
type Aggregate struct {
	id      string
	version int64
	contact ContactInfo
	status  Status
}

func New() *Aggregate { return &Aggregate{} }

func (a *Aggregate) AggregateID() string { return a.id }
func (a *Aggregate) Version() int64      { return a.version }
func (a *Aggregate) Status() Status      { return a.status }

// ApplyFirstEvent adopts the birth event's CustomerID as this
// aggregate's identity. The source generated a fresh id here instead
// and left a "will be overridden" comment with no override path — an
// acknowledged bug (see DESIGN.md); the fix is to trust the event.
func (a *Aggregate) ApplyFirstEvent(env eventsourcing.Envelope) error {
	if env.EventType != "CustomerRegistered" {
		return &eventsourcing.NotInitialized{AggregateID: env.AggregateID, EventType: env.EventType}
	}
	var evt Registered
	if err := json.Unmarshal(env.EventData, &evt); err != nil {
		return &eventsourcing.DeserializationError{EventType: env.EventType, Err: err}
	}
	a.id = evt.CustomerID
	a.contact = evt.Contact
	a.status = StatusActive
	a.version = env.SequenceNumber
	return nil
}

func (a *Aggregate) ApplyEvent(env eventsourcing.Envelope) error {
	switch env.EventType {
	case "CustomerContactUpdated":
		var evt ContactUpdated
		if err := json.Unmarshal(env.EventData, &evt); err != nil {
			return &eventsourcing.DeserializationError{EventType: env.EventType, Err: err}
		}
		a.contact = evt.Contact
	case "CustomerSuspended":
		a.status = StatusSuspended
	case "CustomerReinstated":
		a.status = StatusActive
	case "CustomerDeactivated":
		a.status = StatusDeactivated
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
	if _, ok := cmd.(RegisterCustomer); !ok && a.id == "" {
		return nil, &eventsourcing.AggregateNotFound{AggregateID: a.id}
	}

	switch c := cmd.(type) {
	case RegisterCustomer:
		if c.CustomerID == "" {
			return nil, &MissingCustomerID{}
		}
		return []eventsourcing.DomainEvent{Registered{CustomerID: c.CustomerID, Contact: c.Contact}}, nil

	case UpdateContact:
		if a.status == StatusDeactivated {
			return nil, &AlreadyDeactivated{CustomerID: a.id}
		}
		if a.status == StatusSuspended {
			return nil, &NotActive{CustomerID: a.id, Status: a.status}
		}
		return []eventsourcing.DomainEvent{ContactUpdated{Contact: c.Contact}}, nil

	case SuspendCustomer:
		if a.status == StatusDeactivated {
			return nil, &AlreadyDeactivated{CustomerID: a.id}
		}
		if a.status == StatusSuspended {
			return nil, nil
		}
		return []eventsourcing.DomainEvent{Suspended{Reason: c.Reason}}, nil

	case ReinstateCustomer:
		if a.status == StatusDeactivated {
			return nil, &AlreadyDeactivated{CustomerID: a.id}
		}
		if a.status != StatusSuspended {
			return nil, nil
		}
		return []eventsourcing.DomainEvent{Reinstated{}}, nil

	case DeactivateCustomer:
		if a.status == StatusDeactivated {
			return nil, nil
		}
		return []eventsourcing.DomainEvent{Deactivated{Reason: c.Reason}}, nil
	}
	return nil, nil
}
