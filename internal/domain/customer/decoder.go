package customer

import (
	"encoding/json"
	"fmt"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/eventsourcing"
)

const (
	AggregateTypeName = "Customer"
	Topic             = "customer-events"
)

func DecodeEvent(eventType string, data []byte) (eventsourcing.DomainEvent, error) {
	switch eventType {
	case "CustomerRegistered":
		var evt Registered
		return evt, json.Unmarshal(data, &evt)
	case "CustomerContactUpdated":
		var evt ContactUpdated
		return evt, json.Unmarshal(data, &evt)
	case "CustomerSuspended":
		var evt Suspended
		return evt, json.Unmarshal(data, &evt)
	case "CustomerReinstated":
		var evt Reinstated
		return evt, json.Unmarshal(data, &evt)
	case "CustomerDeactivated":
		var evt Deactivated
		return evt, json.Unmarshal(data, &evt)
	default:
		return nil, fmt.Errorf("customer: unknown event type %q", eventType)
	}
}
