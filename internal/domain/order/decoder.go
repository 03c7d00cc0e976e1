package order

import (
	"encoding/json"
	"fmt"

	"github.com/AchilleasB/baby-kliniek/identity-access-service/internal/eventsourcing"
)

// AggregateTypeName and Topic are injected into the generic event store
// at construction time (design note on generic event stores).
const (
	AggregateTypeName = "Order"
	Topic             = "order-events"
)

// DecodeEvent is this aggregate's EventDecoder: it refuses any
// event_type it doesn't recognize rather than deserializing blindly.
func DecodeEvent(eventType string, data []byte) (eventsourcing.DomainEvent, error) {
	switch eventType {
	case "OrderCreated":
		var evt Created
		return evt, json.Unmarshal(data, &evt)
	case "OrderConfirmed":
		var evt Confirmed
		return evt, json.Unmarshal(data, &evt)
	case "OrderShipped":
		var evt Shipped
		return evt, json.Unmarshal(data, &evt)
	case "OrderCancelled":
		var evt Cancelled
		return evt, json.Unmarshal(data, &evt)
	default:
		return nil, fmt.Errorf("order: unknown event type %q", eventType)
	}
}
