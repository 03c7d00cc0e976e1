package customer

// Registered is the birth event. CustomerID is the aggregate's canonical
// identity: apply_first_event must adopt it verbatim rather than minting
// its own (the source had a bug here — see DESIGN.md).
type Registered struct {
	CustomerID string      `json:"customer_id"`
	Contact    ContactInfo `json:"contact"`
}

func (Registered) EventType() string { return "CustomerRegistered" }

type ContactUpdated struct {
	Contact ContactInfo `json:"contact"`
}

func (ContactUpdated) EventType() string { return "CustomerContactUpdated" }

type Suspended struct {
	Reason string `json:"reason"`
}

func (Suspended) EventType() string { return "CustomerSuspended" }

type Reinstated struct{}

func (Reinstated) EventType() string { return "CustomerReinstated" }

type Deactivated struct {
	Reason string `json:"reason"`
}

func (Deactivated) EventType() string { return "CustomerDeactivated" }
