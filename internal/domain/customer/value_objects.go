// Package customer is the Customer aggregate, the second concrete
// instantiation of the generic eventsourcing contract.
package customer

// Status is the customer record's lifecycle state.
type Status string

const (
	StatusActive      Status = "Active"
	StatusSuspended   Status = "Suspended"
	StatusDeactivated Status = "Deactivated"
)

// ContactInfo is the customer's mutable contact details.
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}
