package event

// Type identifies the type of domain event
type Type string

const (
	// TypeApprovalRequested fires after rooms were sent to the employee for approval
	TypeApprovalRequested Type = "request.approval_requested"
	// TypeBookingMaterialized fires after a supplier callback created or updated a booking
	TypeBookingMaterialized Type = "booking.materialized"
	// TypeBookingConfirmed fires when the create entrypoint stored a confirmed booking
	TypeBookingConfirmed Type = "booking.confirmed"
	TypeBookingCancelled Type = "booking.cancelled"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApprovalRequested,
		TypeBookingMaterialized,
		TypeBookingConfirmed,
		TypeBookingCancelled:
		return true
	default:
		return false
	}
}
