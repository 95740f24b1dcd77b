package status

// RoomStatus is the status of a single room rate line inside a hotel option
type RoomStatus string

const (
	RoomPending            RoomStatus = "pending"
	RoomSentForApproval    RoomStatus = "sent_for_approval"
	RoomWaitingForApproval RoomStatus = "waiting_for_approval"
	RoomApproved           RoomStatus = "approved"
	RoomDeclined           RoomStatus = "declined"
	RoomBookingSuccess     RoomStatus = "booking_success"
	RoomBookingFailure     RoomStatus = "booking_failure"
	RoomBookingUnavailable RoomStatus = "booking_unavailable"
	RoomPaymentPending     RoomStatus = "payment_pending"
	RoomPaymentSuccess     RoomStatus = "payment_success"
	RoomPaymentFailure     RoomStatus = "payment_failure"
	RoomPaymentCancel      RoomStatus = "payment_cancel"
)

var validRoomStatuses = map[RoomStatus]bool{
	RoomPending:            true,
	RoomSentForApproval:    true,
	RoomWaitingForApproval: true,
	RoomApproved:           true,
	RoomDeclined:           true,
	RoomBookingSuccess:     true,
	RoomBookingFailure:     true,
	RoomBookingUnavailable: true,
	RoomPaymentPending:     true,
	RoomPaymentSuccess:     true,
	RoomPaymentFailure:     true,
	RoomPaymentCancel:      true,
}

// Rooms past approval belong to a booking and may no longer be re-selected
var lockedRoomStatuses = map[RoomStatus]bool{
	RoomPaymentPending: true,
	RoomPaymentSuccess: true,
	RoomBookingSuccess: true,
}

// rejectedRoomStatuses are the statuses that, when every room carries one,
// cancel the whole request
var rejectedRoomStatuses = map[RoomStatus]bool{
	RoomDeclined:           true,
	RoomBookingFailure:     true,
	RoomBookingUnavailable: true,
}

// String returns the string representation of the status
func (s RoomStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known room status
func (s RoomStatus) IsValid() bool {
	return validRoomStatuses[s]
}

// IsLocked returns true if the room is already part of a booking or payment
func (s RoomStatus) IsLocked() bool {
	return lockedRoomStatuses[s]
}

// IsRejected returns true for declined and failed rooms
func (s RoomStatus) IsRejected() bool {
	return rejectedRoomStatuses[s]
}
