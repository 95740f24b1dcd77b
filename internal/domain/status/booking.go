package status

// BookingStatus is the supplier lifecycle status of a hotel booking
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingPending   BookingStatus = "pending"
	BookingCompleted BookingStatus = "completed"
)

// PaymentStatus is the status of one payment record
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "payment_pending"
	PaymentAwaiting PaymentStatus = "payment_awaiting"
	PaymentSuccess  PaymentStatus = "payment_success"
	PaymentFailure  PaymentStatus = "payment_failure"
	PaymentCancel   PaymentStatus = "payment_cancel"
)

// RefundStatus tracks whether a refund was requested for a payment
type RefundStatus string

const (
	RefundNone        RefundStatus = ""
	RefundInitialized RefundStatus = "initialized"
)

var validBookingStatuses = map[BookingStatus]bool{
	BookingConfirmed: true,
	BookingCancelled: true,
	BookingPending:   true,
	BookingCompleted: true,
}

var bookingToRoom = map[BookingStatus]RoomStatus{
	BookingConfirmed: RoomBookingSuccess,
	BookingCompleted: RoomBookingSuccess,
	BookingCancelled: RoomBookingFailure,
	BookingPending:   RoomPaymentPending,
}

var bookingToPayment = map[BookingStatus]PaymentStatus{
	BookingConfirmed: PaymentSuccess,
	BookingCompleted: PaymentSuccess,
	BookingCancelled: PaymentCancel,
	BookingPending:   PaymentPending,
}

// String returns the string representation of the status
func (s BookingStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the four supplier lifecycle values
func (s BookingStatus) IsValid() bool {
	return validBookingStatuses[s]
}

// RoomStatus returns the status pushed onto request rooms for this lifecycle status.
// Unknown values fall back to payment_pending.
func (s BookingStatus) RoomStatus() RoomStatus {
	if rs, ok := bookingToRoom[s]; ok {
		return rs
	}
	return RoomPaymentPending
}

// PaymentStatus returns the payment status implied by this lifecycle status
func (s BookingStatus) PaymentStatus() PaymentStatus {
	if ps, ok := bookingToPayment[s]; ok {
		return ps
	}
	return PaymentPending
}

// String returns the string representation of the status
func (s PaymentStatus) String() string {
	return string(s)
}

// IsRefundable returns true if money was captured for the payment
func (s PaymentStatus) IsRefundable() bool {
	return s == PaymentSuccess
}
