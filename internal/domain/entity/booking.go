package entity

import (
	"time"

	"github.com/destiin/travel-booking/internal/domain/status"
)

// Hotel is the hotel snapshot stored on a booking
type Hotel struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
}

// Contact is the booking holder's contact details
type Contact struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Guest is one named occupant
type Guest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Type      string `json:"type,omitempty"`
}

// BookedRoom is the room snapshot the supplier confirmed
type BookedRoom struct {
	RoomID   string  `json:"room_id,omitempty"`
	RateID   string  `json:"room_rate_id,omitempty"`
	RoomName string  `json:"room_name,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Tax      float64 `json:"tax,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
}

// PriceComparison is the informational competitor price check of a booking
type PriceComparison struct {
	Status      string     `json:"status"`
	LowestSite  string     `json:"lowest_site,omitempty"`
	LowestPrice float64    `json:"lowest_price,omitempty"`
	CheckedAt   *time.Time `json:"checked_at,omitempty"`
}

// HotelBooking is the materialized supplier reservation, tied 1:1 to a request
// through ClientReference
type HotelBooking struct {
	ID                 int64                `json:"id"`
	ClientReference    string               `json:"client_reference"`
	ExternalBookingID  string               `json:"booking_id"`
	ConfirmationNumber string               `json:"confirmation_number"`
	EmployeeID         string               `json:"employee_id"`
	Company            string               `json:"company"`
	AgentID            string               `json:"agent_id"`
	Hotel              Hotel                `json:"hotel"`
	CheckIn            time.Time            `json:"check_in"`
	CheckOut           time.Time            `json:"check_out"`
	RoomCount          int                  `json:"room_count"`
	AdultCount         int                  `json:"adult_count"`
	ChildCount         int                  `json:"child_count"`
	TotalPrice         float64              `json:"total_price"`
	Tax                float64              `json:"tax"`
	Currency           string               `json:"currency"`
	Contact            Contact              `json:"contact"`
	Guests             []Guest              `json:"guests"`
	Rooms              []BookedRoom         `json:"rooms"`
	CancellationPolicy string               `json:"cancellation_policy"`
	BookingStatus      status.BookingStatus `json:"booking_status"`
	PaymentStatus      status.PaymentStatus `json:"payment_status"`
	PriceComparison    PriceComparison      `json:"price_comparison"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// Payment is one monetary transaction for a booking
type Payment struct {
	ID            string               `json:"id"`
	BookingID     *int64               `json:"booking_id,omitempty"`
	RequestID     string               `json:"request_booking_id"`
	Amount        float64              `json:"amount"`
	Tax           float64              `json:"tax"`
	Currency      string               `json:"currency"`
	TransactionID string               `json:"transaction_id"`
	PaymentStatus status.PaymentStatus `json:"payment_status"`
	RefundStatus  status.RefundStatus  `json:"refund_status"`
	PaymentURL    string               `json:"payment_url,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// IsLinked reports whether the payment already belongs to a booking
func (p *Payment) IsLinked() bool {
	return p.BookingID != nil
}

// ChargeAmount is the amount collected from the payer including tax
func (p *Payment) ChargeAmount() float64 {
	return p.Amount + p.Tax
}
