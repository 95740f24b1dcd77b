package entity

import (
	"fmt"
	"time"

	"github.com/destiin/travel-booking/internal/domain/status"
)

// Request is one employee's travel ask for a date range. It owns the hotel
// options offered for that stay and their rooms.
type Request struct {
	ID              string               `json:"request_booking_id"`
	EmployeeID      string               `json:"employee_id"`
	EmployeeName    string               `json:"employee_name"`
	EmployeeEmail   string               `json:"employee_email"`
	EmployeePhone   string               `json:"employee_phone"`
	Company         string               `json:"company"`
	AgentID         string               `json:"agent_id"`
	AgentEmail      string               `json:"agent_email"`
	CheckIn         time.Time            `json:"check_in"`
	CheckOut        time.Time            `json:"check_out"`
	Destination     string               `json:"destination"`
	DestinationCode string               `json:"destination_code"`
	AdultCount      int                  `json:"adult_count"`
	ChildCount      int                  `json:"child_count"`
	RoomCount       int                  `json:"room_count"`
	Currency        string               `json:"currency"`
	Budget          float64              `json:"budget"`
	Status          status.RequestStatus `json:"request_status"`
	Hotels          []*HotelOption       `json:"hotels"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// HotelOption is one hotel's offer (cart item) attached to a request
type HotelOption struct {
	ID                 int64     `json:"id"`
	RequestID          string    `json:"request_booking_id"`
	HotelID            string    `json:"hotel_id"`
	HotelName          string    `json:"hotel_name"`
	Supplier           string    `json:"supplier"`
	CancellationPolicy string    `json:"cancellation_policy"`
	MealPlan           string    `json:"meal_plan"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Images             []string  `json:"images"`
	Rooms              []*Room   `json:"rooms"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Room is one bookable rate line inside a hotel option. RateID identifies it
// for selection; RoomID may repeat across rate options.
type Room struct {
	ID            int64             `json:"id"`
	HotelOptionID int64             `json:"hotel_option_id"`
	RoomID        string            `json:"room_id"`
	RateID        string            `json:"room_rate_id"`
	RoomName      string            `json:"room_name"`
	Price         float64           `json:"price"`
	TotalPrice    float64           `json:"total_price"`
	Tax           float64           `json:"tax"`
	Currency      string            `json:"currency"`
	Status        status.RoomStatus `json:"status"`
	Images        []string          `json:"images"`
}

// NewRequestID builds the deterministic request identity for an employee
// stay. Identical employee and dates always produce the same id.
func NewRequestID(employeeID string, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("%s_%s_%s", employeeID, checkIn.Format(DateLayout), checkOut.Format(DateLayout))
}

// RoomStatuses returns the status of every room across all hotel options
func (r *Request) RoomStatuses() []status.RoomStatus {
	var statuses []status.RoomStatus
	for _, h := range r.Hotels {
		for _, room := range h.Rooms {
			statuses = append(statuses, room.Status)
		}
	}
	return statuses
}

// Hotel returns the hotel option with the given hotel id, or nil
func (r *Request) Hotel(hotelID string) *HotelOption {
	for _, h := range r.Hotels {
		if h.HotelID == hotelID {
			return h
		}
	}
	return nil
}

// Nights returns the number of nights between check-in and check-out
func (r *Request) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// RoomByRate returns the room with the given rate id, or nil
func (h *HotelOption) RoomByRate(rateID string) *Room {
	for _, room := range h.Rooms {
		if room.RateID == rateID {
			return room
		}
	}
	return nil
}

// HasLockedRooms reports whether any room of the option is already part of a booking
func (h *HotelOption) HasLockedRooms() bool {
	for _, room := range h.Rooms {
		if room.Status.IsLocked() {
			return true
		}
	}
	return false
}

// Amount returns the price used for totals: total price when set, else base price
func (r *Room) Amount() float64 {
	if r.TotalPrice > 0 {
		return r.TotalPrice
	}
	return r.Price
}
