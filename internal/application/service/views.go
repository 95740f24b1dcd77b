package service

import (
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/status"
)

// RequestView is the denormalized request returned to callers
type RequestView struct {
	RequestID       string               `json:"request_booking_id"`
	EmployeeID      string               `json:"employee_id"`
	EmployeeName    string               `json:"employee_name,omitempty"`
	EmployeeEmail   string               `json:"employee_email,omitempty"`
	Company         string               `json:"company,omitempty"`
	AgentID         string               `json:"agent_id,omitempty"`
	AgentEmail      string               `json:"agent_email,omitempty"`
	CheckIn         string               `json:"check_in"`
	CheckOut        string               `json:"check_out"`
	Destination     string               `json:"destination,omitempty"`
	DestinationCode string               `json:"destination_code,omitempty"`
	AdultCount      int                  `json:"adult_count"`
	ChildCount      int                  `json:"child_count"`
	RoomCount       int                  `json:"room_count"`
	Currency        string               `json:"currency"`
	Budget          float64              `json:"budget,omitempty"`
	Status          status.RequestStatus `json:"request_status"`
	StatusCode      int                  `json:"status_code"`
	Hotels          []HotelView          `json:"hotels"`
}

// HotelView is one hotel option with the rooms visible for the request status
type HotelView struct {
	HotelID            string         `json:"hotel_id"`
	HotelName          string         `json:"hotel_name"`
	Supplier           string         `json:"supplier,omitempty"`
	CancellationPolicy string         `json:"cancellation_policy,omitempty"`
	MealPlan           string         `json:"meal_plan,omitempty"`
	Latitude           float64        `json:"latitude,omitempty"`
	Longitude          float64        `json:"longitude,omitempty"`
	Images             []string       `json:"images,omitempty"`
	Rooms              []*entity.Room `json:"rooms"`
}

// newRequestView builds the view. When the request status has a room filter
// only rooms in the matching status are shown.
func newRequestView(req *entity.Request) *RequestView {
	v := &RequestView{
		RequestID:       req.ID,
		EmployeeID:      req.EmployeeID,
		EmployeeName:    req.EmployeeName,
		EmployeeEmail:   req.EmployeeEmail,
		Company:         req.Company,
		AgentID:         req.AgentID,
		AgentEmail:      req.AgentEmail,
		CheckIn:         req.CheckIn.Format(entity.DateLayout),
		CheckOut:        req.CheckOut.Format(entity.DateLayout),
		Destination:     req.Destination,
		DestinationCode: req.DestinationCode,
		AdultCount:      req.AdultCount,
		ChildCount:      req.ChildCount,
		RoomCount:       req.RoomCount,
		Currency:        req.Currency,
		Budget:          req.Budget,
		Status:          req.Status,
		StatusCode:      req.Status.Code(),
		Hotels:          make([]HotelView, 0, len(req.Hotels)),
	}

	filter, filtered := req.Status.RoomFilter()
	for _, h := range req.Hotels {
		hv := HotelView{
			HotelID:            h.HotelID,
			HotelName:          h.HotelName,
			Supplier:           h.Supplier,
			CancellationPolicy: h.CancellationPolicy,
			MealPlan:           h.MealPlan,
			Latitude:           h.Latitude,
			Longitude:          h.Longitude,
			Images:             h.Images,
			Rooms:              make([]*entity.Room, 0, len(h.Rooms)),
		}
		for _, room := range h.Rooms {
			if filtered && room.Status != filter {
				continue
			}
			hv.Rooms = append(hv.Rooms, room)
		}
		v.Hotels = append(v.Hotels, hv)
	}
	return v
}

// PriceComparisonView reports the competitor price check of a booking
type PriceComparisonView struct {
	Requested   bool    `json:"price_comparison_requested"`
	Status      string  `json:"price_comparison_status,omitempty"`
	LowestSite  string  `json:"lowest_competitor_site,omitempty"`
	LowestPrice float64 `json:"lowest_competitor_price,omitempty"`
}

// BookingView is the denormalized booking returned by the booking flows
type BookingView struct {
	ID                 int64                `json:"hotel_booking_id"`
	ClientReference    string               `json:"client_reference"`
	BookingID          string               `json:"booking_id"`
	ConfirmationNumber string               `json:"confirmation_number"`
	RequestStatus      status.RequestStatus `json:"request_status,omitempty"`
	Hotel              entity.Hotel         `json:"hotel"`
	CheckIn            string               `json:"check_in"`
	CheckOut           string               `json:"check_out"`
	RoomCount          int                  `json:"room_count"`
	Adults             int                  `json:"adults"`
	Children           int                  `json:"children"`
	TotalPrice         float64              `json:"total_price"`
	Tax                float64              `json:"tax"`
	Currency           string               `json:"currency"`
	Contact            entity.Contact       `json:"contact"`
	Guests             []entity.Guest       `json:"guests"`
	Rooms              []entity.BookedRoom  `json:"rooms"`
	CancellationPolicy string               `json:"cancellation_policy,omitempty"`
	BookingStatus      status.BookingStatus `json:"booking_status"`
	PaymentStatus      status.PaymentStatus `json:"payment_status"`
	PaymentIDs         []string             `json:"payment_ids"`
	Created            bool                 `json:"created"`
	PriceComparison    PriceComparisonView  `json:"price_comparison"`
	// NotificationDispatched is only set on the create path
	NotificationDispatched *bool `json:"notification_dispatched,omitempty"`
}

func newBookingView(b *entity.HotelBooking, payments []*entity.Payment) *BookingView {
	v := &BookingView{
		ID:                 b.ID,
		ClientReference:    b.ClientReference,
		BookingID:          b.ExternalBookingID,
		ConfirmationNumber: b.ConfirmationNumber,
		Hotel:              b.Hotel,
		CheckIn:            formatDay(b.CheckIn),
		CheckOut:           formatDay(b.CheckOut),
		RoomCount:          b.RoomCount,
		Adults:             b.AdultCount,
		Children:           b.ChildCount,
		TotalPrice:         b.TotalPrice,
		Tax:                b.Tax,
		Currency:           b.Currency,
		Contact:            b.Contact,
		Guests:             b.Guests,
		Rooms:              b.Rooms,
		CancellationPolicy: b.CancellationPolicy,
		BookingStatus:      b.BookingStatus,
		PaymentStatus:      b.PaymentStatus,
		PaymentIDs:         make([]string, 0, len(payments)),
		PriceComparison: PriceComparisonView{
			Status:      b.PriceComparison.Status,
			LowestSite:  b.PriceComparison.LowestSite,
			LowestPrice: b.PriceComparison.LowestPrice,
		},
	}
	for _, p := range payments {
		v.PaymentIDs = append(v.PaymentIDs, p.ID)
	}
	return v
}
