package service

import (
	"context"
	"strings"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/pkg/errs"
	"github.com/destiin/travel-booking/pkg/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	duplicateRequestMessage = "Request already exists for this employee with same checkin checkout"
)

// RoomInput is one rate line offered by an agent
type RoomInput struct {
	RoomID     string   `json:"room_id"`
	RateID     string   `json:"room_rate_id"`
	RoomName   string   `json:"room_name"`
	Price      float64  `json:"price"`
	TotalPrice float64  `json:"total_price"`
	Tax        float64  `json:"tax"`
	Currency   string   `json:"currency"`
	Images     []string `json:"images"`
}

// HotelInput is one hotel option with its rooms
type HotelInput struct {
	HotelID            string      `json:"hotel_id"`
	HotelName          string      `json:"hotel_name"`
	Supplier           string      `json:"supplier"`
	CancellationPolicy string      `json:"cancellation_policy"`
	MealPlan           string      `json:"meal_plan"`
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	Images             []string    `json:"images"`
	Rooms              []RoomInput `json:"rooms"`
}

// StoreRequestInput creates a request
type StoreRequestInput struct {
	EmployeeID      string       `json:"employee_id"`
	EmployeeName    string       `json:"employee_name"`
	EmployeeEmail   string       `json:"employee_email"`
	EmployeePhone   string       `json:"employee_phone"`
	Company         string       `json:"company"`
	CheckIn         string       `json:"check_in"`
	CheckOut        string       `json:"check_out"`
	Destination     string       `json:"destination"`
	DestinationCode string       `json:"destination_code"`
	AdultCount      int          `json:"adult_count"`
	ChildCount      int          `json:"child_count"`
	RoomCount       int          `json:"room_count"`
	Currency        string       `json:"currency"`
	Budget          float64      `json:"budget"`
	Hotels          []HotelInput `json:"hotels"`
}

// UpdateRequestInput changes an existing request. Nil fields are left as is.
type UpdateRequestInput struct {
	RequestID       string       `json:"-"`
	Destination     *string      `json:"destination"`
	DestinationCode *string      `json:"destination_code"`
	AdultCount      *int         `json:"adult_count"`
	ChildCount      *int         `json:"child_count"`
	RoomCount       *int         `json:"room_count"`
	Currency        *string      `json:"currency"`
	Budget          *float64     `json:"budget"`
	Hotels          []HotelInput `json:"hotels"`
	// RequestStatus is an administrative override of the derived status
	RequestStatus *string `json:"request_status"`
}

// ListRequestsInput filters request listings
type ListRequestsInput struct {
	EmployeeID string `form:"employee_id"`
	Company    string `form:"company"`
	AgentID    string `form:"agent_id"`
	Status     string `form:"request_status"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// RequestService manages the request aggregate
type RequestService interface {
	StoreRequest(ctx context.Context, in StoreRequestInput) *Result
	UpdateRequest(ctx context.Context, in UpdateRequestInput) *Result
	GetRequest(ctx context.Context, requestID string) *Result
	ListRequests(ctx context.Context, in ListRequestsInput) *Result
}

type requestServiceImpl struct {
	requestRepo port.RequestRepository
	assigner    port.AgentAssigner
	txManager   port.TransactionManager
	logger      Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo port.RequestRepository,
	assigner port.AgentAssigner,
	txManager port.TransactionManager,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requestRepo: requestRepo,
		assigner:    assigner,
		txManager:   txManager,
		logger:      logger,
	}
}

// StoreRequest validates and stores a new request, assigning an agent
func (s *requestServiceImpl) StoreRequest(ctx context.Context, in StoreRequestInput) *Result {
	req, err := s.buildRequest(in)
	if err != nil {
		return fail(s.logger, "store request", err)
	}

	exists, err := s.requestRepo.Exists(ctx, req.ID)
	if err != nil {
		return fail(s.logger, "store request", err)
	}
	if exists {
		return fail(s.logger, "store request", errs.Conflictf(duplicateRequestMessage))
	}

	// Assignment is best effort: a request without an agent can still be curated later
	if agent, err := s.assigner.Assign(ctx); err != nil {
		s.logger.Error("Agent assignment failed", "request_id", req.ID, "error", err)
	} else {
		req.AgentID = agent.ID
		req.AgentEmail = agent.Email
	}

	if st, ok := status.Derive(req.RoomStatuses()); ok {
		req.Status = st
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.requestRepo.Create(txCtx, req)
	})
	if errs.Is(err, errs.ErrConflict) {
		return fail(s.logger, "store request", errs.Conflictf(duplicateRequestMessage))
	}
	if err != nil {
		return fail(s.logger, "store request", err)
	}

	s.logger.Info("Request stored", "request_id", req.ID, "agent_id", req.AgentID, "hotels", len(req.Hotels))
	return succeed(newRequestView(req))
}

func (s *requestServiceImpl) buildRequest(in StoreRequestInput) (*entity.Request, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, errs.Validationf("employee_id is required")
	}
	checkIn, err := parseDay("check_in", in.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := parseDay("check_out", in.CheckOut)
	if err != nil {
		return nil, err
	}
	if !checkIn.Before(checkOut) {
		return nil, errs.Validationf("check_in must be before check_out")
	}
	if in.AdultCount < 0 || in.ChildCount < 0 || in.RoomCount < 0 {
		return nil, errs.Validationf("occupancy counts cannot be negative")
	}

	hotels, err := buildHotels(in.Hotels)
	if err != nil {
		return nil, err
	}

	if in.EmployeeEmail != "" {
		if err := utils.ValidateEmail(in.EmployeeEmail); err != nil {
			return nil, errs.Validationf("employee_email: %v", err)
		}
	}
	currency := entity.DefaultCurrency
	if in.Currency != "" {
		if currency, err = utils.NormalizeCurrency(in.Currency); err != nil {
			return nil, errs.Validationf("currency: %v", err)
		}
	}

	return &entity.Request{
		ID:              entity.NewRequestID(employeeID, checkIn, checkOut),
		EmployeeID:      employeeID,
		EmployeeName:    in.EmployeeName,
		EmployeeEmail:   in.EmployeeEmail,
		EmployeePhone:   in.EmployeePhone,
		Company:         in.Company,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Destination:     in.Destination,
		DestinationCode: in.DestinationCode,
		AdultCount:      in.AdultCount,
		ChildCount:      in.ChildCount,
		RoomCount:       in.RoomCount,
		Currency:        currency,
		Budget:          in.Budget,
		Status:          status.RequestPending,
		Hotels:          hotels,
	}, nil
}

// buildHotels converts hotel inputs. Hotel ids must be unique in the batch
// and rate ids unique within a hotel.
func buildHotels(inputs []HotelInput) ([]*entity.HotelOption, error) {
	hotels := make([]*entity.HotelOption, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, h := range inputs {
		hotelID := strings.TrimSpace(h.HotelID)
		if hotelID == "" {
			return nil, errs.Validationf("hotels[%d].hotel_id is required", i)
		}
		if seen[hotelID] {
			return nil, errs.Validationf("hotel %s is listed more than once", hotelID)
		}
		seen[hotelID] = true

		option := &entity.HotelOption{
			HotelID:            hotelID,
			HotelName:          h.HotelName,
			Supplier:           h.Supplier,
			CancellationPolicy: h.CancellationPolicy,
			MealPlan:           h.MealPlan,
			Latitude:           h.Latitude,
			Longitude:          h.Longitude,
			Images:             h.Images,
			Rooms:              make([]*entity.Room, 0, len(h.Rooms)),
		}

		rates := make(map[string]bool, len(h.Rooms))
		for j, r := range h.Rooms {
			rateID := strings.TrimSpace(r.RateID)
			if rateID == "" {
				return nil, errs.Validationf("hotels[%d].rooms[%d].room_rate_id is required", i, j)
			}
			if rates[rateID] {
				return nil, errs.Validationf("room_rate_id %s is listed more than once for hotel %s", rateID, hotelID)
			}
			rates[rateID] = true
			if r.Price < 0 || r.TotalPrice < 0 || r.Tax < 0 {
				return nil, errs.Validationf("room %s has a negative amount", rateID)
			}

			option.Rooms = append(option.Rooms, &entity.Room{
				RoomID:     r.RoomID,
				RateID:     rateID,
				RoomName:   r.RoomName,
				Price:      r.Price,
				TotalPrice: r.TotalPrice,
				Tax:        r.Tax,
				Currency:   r.Currency,
				Status:     status.RoomPending,
				Images:     r.Images,
			})
		}
		hotels = append(hotels, option)
	}
	return hotels, nil
}

// UpdateRequest applies field changes and hotel upserts, then re-derives the
// request status unless an override is given
func (s *requestServiceImpl) UpdateRequest(ctx context.Context, in UpdateRequestInput) *Result {
	if strings.TrimSpace(in.RequestID) == "" {
		return fail(s.logger, "update request", errs.Validationf("request_booking_id is required"))
	}

	var override status.RequestStatus
	if in.RequestStatus != nil {
		override = status.RequestStatus(*in.RequestStatus)
		if !override.IsValid() {
			return fail(s.logger, "update request", errs.Validationf("invalid request_status %q", *in.RequestStatus))
		}
	}
	if (in.AdultCount != nil && *in.AdultCount < 0) ||
		(in.ChildCount != nil && *in.ChildCount < 0) ||
		(in.RoomCount != nil && *in.RoomCount < 0) {
		return fail(s.logger, "update request", errs.Validationf("occupancy counts cannot be negative"))
	}

	hotels, err := buildHotels(in.Hotels)
	if err != nil {
		return fail(s.logger, "update request", err)
	}

	var updated *entity.Request
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, in.RequestID)
		if err != nil {
			return err
		}
		if req == nil {
			return errs.NotFoundf("request %s not found", in.RequestID)
		}

		for _, h := range hotels {
			if existing := req.Hotel(h.HotelID); existing != nil && existing.HasLockedRooms() {
				return errs.Conflictf("hotel %s has rooms already in a booking and cannot be replaced", h.HotelID)
			}
		}
		for _, h := range hotels {
			if err := s.requestRepo.UpsertHotelOption(txCtx, req.ID, h); err != nil {
				return err
			}
		}

		applyRequestFields(req, in)

		if len(hotels) > 0 {
			if req.Hotels, err = s.reloadHotels(txCtx, req.ID); err != nil {
				return err
			}
		}
		if override != "" {
			req.Status = override
		} else if st, ok := status.Derive(req.RoomStatuses()); ok {
			req.Status = st
		}

		if err := s.requestRepo.Update(txCtx, req); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return fail(s.logger, "update request", err)
	}

	s.logger.Info("Request updated", "request_id", updated.ID, "status", updated.Status, "hotels_upserted", len(hotels))
	return succeed(newRequestView(updated))
}

func (s *requestServiceImpl) reloadHotels(ctx context.Context, requestID string) ([]*entity.HotelOption, error) {
	fresh, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, errs.NotFoundf("request %s not found", requestID)
	}
	return fresh.Hotels, nil
}

func applyRequestFields(req *entity.Request, in UpdateRequestInput) {
	if in.Destination != nil {
		req.Destination = *in.Destination
	}
	if in.DestinationCode != nil {
		req.DestinationCode = *in.DestinationCode
	}
	if in.AdultCount != nil {
		req.AdultCount = *in.AdultCount
	}
	if in.ChildCount != nil {
		req.ChildCount = *in.ChildCount
	}
	if in.RoomCount != nil {
		req.RoomCount = *in.RoomCount
	}
	if in.Currency != nil && *in.Currency != "" {
		req.Currency = *in.Currency
	}
	if in.Budget != nil {
		req.Budget = *in.Budget
	}
}

// GetRequest returns the request view
func (s *requestServiceImpl) GetRequest(ctx context.Context, requestID string) *Result {
	if strings.TrimSpace(requestID) == "" {
		return fail(s.logger, "get request", errs.Validationf("request_booking_id is required"))
	}
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return fail(s.logger, "get request", err)
	}
	if req == nil {
		return fail(s.logger, "get request", errs.NotFoundf("request %s not found", requestID))
	}
	return succeed(newRequestView(req))
}

// ListRequests returns request views matching the filter, newest first
func (s *requestServiceImpl) ListRequests(ctx context.Context, in ListRequestsInput) *Result {
	filter := port.RequestFilter{
		EmployeeID: in.EmployeeID,
		Company:    in.Company,
		AgentID:    in.AgentID,
		Status:     status.RequestStatus(in.Status),
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return fail(s.logger, "list requests", errs.Validationf("invalid request_status %q", in.Status))
	}
	if filter.Offset < 0 {
		return fail(s.logger, "list requests", errs.Validationf("offset cannot be negative"))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return fail(s.logger, "list requests", err)
	}

	views := make([]*RequestView, 0, len(requests))
	for _, req := range requests {
		views = append(views, newRequestView(req))
	}
	return succeed(views)
}
