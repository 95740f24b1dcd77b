package service

import (
	"context"
	"strings"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// PriceComparisonPending marks a booking whose competitor check was queued
const PriceComparisonPending = "pending"

// ConfirmationService materializes supplier callbacks into bookings and
// payments
type ConfirmationService interface {
	// ConfirmBooking requires a confirmation number
	ConfirmBooking(ctx context.Context, w *BookingWebhook) *Result
	// CreateBooking accepts a callback without a confirmation number and
	// notifies the employee when the booking is confirmed
	CreateBooking(ctx context.Context, w *BookingWebhook) *Result
	// PrepareBooking drafts a pending booking from the approved rooms of a request
	PrepareBooking(ctx context.Context, in SelectionInput) *Result
}

type confirmationServiceImpl struct {
	requestRepo port.RequestRepository
	bookingRepo port.BookingRepository
	paymentRepo port.PaymentRepository
	txManager   port.TransactionManager
	publisher   Publisher
	logger      Logger
	locks       *keyedMutex
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(
	requestRepo port.RequestRepository,
	bookingRepo port.BookingRepository,
	paymentRepo port.PaymentRepository,
	txManager port.TransactionManager,
	publisher Publisher,
	logger Logger,
) ConfirmationService {
	return &confirmationServiceImpl{
		requestRepo: requestRepo,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		txManager:   txManager,
		publisher:   publisher,
		logger:      logger,
		locks:       newKeyedMutex(),
	}
}

func (s *confirmationServiceImpl) ConfirmBooking(ctx context.Context, w *BookingWebhook) *Result {
	view, err := s.materialize(ctx, w, false)
	if err != nil {
		return fail(s.logger, "confirm booking", err)
	}
	return succeed(view)
}

func (s *confirmationServiceImpl) CreateBooking(ctx context.Context, w *BookingWebhook) *Result {
	view, err := s.materialize(ctx, w, true)
	if err != nil {
		return fail(s.logger, "create booking", err)
	}
	return succeed(view)
}

// materialize upserts the booking for the callback's client reference.
// Deliveries for one client reference are serialized so the duplicate check
// and the write see the same state.
func (s *confirmationServiceImpl) materialize(ctx context.Context, w *BookingWebhook, createPath bool) (*BookingView, error) {
	if w == nil {
		return nil, errs.Validationf("request body is required")
	}
	d, err := w.Validate(!createPath)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(d.ClientReference)
	defer unlock()

	var (
		booking  *entity.HotelBooking
		payments []*entity.Payment
		req      *entity.Request
		created  bool
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		found, err := s.requestRepo.GetByID(txCtx, d.ClientReference)
		if err != nil {
			return err
		}
		req = found
		if req == nil {
			return errs.NotFoundf("request %s not found for client_reference", d.ClientReference)
		}

		conflict, err := s.bookingRepo.FindConflicting(txCtx, d.BookingID, d.ConfirmationNumber, d.ClientReference)
		if err != nil {
			return err
		}
		if conflict != nil {
			if conflict.ExternalBookingID == d.BookingID {
				return errs.Conflictf("booking_id %s is already used by booking %d (client_reference %s)",
					d.BookingID, conflict.ID, conflict.ClientReference)
			}
			return errs.Conflictf("confirmation_number %s is already used by booking %d (client_reference %s)",
				d.ConfirmationNumber, conflict.ID, conflict.ClientReference)
		}

		existing, err := s.bookingRepo.GetByClientReference(txCtx, d.ClientReference)
		if err != nil {
			return err
		}
		if existing != nil && isSameConfirmation(existing, d) {
			return errs.Conflictf("booking %d for %s is already confirmed with booking_id %s and confirmation_number %s",
				existing.ID, existing.ClientReference, existing.ExternalBookingID, existing.ConfirmationNumber)
		}

		if existing != nil {
			booking = existing
			applyDetails(booking, d)
			booking.PriceComparison.Status = PriceComparisonPending
			if err := s.bookingRepo.Update(txCtx, booking); err != nil {
				return err
			}
		} else {
			booking = newBookingFromDetails(req, d)
			booking.PriceComparison.Status = PriceComparisonPending
			if err := s.bookingRepo.Create(txCtx, booking); err != nil {
				return err
			}
			created = true
		}

		if payments, err = s.syncPayments(txCtx, req, booking); err != nil {
			return err
		}
		if err := s.propagateRooms(txCtx, req, d.Status.RoomStatus()); err != nil {
			return err
		}

		next := status.RequestClosed
		if !created {
			st, ok := status.Derive(req.RoomStatuses())
			if !ok {
				return nil
			}
			next = st
		}
		if next != req.Status {
			if err := s.requestRepo.UpdateStatus(txCtx, req.ID, next); err != nil {
				return err
			}
			req.Status = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking materialized",
		"client_reference", booking.ClientReference,
		"booking_id", booking.ExternalBookingID,
		"status", booking.BookingStatus,
		"created", created,
		"payments", len(payments),
	)

	view := newBookingView(booking, payments)
	view.Created = created
	view.RequestStatus = req.Status

	started := s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeBookingMaterialized, req.ID, booking.ID, nil))
	view.PriceComparison.Requested = started > 0

	if createPath {
		dispatched := false
		if booking.BookingStatus == status.BookingConfirmed {
			dispatched = s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeBookingConfirmed, req.ID, booking.ID, nil)) > 0
		}
		view.NotificationDispatched = &dispatched
	}
	return view, nil
}

// isSameConfirmation reports a redelivery of a callback that was already
// applied. A callback without a confirmation number keeps the stored one, so
// it repeats the stored confirmation.
func isSameConfirmation(b *entity.HotelBooking, d *bookingDetails) bool {
	return b.BookingStatus == status.BookingConfirmed &&
		d.Status == status.BookingConfirmed &&
		b.ExternalBookingID == d.BookingID &&
		(d.ConfirmationNumber == "" || b.ConfirmationNumber == d.ConfirmationNumber)
}

// applyDetails overwrites the booking with the callback. Fields the callback
// omits keep their stored values.
func applyDetails(b *entity.HotelBooking, d *bookingDetails) {
	b.ExternalBookingID = d.BookingID
	if d.ConfirmationNumber != "" {
		b.ConfirmationNumber = d.ConfirmationNumber
	}
	b.Hotel = d.Hotel
	if d.Contact != (entity.Contact{}) {
		b.Contact = d.Contact
	}
	if len(d.Guests) > 0 {
		b.Guests = d.Guests
	}
	if len(d.Rooms) > 0 {
		b.Rooms = d.Rooms
	}
	if d.CancellationPolicy != "" {
		b.CancellationPolicy = d.CancellationPolicy
	}
	if !d.CheckIn.IsZero() {
		b.CheckIn = d.CheckIn
	}
	if !d.CheckOut.IsZero() {
		b.CheckOut = d.CheckOut
	}
	if d.HasTotal {
		b.TotalPrice = d.TotalPrice
		b.Tax = d.Tax
	}
	if d.Currency != "" {
		b.Currency = d.Currency
	}
	if d.HasRoomCount {
		b.RoomCount = d.RoomCount
	}
	if d.HasAdults {
		b.AdultCount = d.Adults
	}
	if d.HasChildren {
		b.ChildCount = d.Children
	}
	b.BookingStatus = d.Status
	b.PaymentStatus = d.Status.PaymentStatus()
}

// newBookingFromDetails builds a booking from the callback, falling back to
// the request for stay and occupancy data
func newBookingFromDetails(req *entity.Request, d *bookingDetails) *entity.HotelBooking {
	b := &entity.HotelBooking{
		ClientReference: req.ID,
		EmployeeID:      req.EmployeeID,
		Company:         req.Company,
		AgentID:         req.AgentID,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		RoomCount:       req.RoomCount,
		AdultCount:      req.AdultCount,
		ChildCount:      req.ChildCount,
		Currency:        req.Currency,
		Guests:          []entity.Guest{},
		Rooms:           []entity.BookedRoom{},
	}
	if b.RoomCount == 0 {
		b.RoomCount = len(d.Rooms)
	}
	applyDetails(b, d)
	if b.Currency == "" {
		b.Currency = entity.DefaultCurrency
	}
	return b
}

// syncPayments links the booking's payments and aligns them with the booking.
// A booking without payments adopts the request's unlinked payments, or gets
// a new one. A single payment carries the booking total; with several only
// currency and status follow the booking.
func (s *confirmationServiceImpl) syncPayments(ctx context.Context, req *entity.Request, b *entity.HotelBooking) ([]*entity.Payment, error) {
	payments, err := s.paymentRepo.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	if len(payments) == 0 {
		all, err := s.paymentRepo.ListByRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			if !p.IsLinked() {
				payments = append(payments, p)
			}
		}
	}

	if len(payments) == 0 {
		bookingID := b.ID
		p := &entity.Payment{
			BookingID:     &bookingID,
			RequestID:     req.ID,
			Amount:        b.TotalPrice,
			Tax:           b.Tax,
			Currency:      b.Currency,
			PaymentStatus: b.PaymentStatus,
		}
		if err := s.paymentRepo.Create(ctx, p); err != nil {
			return nil, err
		}
		return []*entity.Payment{p}, nil
	}

	for _, p := range payments {
		bookingID := b.ID
		p.BookingID = &bookingID
		p.Currency = b.Currency
		p.PaymentStatus = b.PaymentStatus
		if len(payments) == 1 {
			p.Amount = b.TotalPrice
			p.Tax = b.Tax
		}
		if err := s.paymentRepo.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

// propagateRooms moves every room that is approved or awaiting payment to next
func (s *confirmationServiceImpl) propagateRooms(ctx context.Context, req *entity.Request, next status.RoomStatus) error {
	for _, h := range req.Hotels {
		for _, room := range h.Rooms {
			if room.Status != status.RoomApproved && room.Status != status.RoomPaymentPending {
				continue
			}
			if room.Status == next {
				continue
			}
			if err := s.requestRepo.UpdateRoomStatus(ctx, room.ID, next); err != nil {
				return err
			}
			room.Status = next
		}
	}
	return nil
}

// PrepareBooking creates a pending booking and payment from the approved
// selected rooms of one hotel and closes the request
func (s *confirmationServiceImpl) PrepareBooking(ctx context.Context, in SelectionInput) *Result {
	if strings.TrimSpace(in.RequestID) == "" {
		return fail(s.logger, "prepare booking", errs.Validationf("request_booking_id is required"))
	}
	if strings.TrimSpace(in.EmployeeID) == "" {
		return fail(s.logger, "prepare booking", errs.Validationf("employee is required"))
	}
	if err := validateSelections(in.Selections); err != nil {
		return fail(s.logger, "prepare booking", err)
	}

	unlock := s.locks.Lock(in.RequestID)
	defer unlock()

	var (
		booking *entity.HotelBooking
		payment *entity.Payment
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, in.RequestID)
		if err != nil {
			return err
		}
		if req == nil {
			return errs.NotFoundf("request %s not found", in.RequestID)
		}
		if req.EmployeeID != in.EmployeeID {
			return errs.PermissionDeniedf("request %s does not belong to employee %s", req.ID, in.EmployeeID)
		}

		existing, err := s.bookingRepo.GetByClientReference(txCtx, req.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Conflictf("booking %d already exists for request %s", existing.ID, req.ID)
		}

		hotel, rooms, err := approvedSelection(req, in.Selections)
		if err != nil {
			return err
		}

		booking = draftBooking(req, hotel, rooms)
		if err := s.bookingRepo.Create(txCtx, booking); err != nil {
			return err
		}

		bookingID := booking.ID
		payment = &entity.Payment{
			BookingID:     &bookingID,
			RequestID:     req.ID,
			Amount:        booking.TotalPrice,
			Tax:           booking.Tax,
			Currency:      booking.Currency,
			PaymentStatus: status.PaymentPending,
		}
		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return err
		}

		return s.requestRepo.UpdateStatus(txCtx, req.ID, status.RequestClosed)
	})
	if err != nil {
		return fail(s.logger, "prepare booking", err)
	}

	s.logger.Info("Booking drafted",
		"request_id", in.RequestID,
		"booking", booking.ID,
		"payment_id", payment.ID,
		"total", booking.TotalPrice,
		"currency", booking.Currency,
	)

	view := newBookingView(booking, []*entity.Payment{payment})
	view.Created = true
	view.RequestStatus = status.RequestClosed
	return succeed(view)
}

// approvedSelection returns the selected rooms that are approved. They must
// all belong to one hotel.
func approvedSelection(req *entity.Request, selections []Selection) (*entity.HotelOption, []*entity.Room, error) {
	var (
		hotel *entity.HotelOption
		rooms []*entity.Room
	)
	for _, sel := range selections {
		h := req.Hotel(sel.HotelID)
		if h == nil {
			return nil, nil, errs.NotFoundf("hotel %s not found on request %s", sel.HotelID, req.ID)
		}
		for _, rateID := range sel.RoomRateIDs {
			room := h.RoomByRate(rateID)
			if room == nil {
				return nil, nil, errs.Validationf("room_rate_id %s not found for hotel %s", rateID, sel.HotelID)
			}
			if room.Status != status.RoomApproved {
				continue
			}
			if hotel != nil && hotel.HotelID != h.HotelID {
				return nil, nil, errs.Validationf("approved rooms must belong to a single hotel, got %s and %s", hotel.HotelID, h.HotelID)
			}
			hotel = h
			rooms = append(rooms, room)
		}
	}
	if len(rooms) == 0 {
		return nil, nil, errs.Validationf("no approved rooms found in the selection")
	}
	return hotel, rooms, nil
}

func draftBooking(req *entity.Request, hotel *entity.HotelOption, rooms []*entity.Room) *entity.HotelBooking {
	b := &entity.HotelBooking{
		ClientReference: req.ID,
		EmployeeID:      req.EmployeeID,
		Company:         req.Company,
		AgentID:         req.AgentID,
		Hotel:           entity.Hotel{ID: hotel.HotelID, Name: hotel.HotelName},
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		RoomCount:       len(rooms),
		AdultCount:      req.AdultCount,
		ChildCount:      req.ChildCount,
		Contact: entity.Contact{
			FirstName: req.EmployeeName,
			Email:     req.EmployeeEmail,
			Phone:     req.EmployeePhone,
		},
		Guests:             []entity.Guest{},
		Rooms:              make([]entity.BookedRoom, 0, len(rooms)),
		CancellationPolicy: hotel.CancellationPolicy,
		BookingStatus:      status.BookingPending,
		PaymentStatus:      status.PaymentPending,
	}

	for _, room := range rooms {
		b.TotalPrice += room.Amount()
		b.Tax += room.Tax
		if b.Currency == "" {
			b.Currency = room.Currency
		}
		b.Rooms = append(b.Rooms, entity.BookedRoom{
			RoomID:   room.RoomID,
			RateID:   room.RateID,
			RoomName: room.RoomName,
			Price:    room.Amount(),
			Tax:      room.Tax,
			Quantity: 1,
		})
	}
	if b.Currency == "" {
		b.Currency = req.Currency
	}
	return b
}
