package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// SelectionInput targets rooms of a request
type SelectionInput struct {
	RequestID  string      `json:"-"`
	EmployeeID string      `json:"employee"`
	Selections []Selection `json:"selected_items"`
}

// ApprovalOutcome summarizes room changes made by one decision
type ApprovalOutcome struct {
	RequestID       string               `json:"request_booking_id"`
	RequestStatus   status.RequestStatus `json:"request_status"`
	StatusCode      int                  `json:"status_code"`
	ApprovedCount   int                  `json:"approved_count"`
	DeclinedCount   int                  `json:"declined_count"`
	SentCount       int                  `json:"sent_count"`
	HotelIDs        []string             `json:"hotel_ids"`
	EmailSent       *bool                `json:"email_sent,omitempty"`
	EmailRecipients []string             `json:"email_recipients,omitempty"`
}

// ApprovalService applies employee and agent decisions to room statuses
type ApprovalService interface {
	Approve(ctx context.Context, in SelectionInput) *Result
	Decline(ctx context.Context, in SelectionInput) *Result
	SendForApproval(ctx context.Context, in SelectionInput) *Result
}

type decision int

const (
	decisionApprove decision = iota
	decisionDecline
	decisionSend
)

func (d decision) String() string {
	switch d {
	case decisionApprove:
		return "approve"
	case decisionDecline:
		return "decline"
	default:
		return "send for approval"
	}
}

type approvalServiceImpl struct {
	requestRepo port.RequestRepository
	txManager   port.TransactionManager
	email       port.EmailSender
	publisher   Publisher
	logger      Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	requestRepo port.RequestRepository,
	txManager port.TransactionManager,
	email port.EmailSender,
	publisher Publisher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		requestRepo: requestRepo,
		txManager:   txManager,
		email:       email,
		publisher:   publisher,
		logger:      logger,
	}
}

// Approve marks the selected rooms approved and declines every other room of
// the targeted hotel options
func (s *approvalServiceImpl) Approve(ctx context.Context, in SelectionInput) *Result {
	outcome, _, err := s.apply(ctx, in, decisionApprove)
	if err != nil {
		return fail(s.logger, "approve", err)
	}
	return succeed(outcome)
}

// Decline marks only the selected rooms declined
func (s *approvalServiceImpl) Decline(ctx context.Context, in SelectionInput) *Result {
	outcome, _, err := s.apply(ctx, in, decisionDecline)
	if err != nil {
		return fail(s.logger, "decline", err)
	}
	return succeed(outcome)
}

// SendForApproval marks the selected rooms sent_for_approval and notifies the
// employee and agent. A failed email is reported in the outcome only.
func (s *approvalServiceImpl) SendForApproval(ctx context.Context, in SelectionInput) *Result {
	outcome, req, err := s.apply(ctx, in, decisionSend)
	if err != nil {
		return fail(s.logger, "send for approval", err)
	}

	recipients := approvalRecipients(req)
	sent := false
	if len(recipients) > 0 && outcome.SentCount > 0 {
		subject := fmt.Sprintf("Booking Approval Request - %s (%s to %s)",
			req.EmployeeName, formatDay(req.CheckIn), formatDay(req.CheckOut))
		if err := s.email.SendEmail(ctx, recipients, subject, approvalEmailBody(req, in.Selections)); err != nil {
			s.logger.Error("Approval email failed", "request_id", req.ID, "error", err)
		} else {
			sent = true
		}
	}
	outcome.EmailSent = &sent
	outcome.EmailRecipients = recipients

	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeApprovalRequested, req.ID, 0, map[string]interface{}{
		"agent_id":      req.AgentID,
		"employee_name": req.EmployeeName,
		"check_in":      formatDay(req.CheckIn),
		"check_out":     formatDay(req.CheckOut),
		"hotel_ids":     outcome.HotelIDs,
		"room_count":    outcome.SentCount,
	}))

	return succeed(outcome)
}

// apply validates every selection against the stored request, then mutates
// room statuses and the derived request status in one transaction
func (s *approvalServiceImpl) apply(ctx context.Context, in SelectionInput, d decision) (*ApprovalOutcome, *entity.Request, error) {
	if strings.TrimSpace(in.RequestID) == "" {
		return nil, nil, errs.Validationf("request_booking_id is required")
	}
	if d != decisionSend && strings.TrimSpace(in.EmployeeID) == "" {
		return nil, nil, errs.Validationf("employee is required")
	}
	if err := validateSelections(in.Selections); err != nil {
		return nil, nil, err
	}

	var (
		outcome *ApprovalOutcome
		stored  *entity.Request
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, in.RequestID)
		if err != nil {
			return err
		}
		if req == nil {
			return errs.NotFoundf("request %s not found", in.RequestID)
		}
		if d != decisionSend && req.EmployeeID != in.EmployeeID {
			return errs.PermissionDeniedf("request %s does not belong to employee %s", req.ID, in.EmployeeID)
		}

		targets, err := resolveSelections(req, in.Selections)
		if err != nil {
			return err
		}

		outcome = &ApprovalOutcome{RequestID: req.ID, HotelIDs: make([]string, 0, len(targets))}
		for _, t := range targets {
			outcome.HotelIDs = append(outcome.HotelIDs, t.hotel.HotelID)
			for _, room := range t.hotel.Rooms {
				next, counted := transition(d, room, t.rates[room.RateID])
				if next == "" {
					continue
				}
				switch {
				case !counted:
				case next == status.RoomApproved:
					outcome.ApprovedCount++
				case next == status.RoomDeclined:
					outcome.DeclinedCount++
				case next == status.RoomSentForApproval:
					outcome.SentCount++
				}
				if room.Status == next {
					continue
				}
				if err := s.requestRepo.UpdateRoomStatus(txCtx, room.ID, next); err != nil {
					return err
				}
				room.Status = next
			}
		}

		if st, ok := status.Derive(req.RoomStatuses()); ok && st != req.Status {
			if err := s.requestRepo.UpdateStatus(txCtx, req.ID, st); err != nil {
				return err
			}
			req.Status = st
		}
		outcome.RequestStatus = req.Status
		outcome.StatusCode = req.Status.Code()
		stored = req
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Room decision applied",
		"decision", d.String(),
		"request_id", outcome.RequestID,
		"request_status", outcome.RequestStatus,
		"approved", outcome.ApprovedCount,
		"declined", outcome.DeclinedCount,
		"sent", outcome.SentCount,
	)
	return outcome, stored, nil
}

// transition returns the status a room moves to under decision d, or "" when
// the room is left alone. counted is false for rooms changed implicitly.
func transition(d decision, room *entity.Room, selected bool) (next status.RoomStatus, counted bool) {
	switch d {
	case decisionApprove:
		if selected {
			return status.RoomApproved, true
		}
		// implicit decline-by-omission never touches booked rooms
		if room.Status.IsLocked() {
			return "", false
		}
		return status.RoomDeclined, true
	case decisionDecline:
		if selected {
			return status.RoomDeclined, true
		}
	case decisionSend:
		if selected {
			return status.RoomSentForApproval, true
		}
	}
	return "", false
}

type selectionTarget struct {
	hotel *entity.HotelOption
	rates map[string]bool
}

// resolveSelections maps selections onto the request's hotel options.
// Selections naming the same hotel are merged.
func resolveSelections(req *entity.Request, selections []Selection) ([]selectionTarget, error) {
	var targets []selectionTarget
	index := make(map[string]int, len(selections))

	for _, sel := range selections {
		hotel := req.Hotel(sel.HotelID)
		if hotel == nil {
			return nil, errs.NotFoundf("hotel %s not found on request %s", sel.HotelID, req.ID)
		}
		i, ok := index[sel.HotelID]
		if !ok {
			i = len(targets)
			index[sel.HotelID] = i
			targets = append(targets, selectionTarget{hotel: hotel, rates: make(map[string]bool)})
		}
		for _, rateID := range sel.RoomRateIDs {
			room := hotel.RoomByRate(rateID)
			if room == nil {
				return nil, errs.Validationf("room_rate_id %s not found for hotel %s", rateID, sel.HotelID)
			}
			if room.Status.IsLocked() {
				return nil, errs.Conflictf("room %s of hotel %s is already %s", rateID, sel.HotelID, room.Status)
			}
			targets[i].rates[rateID] = true
		}
	}
	return targets, nil
}

func approvalRecipients(req *entity.Request) []string {
	var to []string
	if req.EmployeeEmail != "" {
		to = append(to, req.EmployeeEmail)
	}
	if req.AgentEmail != "" && !strings.EqualFold(req.AgentEmail, req.EmployeeEmail) {
		to = append(to, req.AgentEmail)
	}
	return to
}

func approvalEmailBody(req *entity.Request, selections []Selection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Dear %s,</p>", req.EmployeeName)
	fmt.Fprintf(&b, "<p>Hotel options for your stay in %s from %s to %s are ready for your approval.</p>",
		req.Destination, formatDay(req.CheckIn), formatDay(req.CheckOut))
	b.WriteString("<ul>")
	for _, sel := range selections {
		hotel := req.Hotel(sel.HotelID)
		if hotel == nil {
			continue
		}
		for _, rateID := range sel.RoomRateIDs {
			if room := hotel.RoomByRate(rateID); room != nil {
				fmt.Fprintf(&b, "<li>%s: %s (%.2f %s)</li>", hotel.HotelName, room.RoomName, room.Amount(), room.Currency)
			}
		}
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Request reference: %s</p>", req.ID)
	return b.String()
}
