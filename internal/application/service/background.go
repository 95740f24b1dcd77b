package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/destiin/travel-booking/internal/application/dispatcher"
	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// Price comparison outcomes stored on the booking
const (
	PriceComparisonCompleted = "completed"
	PriceComparisonFailed    = "failed"
	PriceComparisonNoResults = "no_results"
)

// BackgroundConfig bounds the best-effort handlers
type BackgroundConfig struct {
	PriceComparisonTimeout time.Duration
	NotificationTimeout    time.Duration
}

// BackgroundHandlers runs the best-effort work that follows booking and
// approval changes. Failures only reach the logs.
type BackgroundHandlers struct {
	requestRepo port.RequestRepository
	bookingRepo port.BookingRepository
	agentRepo   port.AgentRepository
	comparator  port.PriceComparator
	email       port.EmailSender
	messenger   port.ChatMessenger
	cfg         BackgroundConfig
	logger      Logger
	now         func() time.Time
}

// NewBackgroundHandlers creates the handler set
func NewBackgroundHandlers(
	requestRepo port.RequestRepository,
	bookingRepo port.BookingRepository,
	agentRepo port.AgentRepository,
	comparator port.PriceComparator,
	email port.EmailSender,
	messenger port.ChatMessenger,
	cfg BackgroundConfig,
	logger Logger,
) *BackgroundHandlers {
	if cfg.PriceComparisonTimeout <= 0 {
		cfg.PriceComparisonTimeout = 900 * time.Second
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 30 * time.Second
	}
	return &BackgroundHandlers{
		requestRepo: requestRepo,
		bookingRepo: bookingRepo,
		agentRepo:   agentRepo,
		comparator:  comparator,
		email:       email,
		messenger:   messenger,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Register subscribes every handler on d
func (h *BackgroundHandlers) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeBookingMaterialized, "price-comparison", h.cfg.PriceComparisonTimeout, h.ComparePrices)
	d.SubscribeNamed(event.TypeBookingConfirmed, "confirmation-notification", h.cfg.NotificationTimeout, h.NotifyConfirmed)
	d.SubscribeNamed(event.TypeApprovalRequested, "agent-approval-chat", h.cfg.NotificationTimeout, h.NotifyApprovalRequested)
	d.SubscribeNamed(event.TypeBookingCancelled, "agent-cancellation-chat", h.cfg.NotificationTimeout, h.NotifyCancelled)
}

// ComparePrices fetches competitor prices for the booking and stores the
// cheapest one
func (h *BackgroundHandlers) ComparePrices(ctx context.Context, evt *event.Event) error {
	booking, err := h.booking(ctx, evt.BookingID)
	if err != nil {
		return err
	}

	roomNames := make([]string, 0, len(booking.Rooms))
	for _, r := range booking.Rooms {
		if r.RoomName != "" {
			roomNames = append(roomNames, r.RoomName)
		}
	}

	res, cmpErr := h.comparator.Compare(ctx, port.PriceComparisonRequest{
		HotelID:   booking.Hotel.ID,
		HotelName: booking.Hotel.Name,
		City:      booking.Hotel.City,
		Country:   booking.Hotel.Country,
		CheckIn:   formatDay(booking.CheckIn),
		CheckOut:  formatDay(booking.CheckOut),
		Adults:    booking.AdultCount,
		Children:  booking.ChildCount,
		Rooms:     booking.RoomCount,
		RoomNames: roomNames,
	})

	checkedAt := h.now()
	pc := entity.PriceComparison{CheckedAt: &checkedAt}
	switch {
	case cmpErr != nil:
		pc.Status = PriceComparisonFailed
	default:
		if lowest, ok := res.Lowest(); ok {
			pc.Status = PriceComparisonCompleted
			pc.LowestSite = lowest.Site
			pc.LowestPrice = lowest.TotalWithTax
		} else {
			pc.Status = PriceComparisonNoResults
		}
	}

	// the request context may be done after a timeout; the result is still recorded
	if err := h.bookingRepo.UpdatePriceComparison(context.WithoutCancel(ctx), booking.ID, pc); err != nil {
		return err
	}
	if cmpErr != nil {
		return errs.Wrap(cmpErr, "price comparison")
	}

	h.logger.Info("Price comparison stored",
		"booking", booking.ID,
		"status", pc.Status,
		"lowest_site", pc.LowestSite,
		"lowest_price", pc.LowestPrice,
	)
	return nil
}

// NotifyConfirmed emails the booking confirmation and pings the agent
func (h *BackgroundHandlers) NotifyConfirmed(ctx context.Context, evt *event.Event) error {
	booking, err := h.booking(ctx, evt.BookingID)
	if err != nil {
		return err
	}

	req, err := h.requestRepo.GetByID(ctx, booking.ClientReference)
	if err != nil {
		return err
	}

	recipients := confirmationRecipients(booking, req)
	if len(recipients) == 0 {
		h.logger.Info("No recipients for confirmation email", "booking", booking.ID)
	} else {
		subject := fmt.Sprintf("Booking Confirmed - %s (%s to %s)",
			booking.Hotel.Name, formatDay(booking.CheckIn), formatDay(booking.CheckOut))
		if err := h.email.SendEmail(ctx, recipients, subject, confirmationEmailBody(booking)); err != nil {
			return errs.Wrap(err, "confirmation email")
		}
	}

	h.chatAgent(ctx, booking.AgentID, fmt.Sprintf("Booking %s for %s is confirmed at %s (confirmation %s).",
		booking.ExternalBookingID, booking.ClientReference, booking.Hotel.Name, booking.ConfirmationNumber))
	return nil
}

// NotifyApprovalRequested tells the agent that rooms went out for approval
func (h *BackgroundHandlers) NotifyApprovalRequested(ctx context.Context, evt *event.Event) error {
	text := fmt.Sprintf("Request %s for %s (%s to %s): %d room(s) sent for approval across %s.",
		evt.RequestID,
		evt.GetPayloadString("employee_name"),
		evt.GetPayloadString("check_in"),
		evt.GetPayloadString("check_out"),
		int(evt.GetPayloadFloat("room_count")),
		strings.Join(evt.GetPayloadStrings("hotel_ids"), ", "),
	)
	h.chatAgent(ctx, evt.GetPayloadString("agent_id"), text)
	return nil
}

// NotifyCancelled tells the agent that a booking was cancelled
func (h *BackgroundHandlers) NotifyCancelled(ctx context.Context, evt *event.Event) error {
	booking, err := h.booking(ctx, evt.BookingID)
	if err != nil {
		return err
	}
	h.chatAgent(ctx, booking.AgentID, fmt.Sprintf("Booking %s for %s was cancelled; %d refund(s) requested.",
		booking.ExternalBookingID, booking.ClientReference, int(evt.GetPayloadFloat("refunds"))))
	return nil
}

func (h *BackgroundHandlers) booking(ctx context.Context, id int64) (*entity.HotelBooking, error) {
	booking, err := h.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, errs.NotFoundf("booking %d not found", id)
	}
	return booking, nil
}

// chatAgent sends text to the agent's chat account when one is known
func (h *BackgroundHandlers) chatAgent(ctx context.Context, agentID, text string) {
	if agentID == "" {
		return
	}
	agent, err := h.agentRepo.GetByID(ctx, agentID)
	if err != nil {
		h.logger.Error("Agent lookup failed", "agent_id", agentID, "error", err)
		return
	}
	if agent == nil || agent.LarkOpenID == "" {
		return
	}
	if err := h.messenger.SendText(ctx, agent.LarkOpenID, text); err != nil {
		h.logger.Error("Agent chat message failed", "agent_id", agentID, "error", err)
	}
}

func confirmationRecipients(b *entity.HotelBooking, req *entity.Request) []string {
	var to []string
	add := func(email string) {
		if email == "" {
			return
		}
		for _, existing := range to {
			if strings.EqualFold(existing, email) {
				return
			}
		}
		to = append(to, email)
	}
	add(b.Contact.Email)
	if req != nil {
		add(req.EmployeeEmail)
	}
	return to
}

func confirmationEmailBody(b *entity.HotelBooking) string {
	var sb strings.Builder
	name := strings.TrimSpace(b.Contact.FirstName + " " + b.Contact.LastName)
	if name == "" {
		name = "Guest"
	}
	fmt.Fprintf(&sb, "<p>Dear %s,</p>", name)
	fmt.Fprintf(&sb, "<p>Your booking at %s is confirmed.</p>", b.Hotel.Name)
	sb.WriteString("<ul>")
	fmt.Fprintf(&sb, "<li>Booking ID: %s</li>", b.ExternalBookingID)
	fmt.Fprintf(&sb, "<li>Confirmation number: %s</li>", b.ConfirmationNumber)
	fmt.Fprintf(&sb, "<li>Stay: %s to %s</li>", formatDay(b.CheckIn), formatDay(b.CheckOut))
	fmt.Fprintf(&sb, "<li>Rooms: %d</li>", b.RoomCount)
	fmt.Fprintf(&sb, "<li>Total: %.2f %s</li>", b.TotalPrice, b.Currency)
	sb.WriteString("</ul>")
	if b.CancellationPolicy != "" {
		fmt.Fprintf(&sb, "<p>Cancellation policy: %s</p>", b.CancellationPolicy)
	}
	return sb.String()
}
