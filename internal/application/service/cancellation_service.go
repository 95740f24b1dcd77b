package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

const maxConcurrentRefunds = 4

// RefundAttempt is the outcome of one refund call
type RefundAttempt struct {
	PaymentID     string                 `json:"payment_id"`
	TransactionID string                 `json:"transaction_id"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// CancellationOutcome is returned by CancelBooking
type CancellationOutcome struct {
	BookingID       string               `json:"booking_id"`
	ClientReference string               `json:"client_reference"`
	BookingStatus   status.BookingStatus `json:"booking_status"`
	Refunds         []RefundAttempt      `json:"refunds"`
}

// CancellationService cancels bookings and refunds captured payments
type CancellationService interface {
	CancelBooking(ctx context.Context, externalBookingID string) *Result
}

type cancellationServiceImpl struct {
	bookingRepo port.BookingRepository
	paymentRepo port.PaymentRepository
	payments    port.PaymentGateway
	txManager   port.TransactionManager
	publisher   Publisher
	logger      Logger
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(
	bookingRepo port.BookingRepository,
	paymentRepo port.PaymentRepository,
	payments port.PaymentGateway,
	txManager port.TransactionManager,
	publisher Publisher,
	logger Logger,
) CancellationService {
	return &cancellationServiceImpl{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		payments:    payments,
		txManager:   txManager,
		publisher:   publisher,
		logger:      logger,
	}
}

// CancelBooking marks the booking cancelled and every captured payment
// linked to it refund_status initialized in one transaction, then calls the
// gateway for each of those payments. The recorded refund status does not
// depend on the gateway answer or on the caller staying connected.
func (s *cancellationServiceImpl) CancelBooking(ctx context.Context, externalBookingID string) *Result {
	externalBookingID = strings.TrimSpace(externalBookingID)
	if externalBookingID == "" {
		return fail(s.logger, "cancel booking", errs.Validationf("booking_id is required"))
	}

	var (
		booking    *entity.HotelBooking
		refundable []*entity.Payment
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		b, err := s.bookingRepo.GetByExternalID(txCtx, externalBookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return errs.NotFoundf("booking %s not found", externalBookingID)
		}
		if b.BookingStatus == status.BookingCancelled {
			return errs.Conflictf("booking %s is already cancelled", externalBookingID)
		}

		if err := s.bookingRepo.UpdateStatus(txCtx, b.ID, status.BookingCancelled); err != nil {
			return err
		}
		b.BookingStatus = status.BookingCancelled
		booking = b

		payments, err := s.paymentRepo.ListByBooking(txCtx, b.ID)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if !p.PaymentStatus.IsRefundable() || p.TransactionID == "" {
				continue
			}
			p.RefundStatus = status.RefundInitialized
			if err := s.paymentRepo.Update(txCtx, p); err != nil {
				return err
			}
			refundable = append(refundable, p)
		}
		return nil
	})
	if err != nil {
		return fail(s.logger, "cancel booking", err)
	}

	// The booking is already cancelled; refunds must not stop with the caller
	attempts := s.refundAll(context.WithoutCancel(ctx), refundable)

	s.logger.Info("Booking cancelled",
		"booking_id", externalBookingID,
		"client_reference", booking.ClientReference,
		"refunds", len(attempts),
	)
	s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeBookingCancelled, booking.ClientReference, booking.ID, map[string]interface{}{
		"booking_id": externalBookingID,
		"refunds":    len(attempts),
	}))

	return succeed(&CancellationOutcome{
		BookingID:       externalBookingID,
		ClientReference: booking.ClientReference,
		BookingStatus:   booking.BookingStatus,
		Refunds:         attempts,
	})
}

// refundAll calls the gateway for every payment concurrently. Results keep
// the payment order; a failed call is reported in its attempt only.
func (s *cancellationServiceImpl) refundAll(ctx context.Context, payments []*entity.Payment) []RefundAttempt {
	attempts := make([]RefundAttempt, len(payments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRefunds)
	for i, p := range payments {
		g.Go(func() error {
			attempt := RefundAttempt{
				PaymentID:     p.ID,
				TransactionID: p.TransactionID,
				Amount:        p.Amount,
				Currency:      p.Currency,
			}

			res, err := s.payments.Refund(gctx, port.RefundRequest{
				PaymentID: p.TransactionID,
				Amount:    p.Amount,
				Currency:  p.Currency,
			})
			switch {
			case err != nil:
				attempt.Error = err.Error()
				s.logger.Error("Refund call failed", "payment_id", p.ID, "transaction_id", p.TransactionID, "error", err)
			default:
				attempt.Success = res.Success
				attempt.Error = res.Error
				attempt.Data = res.Data
			}
			attempts[i] = attempt
			return nil
		})
	}
	_ = g.Wait()
	return attempts
}
