package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// PaymentLink is returned after a payment page was created
type PaymentLink struct {
	PaymentID     string               `json:"payment_id"`
	PaymentURL    string               `json:"payment_url"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	PaymentStatus status.PaymentStatus `json:"payment_status"`
}

// PaymentService creates hosted payment links for pending payments
type PaymentService interface {
	CreatePaymentURL(ctx context.Context, paymentID string) *Result
}

type paymentServiceImpl struct {
	paymentRepo port.PaymentRepository
	bookingRepo port.BookingRepository
	requestRepo port.RequestRepository
	gateway     port.PaymentGateway
	txManager   port.TransactionManager
	logger      Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo port.PaymentRepository,
	bookingRepo port.BookingRepository,
	requestRepo port.RequestRepository,
	gateway port.PaymentGateway,
	txManager port.TransactionManager,
	logger Logger,
) PaymentService {
	return &paymentServiceImpl{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		requestRepo: requestRepo,
		gateway:     gateway,
		txManager:   txManager,
		logger:      logger,
	}
}

// CreatePaymentURL asks the gateway for a payment page charging amount plus
// tax and marks the payment and its booking as awaiting payment
func (s *paymentServiceImpl) CreatePaymentURL(ctx context.Context, paymentID string) *Result {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return fail(s.logger, "create payment url", errs.Validationf("payment_id is required"))
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return fail(s.logger, "create payment url", err)
	}
	if payment == nil {
		return fail(s.logger, "create payment url", errs.NotFoundf("payment %s not found", paymentID))
	}

	amount := payment.ChargeAmount()
	if amount <= 0 {
		return fail(s.logger, "create payment url", errs.Validationf("payment %s has no amount to charge", paymentID))
	}

	gwReq := port.CreatePaymentRequest{
		Amount:   amount,
		Currency: payment.Currency,
	}
	purposeRef, hotelName := payment.RequestID, ""
	if payment.BookingID != nil {
		booking, err := s.bookingRepo.GetByID(ctx, *payment.BookingID)
		if err != nil {
			return fail(s.logger, "create payment url", err)
		}
		if booking != nil {
			hotelName = booking.Hotel.Name
			if booking.ExternalBookingID != "" {
				purposeRef = booking.ExternalBookingID
			}
		}
	}
	if req, err := s.requestRepo.GetByID(ctx, payment.RequestID); err != nil {
		return fail(s.logger, "create payment url", err)
	} else if req != nil {
		gwReq.Email = req.EmployeeEmail
		gwReq.Name = req.EmployeeName
		gwReq.Phone = req.EmployeePhone
	}
	gwReq.Purpose = fmt.Sprintf("Booking %s - %s", purposeRef, hotelName)

	res, err := s.gateway.CreatePayment(ctx, gwReq)
	if err != nil {
		return fail(s.logger, "create payment url", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		payment.PaymentURL = res.URL
		payment.PaymentStatus = status.PaymentAwaiting
		if err := s.paymentRepo.Update(txCtx, payment); err != nil {
			return err
		}
		if payment.BookingID == nil {
			return nil
		}
		return s.bookingRepo.UpdatePaymentStatus(txCtx, *payment.BookingID, status.PaymentAwaiting)
	})
	if err != nil {
		return fail(s.logger, "create payment url", err)
	}

	s.logger.Info("Payment link created", "payment_id", payment.ID, "amount", amount, "currency", payment.Currency)
	return succeed(&PaymentLink{
		PaymentID:     payment.ID,
		PaymentURL:    payment.PaymentURL,
		Amount:        amount,
		Currency:      payment.Currency,
		PaymentStatus: payment.PaymentStatus,
	})
}
