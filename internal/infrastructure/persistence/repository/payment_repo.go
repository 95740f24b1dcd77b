package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	"github.com/destiin/travel-booking/internal/pkg/errs"
	"go.uber.org/zap"
)

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `
	id, booking_id, request_id, amount, tax, currency, transaction_id,
	payment_status, refund_status, payment_url, created_at, updated_at`

// Create inserts a payment, assigning a uuid when the id is empty
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now()

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, nullInt64(payment.BookingID), payment.RequestID, payment.Amount, payment.Tax,
		payment.Currency, payment.TransactionID, payment.PaymentStatus, payment.RefundStatus,
		payment.PaymentURL, now, now,
	)
	if err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("request_id", payment.RequestID),
			zap.Error(err))
		return classify(err, "create payment")
	}

	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

// Update overwrites the mutable payment columns
func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	now := time.Now()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE payments SET
			booking_id = ?, amount = ?, tax = ?, currency = ?, transaction_id = ?,
			payment_status = ?, refund_status = ?, payment_url = ?, updated_at = ?
		WHERE id = ?`,
		nullInt64(payment.BookingID), payment.Amount, payment.Tax, payment.Currency, payment.TransactionID,
		payment.PaymentStatus, payment.RefundStatus, payment.PaymentURL, now, payment.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update payment", zap.String("id", payment.ID), zap.Error(err))
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("payment %s not found", payment.ID)
	}

	payment.UpdatedAt = now
	return nil
}

// GetByID retrieves a payment by id
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)

	payment, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// ListByBooking returns the payments linked to a booking in creation order
func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]*entity.Payment, error) {
	return r.list(ctx, "booking_id = ?", bookingID)
}

// ListByRequest returns every payment of a request, linked or not
func (r *PaymentRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.Payment, error) {
	return r.list(ctx, "request_id = ?", requestID)
}

func (r *PaymentRepository) list(ctx context.Context, where string, arg interface{}) ([]*entity.Payment, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+where+` ORDER BY created_at, rowid`, arg)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Any("filter", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var p entity.Payment
	var bookingID sql.NullInt64
	err := row.Scan(
		&p.ID, &bookingID, &p.RequestID, &p.Amount, &p.Tax, &p.Currency, &p.TransactionID,
		&p.PaymentStatus, &p.RefundStatus, &p.PaymentURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if bookingID.Valid {
		id := bookingID.Int64
		p.BookingID = &id
	}
	return &p, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
