package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	"github.com/destiin/travel-booking/internal/pkg/errs"
	"go.uber.org/zap"
)

// BookingRepository implements port.BookingRepository
type BookingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sql.DB, logger *zap.Logger) port.BookingRepository {
	return &BookingRepository{
		db:     db,
		logger: logger,
	}
}

const bookingColumns = `
	id, client_reference, external_booking_id, confirmation_number,
	employee_id, company, agent_id,
	hotel_id, hotel_name, hotel_address, hotel_city, hotel_country, hotel_phone, hotel_rating,
	check_in, check_out, room_count, adult_count, child_count,
	total_price, tax, currency, contact, guests, rooms, cancellation_policy,
	booking_status, payment_status,
	price_comparison_status, lowest_competitor_site, lowest_competitor_price, price_comparison_checked_at,
	created_at, updated_at`

// bookingArgs returns the column values in bookingColumns order, without id
// and timestamps
func bookingArgs(b *entity.HotelBooking) ([]interface{}, error) {
	contact, err := marshalJSON(b.Contact, "{}")
	if err != nil {
		return nil, err
	}
	guests, err := marshalJSON(b.Guests, "[]")
	if err != nil {
		return nil, err
	}
	rooms, err := marshalJSON(b.Rooms, "[]")
	if err != nil {
		return nil, err
	}

	return []interface{}{
		b.ClientReference, b.ExternalBookingID, b.ConfirmationNumber,
		b.EmployeeID, b.Company, b.AgentID,
		b.Hotel.ID, b.Hotel.Name, b.Hotel.Address, b.Hotel.City, b.Hotel.Country, b.Hotel.Phone, b.Hotel.Rating,
		formatDate(b.CheckIn), formatDate(b.CheckOut), b.RoomCount, b.AdultCount, b.ChildCount,
		b.TotalPrice, b.Tax, b.Currency, contact, guests, rooms, b.CancellationPolicy,
		b.BookingStatus, b.PaymentStatus,
		b.PriceComparison.Status, b.PriceComparison.LowestSite, b.PriceComparison.LowestPrice,
		nullTime(b.PriceComparison.CheckedAt),
	}, nil
}

// Create inserts a booking. Duplicate client reference, supplier booking id or
// confirmation number fail with errs.ErrConflict.
func (r *BookingRepository) Create(ctx context.Context, booking *entity.HotelBooking) error {
	args, err := bookingArgs(booking)
	if err != nil {
		return err
	}
	now := time.Now()
	args = append(args, now, now)

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO hotel_bookings (
			client_reference, external_booking_id, confirmation_number,
			employee_id, company, agent_id,
			hotel_id, hotel_name, hotel_address, hotel_city, hotel_country, hotel_phone, hotel_rating,
			check_in, check_out, room_count, adult_count, child_count,
			total_price, tax, currency, contact, guests, rooms, cancellation_policy,
			booking_status, payment_status,
			price_comparison_status, lowest_competitor_site, lowest_competitor_price, price_comparison_checked_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		r.logger.Error("Failed to create booking",
			zap.String("client_reference", booking.ClientReference),
			zap.Error(err))
		return classify(err, "create booking")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

// Update overwrites every mutable column of the booking
func (r *BookingRepository) Update(ctx context.Context, booking *entity.HotelBooking) error {
	args, err := bookingArgs(booking)
	if err != nil {
		return err
	}
	now := time.Now()
	args = append(args, now, booking.ID)

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE hotel_bookings SET
			client_reference = ?, external_booking_id = ?, confirmation_number = ?,
			employee_id = ?, company = ?, agent_id = ?,
			hotel_id = ?, hotel_name = ?, hotel_address = ?, hotel_city = ?, hotel_country = ?,
			hotel_phone = ?, hotel_rating = ?,
			check_in = ?, check_out = ?, room_count = ?, adult_count = ?, child_count = ?,
			total_price = ?, tax = ?, currency = ?, contact = ?, guests = ?, rooms = ?,
			cancellation_policy = ?, booking_status = ?, payment_status = ?,
			price_comparison_status = ?, lowest_competitor_site = ?, lowest_competitor_price = ?,
			price_comparison_checked_at = ?,
			updated_at = ?
		WHERE id = ?`,
		args...,
	)
	if err != nil {
		r.logger.Error("Failed to update booking", zap.Int64("id", booking.ID), zap.Error(err))
		return classify(err, "update booking")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("booking %d not found", booking.ID)
	}

	booking.UpdatedAt = now
	return nil
}

// GetByID retrieves a booking by its internal id
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*entity.HotelBooking, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByClientReference retrieves the booking of a request
func (r *BookingRepository) GetByClientReference(ctx context.Context, clientReference string) (*entity.HotelBooking, error) {
	return r.getOne(ctx, "client_reference = ?", clientReference)
}

// GetByExternalID retrieves a booking by the supplier booking id
func (r *BookingRepository) GetByExternalID(ctx context.Context, externalBookingID string) (*entity.HotelBooking, error) {
	if externalBookingID == "" {
		return nil, nil
	}
	return r.getOne(ctx, "external_booking_id = ?", externalBookingID)
}

// FindConflicting returns another booking that already uses the supplier
// booking id or the confirmation number. Empty values never match.
func (r *BookingRepository) FindConflicting(ctx context.Context, externalBookingID, confirmationNumber, excludeClientReference string) (*entity.HotelBooking, error) {
	if externalBookingID == "" && confirmationNumber == "" {
		return nil, nil
	}
	return r.getOne(ctx, `
		client_reference <> ? AND (
			(external_booking_id <> '' AND external_booking_id = ?) OR
			(confirmation_number <> '' AND confirmation_number = ?)
		) ORDER BY id LIMIT 1`,
		excludeClientReference, externalBookingID, confirmationNumber)
}

// UpdateStatus sets the lifecycle status of a booking
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, st status.BookingStatus) error {
	return r.updateColumn(ctx, id, "booking_status", st)
}

// UpdatePaymentStatus sets the payment status of a booking
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id int64, st status.PaymentStatus) error {
	return r.updateColumn(ctx, id, "payment_status", st)
}

// UpdatePriceComparison stores the outcome of a competitor price check
func (r *BookingRepository) UpdatePriceComparison(ctx context.Context, id int64, pc entity.PriceComparison) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE hotel_bookings SET
			price_comparison_status = ?, lowest_competitor_site = ?,
			lowest_competitor_price = ?, price_comparison_checked_at = ?, updated_at = ?
		WHERE id = ?`,
		pc.Status, pc.LowestSite, pc.LowestPrice, nullTime(pc.CheckedAt), time.Now(), id,
	)
	if err != nil {
		r.logger.Error("Failed to update price comparison", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update price comparison: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("booking %d not found", id)
	}
	return nil
}

func (r *BookingRepository) updateColumn(ctx context.Context, id int64, column string, value interface{}) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE hotel_bookings SET `+column+` = ?, updated_at = ? WHERE id = ?`, value, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update booking",
			zap.Int64("id", id),
			zap.String("column", column),
			zap.Error(err))
		return fmt.Errorf("failed to update booking %s: %w", column, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("booking %d not found", id)
	}
	return nil
}

func (r *BookingRepository) getOne(ctx context.Context, where string, args ...interface{}) (*entity.HotelBooking, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM hotel_bookings WHERE `+where, args...)

	booking, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get booking", zap.Any("args", args), zap.Error(err))
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func scanBooking(row rowScanner) (*entity.HotelBooking, error) {
	var (
		b                      entity.HotelBooking
		checkIn, checkOut      string
		contact, guests, rooms string
		checkedAt              sql.NullTime
	)

	err := row.Scan(
		&b.ID, &b.ClientReference, &b.ExternalBookingID, &b.ConfirmationNumber,
		&b.EmployeeID, &b.Company, &b.AgentID,
		&b.Hotel.ID, &b.Hotel.Name, &b.Hotel.Address, &b.Hotel.City, &b.Hotel.Country, &b.Hotel.Phone, &b.Hotel.Rating,
		&checkIn, &checkOut, &b.RoomCount, &b.AdultCount, &b.ChildCount,
		&b.TotalPrice, &b.Tax, &b.Currency, &contact, &guests, &rooms, &b.CancellationPolicy,
		&b.BookingStatus, &b.PaymentStatus,
		&b.PriceComparison.Status, &b.PriceComparison.LowestSite, &b.PriceComparison.LowestPrice, &checkedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.CheckIn, err = parseDate(checkIn); err != nil {
		return nil, err
	}
	if b.CheckOut, err = parseDate(checkOut); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(contact, &b.Contact); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(guests, &b.Guests); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(rooms, &b.Rooms); err != nil {
		return nil, err
	}
	b.PriceComparison.CheckedAt = timePtr(checkedAt)
	return &b, nil
}
