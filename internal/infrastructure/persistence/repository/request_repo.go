package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	"github.com/destiin/travel-booking/internal/pkg/errs"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, employee_id, employee_name, employee_email, employee_phone, company,
	agent_id, agent_email, check_in, check_out, destination, destination_code,
	adult_count, child_count, room_count, currency, budget, status,
	created_at, updated_at`

// Create stores the request with its hotel options and rooms
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	now := time.Now()
	if req.Status == "" {
		req.Status = status.RequestPending
	}

	err := inTx(ctx, r.db, func(ctx context.Context, exec sqlite.Executor) error {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO requests (`+requestColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			req.ID, req.EmployeeID, req.EmployeeName, req.EmployeeEmail, req.EmployeePhone, req.Company,
			req.AgentID, req.AgentEmail, formatDate(req.CheckIn), formatDate(req.CheckOut),
			req.Destination, req.DestinationCode,
			req.AdultCount, req.ChildCount, req.RoomCount, req.Currency, req.Budget, req.Status,
			now, now,
		)
		if err != nil {
			return classify(err, "create request")
		}

		for i, hotel := range req.Hotels {
			if err := r.insertHotelOption(ctx, exec, req.ID, hotel, i, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("request_id", req.ID), zap.Error(err))
		return err
	}

	req.CreatedAt = now
	req.UpdatedAt = now
	return nil
}

// GetByID retrieves a request with its hotel options and rooms
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	row := exec.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	if req.Hotels, err = r.loadHotels(ctx, exec, id); err != nil {
		return nil, err
	}
	return req, nil
}

// Exists reports whether a request with the given id is stored
func (r *RequestRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, `SELECT 1 FROM requests WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check request: %w", err)
	}
	return true, nil
}

// Update overwrites the scalar request fields. Hotel options are written
// separately through UpsertHotelOption.
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	now := time.Now()
	query := `
		UPDATE requests SET
			employee_name = ?, employee_email = ?, employee_phone = ?, company = ?,
			agent_id = ?, agent_email = ?, destination = ?, destination_code = ?,
			adult_count = ?, child_count = ?, room_count = ?, currency = ?, budget = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.EmployeeName, req.EmployeeEmail, req.EmployeePhone, req.Company,
		req.AgentID, req.AgentEmail, req.Destination, req.DestinationCode,
		req.AdultCount, req.ChildCount, req.RoomCount, req.Currency, req.Budget,
		req.Status, now, req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("request %s not found", req.ID)
	}

	req.UpdatedAt = now
	return nil
}

// UpdateStatus stores a new aggregate status
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, st status.RequestStatus) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ?`, st, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update request status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("request %s not found", id)
	}
	return nil
}

// List returns requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.Company != "" {
		where = append(where, "company = ?")
		args = append(args, filter.Company)
	}
	if filter.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, filter.AgentID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	exec := sqlite.ExecutorFrom(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	rows.Close()

	// hotels are loaded after the cursor is released; the test database has
	// a single connection
	for _, req := range requests {
		if req.Hotels, err = r.loadHotels(ctx, exec, req.ID); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// UpsertHotelOption inserts or updates the option by (request, hotel id) and
// replaces its rooms
func (r *RequestRepository) UpsertHotelOption(ctx context.Context, requestID string, hotel *entity.HotelOption) error {
	now := time.Now()
	err := inTx(ctx, r.db, func(ctx context.Context, exec sqlite.Executor) error {
		var id int64
		err := exec.QueryRowContext(ctx,
			`SELECT id FROM hotel_options WHERE request_id = ? AND hotel_id = ?`, requestID, hotel.HotelID).Scan(&id)
		if err == sql.ErrNoRows {
			var position int
			if err := exec.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM hotel_options WHERE request_id = ?`, requestID).Scan(&position); err != nil {
				return fmt.Errorf("failed to count hotel options: %w", err)
			}
			return r.insertHotelOption(ctx, exec, requestID, hotel, position, now)
		}
		if err != nil {
			return fmt.Errorf("failed to find hotel option: %w", err)
		}

		images, err := marshalJSON(hotel.Images, "[]")
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, `
			UPDATE hotel_options SET
				hotel_name = ?, supplier = ?, cancellation_policy = ?, meal_plan = ?,
				latitude = ?, longitude = ?, images = ?, updated_at = ?
			WHERE id = ?`,
			hotel.HotelName, hotel.Supplier, hotel.CancellationPolicy, hotel.MealPlan,
			hotel.Latitude, hotel.Longitude, images, now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update hotel option: %w", err)
		}

		if _, err := exec.ExecContext(ctx, `DELETE FROM rooms WHERE hotel_option_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear rooms: %w", err)
		}
		hotel.ID = id
		hotel.RequestID = requestID
		hotel.UpdatedAt = now
		return r.insertRooms(ctx, exec, hotel)
	})
	if err != nil {
		r.logger.Error("Failed to upsert hotel option",
			zap.String("request_id", requestID),
			zap.String("hotel_id", hotel.HotelID),
			zap.Error(err))
	}
	return err
}

// UpdateRoomStatus sets the status of a single room
func (r *RequestRepository) UpdateRoomStatus(ctx context.Context, roomID int64, st status.RoomStatus) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `UPDATE rooms SET status = ? WHERE id = ?`, st, roomID)
	if err != nil {
		r.logger.Error("Failed to update room status", zap.Int64("room_id", roomID), zap.Error(err))
		return fmt.Errorf("failed to update room status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errs.NotFoundf("room %d not found", roomID)
	}
	return nil
}

func (r *RequestRepository) insertHotelOption(ctx context.Context, exec sqlite.Executor, requestID string, hotel *entity.HotelOption, position int, now time.Time) error {
	images, err := marshalJSON(hotel.Images, "[]")
	if err != nil {
		return err
	}

	result, err := exec.ExecContext(ctx, `
		INSERT INTO hotel_options (
			request_id, hotel_id, hotel_name, supplier, cancellation_policy, meal_plan,
			latitude, longitude, images, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		requestID, hotel.HotelID, hotel.HotelName, hotel.Supplier, hotel.CancellationPolicy, hotel.MealPlan,
		hotel.Latitude, hotel.Longitude, images, position, now, now,
	)
	if err != nil {
		return classify(err, "create hotel option")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	hotel.ID = id
	hotel.RequestID = requestID
	hotel.CreatedAt = now
	hotel.UpdatedAt = now
	return r.insertRooms(ctx, exec, hotel)
}

func (r *RequestRepository) insertRooms(ctx context.Context, exec sqlite.Executor, hotel *entity.HotelOption) error {
	for i, room := range hotel.Rooms {
		if room.Status == "" {
			room.Status = status.RoomPending
		}
		if room.Currency == "" {
			room.Currency = entity.DefaultCurrency
		}
		images, err := marshalJSON(room.Images, "[]")
		if err != nil {
			return err
		}

		result, err := exec.ExecContext(ctx, `
			INSERT INTO rooms (
				hotel_option_id, room_id, rate_id, room_name, price, total_price, tax,
				currency, status, images, position
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			hotel.ID, room.RoomID, room.RateID, room.RoomName, room.Price, room.TotalPrice, room.Tax,
			room.Currency, room.Status, images, i,
		)
		if err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		if room.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		room.HotelOptionID = hotel.ID
	}
	return nil
}

func (r *RequestRepository) loadHotels(ctx context.Context, exec sqlite.Executor, requestID string) ([]*entity.HotelOption, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, request_id, hotel_id, hotel_name, supplier, cancellation_policy, meal_plan,
			latitude, longitude, images, created_at, updated_at
		FROM hotel_options
		WHERE request_id = ?
		ORDER BY position, id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hotel options: %w", err)
	}

	var hotels []*entity.HotelOption
	for rows.Next() {
		var h entity.HotelOption
		var images string
		if err := rows.Scan(&h.ID, &h.RequestID, &h.HotelID, &h.HotelName, &h.Supplier,
			&h.CancellationPolicy, &h.MealPlan, &h.Latitude, &h.Longitude, &images,
			&h.CreatedAt, &h.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan hotel option: %w", err)
		}
		if err := unmarshalJSON(images, &h.Images); err != nil {
			rows.Close()
			return nil, err
		}
		hotels = append(hotels, &h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate hotel options: %w", err)
	}
	rows.Close()

	for _, h := range hotels {
		if h.Rooms, err = loadRooms(ctx, exec, h.ID); err != nil {
			return nil, err
		}
	}
	return hotels, nil
}

func loadRooms(ctx context.Context, exec sqlite.Executor, hotelOptionID int64) ([]*entity.Room, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, hotel_option_id, room_id, rate_id, room_name, price, total_price, tax,
			currency, status, images
		FROM rooms
		WHERE hotel_option_id = ?
		ORDER BY position, id`, hotelOptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*entity.Room
	for rows.Next() {
		var room entity.Room
		var images string
		if err := rows.Scan(&room.ID, &room.HotelOptionID, &room.RoomID, &room.RateID, &room.RoomName,
			&room.Price, &room.TotalPrice, &room.Tax, &room.Currency, &room.Status, &images); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if err := unmarshalJSON(images, &room.Images); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.Request, error) {
	var req entity.Request
	var checkIn, checkOut string
	err := row.Scan(
		&req.ID, &req.EmployeeID, &req.EmployeeName, &req.EmployeeEmail, &req.EmployeePhone, &req.Company,
		&req.AgentID, &req.AgentEmail, &checkIn, &checkOut, &req.Destination, &req.DestinationCode,
		&req.AdultCount, &req.ChildCount, &req.RoomCount, &req.Currency, &req.Budget, &req.Status,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if req.CheckIn, err = parseDate(checkIn); err != nil {
		return nil, err
	}
	if req.CheckOut, err = parseDate(checkOut); err != nil {
		return nil, err
	}
	return &req, nil
}
