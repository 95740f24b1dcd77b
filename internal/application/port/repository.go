package port

import (
	"context"
	"time"

	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/status"
)

// RequestRepository defines persistence operations for the request aggregate
// (request, hotel options, rooms). Lookups return nil, nil when nothing matches.
type RequestRepository interface {
	// Create stores the request with its hotel options and rooms.
	// A second request with the same id fails with errs.ErrConflict.
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id string) (*entity.Request, error)
	Exists(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, req *entity.Request) error
	UpdateStatus(ctx context.Context, id string, st status.RequestStatus) error
	List(ctx context.Context, filter RequestFilter) ([]*entity.Request, error)
	// UpsertHotelOption inserts or updates the option by (request, hotel id)
	// and replaces its rooms.
	UpsertHotelOption(ctx context.Context, requestID string, hotel *entity.HotelOption) error
	UpdateRoomStatus(ctx context.Context, roomID int64, st status.RoomStatus) error
}

// RequestFilter narrows request listings. Zero values do not filter.
type RequestFilter struct {
	EmployeeID string
	Company    string
	AgentID    string
	Status     status.RequestStatus
	Limit      int
	Offset     int
}

// BookingRepository defines persistence operations for HotelBooking
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.HotelBooking) error
	Update(ctx context.Context, booking *entity.HotelBooking) error
	GetByID(ctx context.Context, id int64) (*entity.HotelBooking, error)
	GetByClientReference(ctx context.Context, clientReference string) (*entity.HotelBooking, error)
	GetByExternalID(ctx context.Context, externalBookingID string) (*entity.HotelBooking, error)
	// FindConflicting returns a booking other than excludeClientReference that
	// already uses the supplier booking id or the confirmation number.
	FindConflicting(ctx context.Context, externalBookingID, confirmationNumber, excludeClientReference string) (*entity.HotelBooking, error)
	UpdateStatus(ctx context.Context, id int64, st status.BookingStatus) error
	UpdatePaymentStatus(ctx context.Context, id int64, st status.PaymentStatus) error
	UpdatePriceComparison(ctx context.Context, id int64, pc entity.PriceComparison) error
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]*entity.Payment, error)
	ListByRequest(ctx context.Context, requestID string) ([]*entity.Payment, error)
}

// AgentRepository defines persistence operations for agents and the
// round-robin rotation counter
type AgentRepository interface {
	Upsert(ctx context.Context, agent *entity.Agent) error
	GetByID(ctx context.Context, id string) (*entity.Agent, error)
	// ListActive returns active agents in a stable order
	ListActive(ctx context.Context) ([]*entity.Agent, error)
	// NextRotation atomically increments the rotation counter and returns
	// the value before the increment
	NextRotation(ctx context.Context) (int64, error)
	MarkAssigned(ctx context.Context, id string, at time.Time) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
