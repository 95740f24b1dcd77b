package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/repository"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	"github.com/destiin/travel-booking/internal/pkg/errs"
	"github.com/destiin/travel-booking/pkg/database"
)

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockPublisher struct {
	mu       sync.Mutex
	events   []*event.Event
	handlers int
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{handlers: 1}
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.handlers
}

func (m *mockPublisher) ofType(t event.Type) []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type mockEmailSender struct {
	sendEmailFunc func(ctx context.Context, to []string, subject, body string) error

	mu       sync.Mutex
	subjects []string
	to       [][]string
}

func (m *mockEmailSender) SendEmail(ctx context.Context, to []string, subject, body string) error {
	m.mu.Lock()
	m.subjects = append(m.subjects, subject)
	m.to = append(m.to, to)
	m.mu.Unlock()
	if m.sendEmailFunc != nil {
		return m.sendEmailFunc(ctx, to, subject, body)
	}
	return nil
}

type mockAssigner struct {
	assignFunc func(ctx context.Context) (*entity.Agent, error)
}

func (m *mockAssigner) Assign(ctx context.Context) (*entity.Agent, error) {
	if m.assignFunc != nil {
		return m.assignFunc(ctx)
	}
	return &entity.Agent{ID: "A1", Email: "agent@example.com"}, nil
}

type mockMessenger struct {
	mu    sync.Mutex
	sent  map[string][]string
	fails bool
}

func (m *mockMessenger) SendText(ctx context.Context, openID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return errs.Upstreamf("chat unavailable")
	}
	if m.sent == nil {
		m.sent = make(map[string][]string)
	}
	m.sent[openID] = append(m.sent[openID], text)
	return nil
}

// testEnv wires services to real repositories on a private in-memory database
type testEnv struct {
	tx        *sqlite.DB
	requests  port.RequestRepository
	bookings  port.BookingRepository
	payments  port.PaymentRepository
	agents    port.AgentRepository
	publisher *mockPublisher
	logger    *mockLogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewInMemory(uuid.NewString(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations(""))

	return &testEnv{
		tx:        sqlite.NewDB(db.DB, zap.NewNop()),
		requests:  repository.NewRequestRepository(db.DB, zap.NewNop()),
		bookings:  repository.NewBookingRepository(db.DB, zap.NewNop()),
		payments:  repository.NewPaymentRepository(db.DB, zap.NewNop()),
		agents:    repository.NewAgentRepository(db.DB, zap.NewNop()),
		publisher: newMockPublisher(),
		logger:    &mockLogger{},
	}
}

func (e *testEnv) requestService(assigner port.AgentAssigner) RequestService {
	if assigner == nil {
		assigner = &mockAssigner{}
	}
	return NewRequestService(e.requests, assigner, e.tx, e.logger)
}

func (e *testEnv) approvalService(email port.EmailSender) ApprovalService {
	if email == nil {
		email = &mockEmailSender{}
	}
	return NewApprovalService(e.requests, e.tx, email, e.publisher, e.logger)
}

func (e *testEnv) confirmationService() ConfirmationService {
	return NewConfirmationService(e.requests, e.bookings, e.payments, e.tx, e.publisher, e.logger)
}

func (e *testEnv) cancellationService(gw port.PaymentGateway) CancellationService {
	return NewCancellationService(e.bookings, e.payments, gw, e.tx, e.publisher, e.logger)
}

// seedRequest stores a request for employee E1 with hotel H1 holding one room
// per rate id
func (e *testEnv) seedRequest(t *testing.T, rates ...string) *entity.Request {
	t.Helper()
	checkIn, checkOut := day("2026-08-01"), day("2026-08-02")
	hotel := &entity.HotelOption{HotelID: "H1", HotelName: "Sea View", CancellationPolicy: "Free cancellation"}
	for _, rate := range rates {
		hotel.Rooms = append(hotel.Rooms, &entity.Room{
			RoomID: "K-" + rate, RateID: rate, RoomName: "Room " + rate,
			Price: 300, TotalPrice: 354, Tax: 54, Currency: "USD",
		})
	}
	req := &entity.Request{
		ID:            entity.NewRequestID("E1", checkIn, checkOut),
		EmployeeID:    "E1",
		EmployeeName:  "Asha",
		EmployeeEmail: "asha@example.com",
		AgentID:       "A1",
		AgentEmail:    "agent@example.com",
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		AdultCount:    2,
		RoomCount:     1,
		Currency:      "USD",
		Hotels:        []*entity.HotelOption{hotel},
	}
	require.NoError(t, e.requests.Create(context.Background(), req))
	return req
}

func (e *testEnv) roomStatuses(t *testing.T, requestID string) map[string]status.RoomStatus {
	t.Helper()
	req, err := e.requests.GetByID(context.Background(), requestID)
	require.NoError(t, err)
	require.NotNil(t, req)
	out := make(map[string]status.RoomStatus)
	for _, h := range req.Hotels {
		for _, r := range h.Rooms {
			out[r.RateID] = r.Status
		}
	}
	return out
}

func (e *testEnv) requestStatus(t *testing.T, requestID string) status.RequestStatus {
	t.Helper()
	req, err := e.requests.GetByID(context.Background(), requestID)
	require.NoError(t, err)
	require.NotNil(t, req)
	return req.Status
}

func day(s string) time.Time {
	d, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateSelections(t *testing.T) {
	tests := []struct {
		name       string
		selections []Selection
		wantErr    bool
	}{
		{"empty", nil, true},
		{"blank hotel", []Selection{{HotelID: " ", RoomRateIDs: []string{"R1"}}}, true},
		{"no rates", []Selection{{HotelID: "H1"}}, true},
		{"valid", []Selection{{HotelID: "H1", RoomRateIDs: []string{"R1"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSelections(tt.selections)
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"2026-08-01", "2026-08-01", false},
		{"2026-08-01T22:30:00Z", "2026-08-01", false},
		{"2026-08-01 09:15:00", "2026-08-01", false},
		{"", "", true},
		{"01/08/2026", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDay("check_in", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.ErrValidation))
				assert.Contains(t, err.Error(), "check_in")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatDay(got))
			assert.Zero(t, got.Hour())
		})
	}
}

func TestFail_ClassifiesErrors(t *testing.T) {
	logger := &mockLogger{}

	res := fail(logger, "op", errs.NotFoundf("request X not found"))
	assert.False(t, res.Success)
	assert.Equal(t, "not_found", res.Kind)
	assert.Equal(t, "request X not found", res.Error)
	assert.Empty(t, logger.errors)

	res = fail(logger, "op", errs.New("disk full"))
	assert.Equal(t, "internal", res.Kind)
	assert.Equal(t, []string{"op failed"}, logger.errors)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("E1")
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, km.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := newKeyedMutex()
	unlockA := km.Lock("A")

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("B")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on B blocked behind A")
	}
	assert.Equal(t, 1, km.size())
	unlockA()
	assert.Equal(t, 0, km.size())
}
