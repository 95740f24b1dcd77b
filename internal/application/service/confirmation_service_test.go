package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/domain/status"
)

func confirmedWebhook(clientRef, bookingID, confirmation string) *BookingWebhook {
	return &BookingWebhook{
		ClientReference:    Text(clientRef),
		BookingID:          Text(bookingID),
		ConfirmationNumber: Text(confirmation),
		Status:             "confirmed",
		Hotel:              embeddedOf(WebhookHotel{ID: "H1", Name: "Sea View", City: "Goa"}),
		Contact:            embeddedOf(WebhookContact{FirstName: "Asha", Email: "asha@example.com"}),
		Rooms:              embeddedOf([]WebhookRoom{{RateID: "R1", RoomName: "King", Price: numberOf(355.41), Tax: numberOf(54), Quantity: numberOf(1)}}),
		TotalPrice:         numberOf(409.41),
		Tax:                numberOf(54),
		Currency:           "USD",
	}
}

func approve(t *testing.T, env *testEnv, requestID string, rates ...string) {
	t.Helper()
	res := env.approvalService(nil).Approve(context.Background(), SelectionInput{
		RequestID:  requestID,
		EmployeeID: "E1",
		Selections: selection("H1", rates...),
	})
	require.True(t, res.Success, res.Error)
}

func TestConfirmationService_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1", "R2")
	assert.Equal(t, "E1_2026-08-01_2026-08-02", req.ID)
	approve(t, env, req.ID, "R1")

	res := env.confirmationService().ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1"))
	require.True(t, res.Success, res.Error)

	view := res.Data.(*BookingView)
	want := &BookingView{
		ClientReference:    req.ID,
		BookingID:          "B1",
		ConfirmationNumber: "C1",
		RequestStatus:      status.RequestClosed,
		Hotel:              entity.Hotel{ID: "H1", Name: "Sea View", City: "Goa"},
		CheckIn:            "2026-08-01",
		CheckOut:           "2026-08-02",
		RoomCount:          1,
		Adults:             2,
		TotalPrice:         409.41,
		Tax:                54,
		Currency:           "USD",
		Contact:            entity.Contact{FirstName: "Asha", Email: "asha@example.com"},
		Guests:             []entity.Guest{},
		Rooms:              []entity.BookedRoom{{RateID: "R1", RoomName: "King", Price: 355.41, Tax: 54, Quantity: 1}},
		BookingStatus:      status.BookingConfirmed,
		PaymentStatus:      status.PaymentSuccess,
		Created:            true,
		PriceComparison:    PriceComparisonView{Requested: true, Status: PriceComparisonPending},
	}
	if diff := cmp.Diff(want, view, cmpopts.IgnoreFields(BookingView{}, "ID", "PaymentIDs")); diff != "" {
		t.Errorf("booking view mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, view.PaymentIDs, 1)

	payment, err := env.payments.GetByID(ctx, view.PaymentIDs[0])
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, 409.41, payment.Amount)
	assert.Equal(t, "USD", payment.Currency)
	assert.Equal(t, status.PaymentSuccess, payment.PaymentStatus)
	require.NotNil(t, payment.BookingID)
	assert.Equal(t, view.ID, *payment.BookingID)

	rooms := env.roomStatuses(t, req.ID)
	assert.Equal(t, status.RoomBookingSuccess, rooms["R1"])
	assert.Equal(t, status.RoomDeclined, rooms["R2"])
	assert.Equal(t, status.RequestClosed, env.requestStatus(t, req.ID))
	assert.Len(t, env.publisher.ofType(event.TypeBookingMaterialized), 1)
	assert.Empty(t, env.publisher.ofType(event.TypeBookingConfirmed), "confirm path sends no notification")

	again := env.confirmationService().ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1"))
	assert.False(t, again.Success)
	assert.Equal(t, "conflict", again.Kind)
	assert.Contains(t, again.Error, fmt.Sprintf("booking %d", view.ID))

	payments, err := env.payments.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1, "redelivery must not add a payment")
}

func TestConfirmationService_RejectsReusedSupplierIdentifiers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.seedRequest(t, "R1")

	other := *first
	other.ID = "E1_2026-09-01_2026-09-02"
	other.CheckIn, other.CheckOut = day("2026-09-01"), day("2026-09-02")
	other.Hotels = []*entity.HotelOption{{HotelID: "H1", HotelName: "Sea View", Rooms: []*entity.Room{{RateID: "R1", Price: 100}}}}
	require.NoError(t, env.requests.Create(ctx, &other))

	svc := env.confirmationService()
	require.True(t, svc.ConfirmBooking(ctx, confirmedWebhook(first.ID, "B1", "C1")).Success)

	tests := []struct {
		name         string
		bookingID    string
		confirmation string
		want         string
	}{
		{"same booking id", "B1", "C2", "booking_id B1 is already used"},
		{"same confirmation", "B2", "C1", "confirmation_number C1 is already used"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.ConfirmBooking(ctx, confirmedWebhook(other.ID, tt.bookingID, tt.confirmation))
			assert.False(t, res.Success)
			assert.Equal(t, "conflict", res.Kind)
			assert.Contains(t, res.Error, tt.want)
			assert.Contains(t, res.Error, first.ID)
		})
	}

	b, err := env.bookings.GetByClientReference(ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestConfirmationService_UnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	res := env.confirmationService().ConfirmBooking(context.Background(), confirmedWebhook("E9_2026-01-01_2026-01-02", "B1", "C1"))
	assert.False(t, res.Success)
	assert.Equal(t, "not_found", res.Kind)
}

func TestConfirmationService_Validation(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "R1")
	svc := env.confirmationService()

	w := confirmedWebhook(req.ID, "B1", "")
	res := svc.ConfirmBooking(context.Background(), w)
	assert.False(t, res.Success)
	assert.Equal(t, "validation", res.Kind)
	assert.Contains(t, res.Error, "confirmation_number")

	res = svc.ConfirmBooking(context.Background(), nil)
	assert.Equal(t, "validation", res.Kind)

	w = confirmedWebhook(req.ID, "B1", "C1")
	w.TotalPrice = numberOf(math.NaN())
	res = svc.ConfirmBooking(context.Background(), w)
	assert.Equal(t, "validation", res.Kind)
	assert.Contains(t, res.Error, "total_price must be a number")

	assert.Empty(t, env.publisher.events)
}

func TestConfirmationService_UpdatesPreparedBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1", "R2")
	approve(t, env, req.ID, "R1")
	svc := env.confirmationService()

	prepared := svc.PrepareBooking(ctx, SelectionInput{RequestID: req.ID, EmployeeID: "E1", Selections: selection("H1", "R1")})
	require.True(t, prepared.Success, prepared.Error)
	draft := prepared.Data.(*BookingView)
	assert.Equal(t, status.BookingPending, draft.BookingStatus)
	assert.Equal(t, 354.0, draft.TotalPrice)

	res := svc.ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1"))
	require.True(t, res.Success, res.Error)

	view := res.Data.(*BookingView)
	assert.False(t, view.Created)
	assert.Equal(t, draft.ID, view.ID)
	assert.Equal(t, draft.PaymentIDs, view.PaymentIDs)
	assert.Equal(t, 409.41, view.TotalPrice)
	assert.Equal(t, status.BookingConfirmed, view.BookingStatus)

	payment, err := env.payments.GetByID(ctx, draft.PaymentIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 409.41, payment.Amount)
	assert.Equal(t, status.PaymentSuccess, payment.PaymentStatus)

	// the update path re-derives the request from its rooms
	assert.Equal(t, status.RoomBookingSuccess, env.roomStatuses(t, req.ID)["R1"])
	assert.Equal(t, status.RequestClosed, env.requestStatus(t, req.ID))
}

func TestConfirmationService_AppliesSupplierCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1")
	approve(t, env, req.ID, "R1")
	svc := env.confirmationService()
	require.True(t, svc.ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1")).Success)

	w := confirmedWebhook(req.ID, "B1", "C1")
	w.Status = "cancelled"
	res := svc.ConfirmBooking(ctx, w)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, status.BookingCancelled, res.Data.(*BookingView).BookingStatus)
	assert.Equal(t, status.PaymentCancel, res.Data.(*BookingView).PaymentStatus)
}

func TestConfirmationService_AdoptsUnlinkedPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1")

	for _, amount := range []float64{200, 209.41} {
		require.NoError(t, env.payments.Create(ctx, &entity.Payment{
			RequestID: req.ID, Amount: amount, Currency: "INR", PaymentStatus: status.PaymentPending,
		}))
	}

	res := env.confirmationService().ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1"))
	require.True(t, res.Success, res.Error)
	view := res.Data.(*BookingView)
	require.Len(t, view.PaymentIDs, 2)

	linked, err := env.payments.ListByBooking(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	total := 0.0
	for _, p := range linked {
		assert.Equal(t, "USD", p.Currency)
		assert.Equal(t, status.PaymentSuccess, p.PaymentStatus)
		total += p.Amount
	}
	assert.InDelta(t, 409.41, total, 0.001, "split amounts are kept")
}

func TestConfirmationService_CreateBooking_Notifies(t *testing.T) {
	tests := []struct {
		name       string
		status     Text
		dispatched bool
	}{
		{"confirmed", "confirmed", true},
		{"pending", "pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := env.seedRequest(t, "R1")

			w := confirmedWebhook(req.ID, "B1", "")
			w.Status = tt.status
			res := env.confirmationService().CreateBooking(context.Background(), w)
			require.True(t, res.Success, res.Error)

			view := res.Data.(*BookingView)
			require.NotNil(t, view.NotificationDispatched)
			assert.Equal(t, tt.dispatched, *view.NotificationDispatched)
			assert.Len(t, env.publisher.ofType(event.TypeBookingConfirmed), map[bool]int{true: 1, false: 0}[tt.dispatched])
		})
	}
}

func TestConfirmationService_CreateBooking_RedeliveryWithoutConfirmationNumber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1")
	svc := env.confirmationService()

	require.True(t, svc.ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1")).Success)

	res := svc.CreateBooking(ctx, confirmedWebhook(req.ID, "B1", ""))
	assert.False(t, res.Success)
	assert.Equal(t, "conflict", res.Kind)
	assert.Empty(t, env.publisher.ofType(event.TypeBookingConfirmed))

	b, err := env.bookings.GetByExternalID(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, "C1", b.ConfirmationNumber)
}

func TestConfirmationService_NoSubscribers(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.handlers = 0
	req := env.seedRequest(t, "R1")

	res := env.confirmationService().CreateBooking(context.Background(), confirmedWebhook(req.ID, "B1", "C1"))
	require.True(t, res.Success, res.Error)
	view := res.Data.(*BookingView)
	assert.False(t, view.PriceComparison.Requested)
	assert.False(t, *view.NotificationDispatched)
}

func TestConfirmationService_ConcurrentDeliveries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1")
	svc := env.confirmationService()

	const deliveries = 8
	results := make([]*Result, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.ConfirmBooking(ctx, confirmedWebhook(req.ID, "B1", "C1"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		} else {
			assert.Equal(t, "conflict", res.Kind)
		}
	}
	assert.Equal(t, 1, succeeded)

	payments, err := env.payments.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestConfirmationService_PrepareBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := env.seedRequest(t, "R1", "R2")
	approve(t, env, req.ID, "R1", "R2")
	svc := env.confirmationService()

	res := svc.PrepareBooking(ctx, SelectionInput{RequestID: req.ID, EmployeeID: "E1", Selections: selection("H1", "R1", "R2")})
	require.True(t, res.Success, res.Error)

	view := res.Data.(*BookingView)
	assert.True(t, view.Created)
	assert.Equal(t, 2, view.RoomCount)
	assert.Equal(t, 708.0, view.TotalPrice)
	assert.Equal(t, 108.0, view.Tax)
	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "Free cancellation", view.CancellationPolicy)
	assert.Equal(t, status.PaymentPending, view.PaymentStatus)
	require.Len(t, view.PaymentIDs, 1)
	assert.Equal(t, status.RequestClosed, env.requestStatus(t, req.ID))

	again := svc.PrepareBooking(ctx, SelectionInput{RequestID: req.ID, EmployeeID: "E1", Selections: selection("H1", "R1")})
	assert.Equal(t, "conflict", again.Kind)
}

func TestConfirmationService_PrepareBooking_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   func(id string) SelectionInput
		kind string
	}{
		{"unknown request", func(string) SelectionInput {
			return SelectionInput{RequestID: "missing", EmployeeID: "E1", Selections: selection("H1", "R1")}
		}, "not_found"},
		{"other employee", func(id string) SelectionInput {
			return SelectionInput{RequestID: id, EmployeeID: "E2", Selections: selection("H1", "R1")}
		}, "permission_denied"},
		{"nothing approved", func(id string) SelectionInput {
			return SelectionInput{RequestID: id, EmployeeID: "E1", Selections: selection("H1", "R2")}
		}, "validation"},
		{"unknown hotel", func(id string) SelectionInput {
			return SelectionInput{RequestID: id, EmployeeID: "E1", Selections: selection("H7", "R1")}
		}, "not_found"},
		{"no selection", func(id string) SelectionInput {
			return SelectionInput{RequestID: id, EmployeeID: "E1"}
		}, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := env.seedRequest(t, "R1", "R2")
			require.NoError(t, env.requests.UpdateRoomStatus(context.Background(), req.Hotels[0].Rooms[0].ID, status.RoomApproved))

			res := env.confirmationService().PrepareBooking(context.Background(), tt.in(req.ID))
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)

			b, err := env.bookings.GetByClientReference(context.Background(), req.ID)
			require.NoError(t, err)
			assert.Nil(t, b)
		})
	}
}

func TestApprovedSelection_SingleHotel(t *testing.T) {
	req := &entity.Request{
		ID: "E1_2026-08-01_2026-08-02",
		Hotels: []*entity.HotelOption{
			{HotelID: "H1", Rooms: []*entity.Room{{RateID: "A", Status: status.RoomApproved}}},
			{HotelID: "H2", Rooms: []*entity.Room{{RateID: "B", Status: status.RoomApproved}}},
		},
	}

	_, _, err := approvedSelection(req, []Selection{
		{HotelID: "H1", RoomRateIDs: []string{"A"}},
		{HotelID: "H2", RoomRateIDs: []string{"B"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single hotel")

	hotel, rooms, err := approvedSelection(req, selection("H2", "B"))
	require.NoError(t, err)
	assert.Equal(t, "H2", hotel.HotelID)
	assert.Len(t, rooms, 1)
}
