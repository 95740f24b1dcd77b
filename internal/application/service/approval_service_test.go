package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/domain/status"
)

func selection(hotelID string, rates ...string) []Selection {
	return []Selection{{HotelID: hotelID, RoomRateIDs: rates}}
}

func TestApprovalService_Approve_IsExclusive(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "A", "B", "C")

	res := env.approvalService(nil).Approve(context.Background(), SelectionInput{
		RequestID:  req.ID,
		EmployeeID: "E1",
		Selections: selection("H1", "A", "B"),
	})
	require.True(t, res.Success, res.Error)

	outcome := res.Data.(*ApprovalOutcome)
	assert.Equal(t, 2, outcome.ApprovedCount)
	assert.Equal(t, 1, outcome.DeclinedCount)
	assert.Equal(t, []string{"H1"}, outcome.HotelIDs)
	assert.Equal(t, status.RequestApproved, outcome.RequestStatus)
	assert.Equal(t, 2, outcome.StatusCode)

	rooms := env.roomStatuses(t, req.ID)
	assert.Equal(t, status.RoomApproved, rooms["A"])
	assert.Equal(t, status.RoomApproved, rooms["B"])
	assert.Equal(t, status.RoomDeclined, rooms["C"])
	assert.Equal(t, status.RequestApproved, env.requestStatus(t, req.ID))
}

func TestApprovalService_Approve_SkipsLockedRoomsWhenDecliningOthers(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "A", "B")
	require.NoError(t, env.requests.UpdateRoomStatus(context.Background(), req.Hotels[0].Rooms[1].ID, status.RoomPaymentPending))

	res := env.approvalService(nil).Approve(context.Background(), SelectionInput{
		RequestID:  req.ID,
		EmployeeID: "E1",
		Selections: selection("H1", "A"),
	})
	require.True(t, res.Success, res.Error)

	rooms := env.roomStatuses(t, req.ID)
	assert.Equal(t, status.RoomApproved, rooms["A"])
	assert.Equal(t, status.RoomPaymentPending, rooms["B"])
	assert.Equal(t, status.RequestPaymentPending, env.requestStatus(t, req.ID))
}

func TestApprovalService_Decline_OnlyTargets(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "A", "B")

	res := env.approvalService(nil).Decline(context.Background(), SelectionInput{
		RequestID:  req.ID,
		EmployeeID: "E1",
		Selections: selection("H1", "A"),
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Data.(*ApprovalOutcome).DeclinedCount)

	rooms := env.roomStatuses(t, req.ID)
	assert.Equal(t, status.RoomDeclined, rooms["A"])
	assert.Equal(t, status.RoomPending, rooms["B"])
	assert.Equal(t, status.RequestPending, env.requestStatus(t, req.ID))

	res = env.approvalService(nil).Decline(context.Background(), SelectionInput{
		RequestID:  req.ID,
		EmployeeID: "E1",
		Selections: selection("H1", "B"),
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, status.RequestCancelled, env.requestStatus(t, req.ID))
}

func TestApprovalService_Errors(t *testing.T) {
	tests := []struct {
		name  string
		in    func(requestID string) SelectionInput
		lock  bool
		kind  string
		match string
	}{
		{
			name: "unknown request",
			in: func(string) SelectionInput {
				return SelectionInput{RequestID: "nope", EmployeeID: "E1", Selections: selection("H1", "A")}
			},
			kind: "not_found",
		},
		{
			name: "empty selections",
			in: func(id string) SelectionInput {
				return SelectionInput{RequestID: id, EmployeeID: "E1"}
			},
			kind:  "validation",
			match: "selected_items",
		},
		{
			name: "employee mismatch",
			in: func(id string) SelectionInput {
				return SelectionInput{RequestID: id, EmployeeID: "E2", Selections: selection("H1", "A")}
			},
			kind: "permission_denied",
		},
		{
			name: "missing employee",
			in: func(id string) SelectionInput {
				return SelectionInput{RequestID: id, Selections: selection("H1", "A")}
			},
			kind: "validation",
		},
		{
			name: "hotel not on request",
			in: func(id string) SelectionInput {
				return SelectionInput{RequestID: id, EmployeeID: "E1", Selections: selection("H9", "A")}
			},
			kind: "not_found",
		},
		{
			name: "unknown rate",
			in: func(id string) SelectionInput {
				return SelectionInput{RequestID: id, EmployeeID: "E1", Selections: selection("H1", "Z")}
			},
			kind:  "validation",
			match: "room_rate_id Z",
		},
		{
			name: "locked room",
			in: func(id string) SelectionInput {
				return SelectionInput{RequestID: id, EmployeeID: "E1", Selections: selection("H1", "A")}
			},
			lock: true,
			kind: "conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := env.seedRequest(t, "A", "B")
			if tt.lock {
				require.NoError(t, env.requests.UpdateRoomStatus(context.Background(), req.Hotels[0].Rooms[0].ID, status.RoomBookingSuccess))
			}
			before := env.roomStatuses(t, req.ID)

			res := env.approvalService(nil).Approve(context.Background(), tt.in(req.ID))
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
			if tt.match != "" {
				assert.Contains(t, res.Error, tt.match)
			}
			assert.Equal(t, before, env.roomStatuses(t, req.ID), "no room may change on failure")
		})
	}
}

func TestApprovalService_Approve_ValidatesAllSelectionsFirst(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "A", "B")

	res := env.approvalService(nil).Approve(context.Background(), SelectionInput{
		RequestID:  req.ID,
		EmployeeID: "E1",
		Selections: []Selection{
			{HotelID: "H1", RoomRateIDs: []string{"A"}},
			{HotelID: "H1", RoomRateIDs: []string{"missing"}},
		},
	})
	assert.False(t, res.Success)

	rooms := env.roomStatuses(t, req.ID)
	assert.Equal(t, status.RoomPending, rooms["A"])
	assert.Equal(t, status.RoomPending, rooms["B"])
}

func TestApprovalService_SendForApproval(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "A", "B")
	email := &mockEmailSender{}

	res := env.approvalService(email).SendForApproval(context.Background(), SelectionInput{
		RequestID:  req.ID,
		Selections: selection("H1", "A"),
	})
	require.True(t, res.Success, res.Error)

	outcome := res.Data.(*ApprovalOutcome)
	assert.Equal(t, 1, outcome.SentCount)
	require.NotNil(t, outcome.EmailSent)
	assert.True(t, *outcome.EmailSent)
	assert.Equal(t, []string{"asha@example.com", "agent@example.com"}, outcome.EmailRecipients)
	assert.Equal(t, status.RequestSentForApproval, outcome.RequestStatus)

	require.Len(t, email.subjects, 1)
	assert.Equal(t, "Booking Approval Request - Asha (2026-08-01 to 2026-08-02)", email.subjects[0])

	rooms := env.roomStatuses(t, req.ID)
	assert.Equal(t, status.RoomSentForApproval, rooms["A"])
	assert.Equal(t, status.RoomPending, rooms["B"])

	events := env.publisher.ofType(event.TypeApprovalRequested)
	require.Len(t, events, 1)
	assert.Equal(t, req.ID, events[0].RequestID)
	assert.Equal(t, "A1", events[0].GetPayloadString("agent_id"))
}

func TestApprovalService_SendForApproval_EmailFailure(t *testing.T) {
	env := newTestEnv(t)
	req := env.seedRequest(t, "A")
	email := &mockEmailSender{sendEmailFunc: func(ctx context.Context, to []string, subject, body string) error {
		return errors.New("smtp relay down")
	}}

	res := env.approvalService(email).SendForApproval(context.Background(), SelectionInput{
		RequestID:  req.ID,
		Selections: selection("H1", "A"),
	})
	require.True(t, res.Success, res.Error)

	outcome := res.Data.(*ApprovalOutcome)
	require.NotNil(t, outcome.EmailSent)
	assert.False(t, *outcome.EmailSent)
	assert.Equal(t, status.RoomSentForApproval, env.roomStatuses(t, req.ID)["A"])
	assert.Equal(t, []string{"Approval email failed"}, env.logger.errors)
}
