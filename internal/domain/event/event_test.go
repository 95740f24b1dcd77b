package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"approval requested", TypeApprovalRequested, true},
		{"booking materialized", TypeBookingMaterialized, true},
		{"booking confirmed", TypeBookingConfirmed, true},
		{"booking cancelled", TypeBookingCancelled, true},
		{"unknown", Type("booking.exploded"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeBookingMaterialized, "E1_2026-08-01_2026-08-02", 7, map[string]interface{}{"k": "v"})

	if evt.ID == "" {
		t.Error("expected generated ID")
	}
	if evt.CorrelationID != evt.ID {
		t.Errorf("CorrelationID = %v, want %v", evt.CorrelationID, evt.ID)
	}
	if evt.RequestID != "E1_2026-08-01_2026-08-02" || evt.BookingID != 7 {
		t.Errorf("unexpected identity: %+v", evt)
	}
	if evt.Timestamp.Before(before) {
		t.Error("timestamp should not precede creation")
	}

	other := NewEvent(TypeBookingMaterialized, "x", 0, nil)
	if other.ID == evt.ID {
		t.Error("event IDs must be unique")
	}
}

func TestEvent_PayloadGetters(t *testing.T) {
	evt := NewEvent(TypeApprovalRequested, "R", 0, map[string]interface{}{
		"name":    "Asha",
		"float":   12.5,
		"int":     3,
		"emails":  []string{"a@x.io"},
		"decoded": []interface{}{"b@x.io", 4},
	})

	if got := evt.GetPayloadString("name"); got != "Asha" {
		t.Errorf("GetPayloadString = %v", got)
	}
	if got := evt.GetPayloadString("float"); got != "" {
		t.Errorf("GetPayloadString on non-string = %v, want empty", got)
	}
	if got := evt.GetPayloadFloat("float"); got != 12.5 {
		t.Errorf("GetPayloadFloat = %v", got)
	}
	if got := evt.GetPayloadFloat("int"); got != 3 {
		t.Errorf("GetPayloadFloat(int) = %v", got)
	}
	if got := evt.GetPayloadStrings("emails"); len(got) != 1 || got[0] != "a@x.io" {
		t.Errorf("GetPayloadStrings = %v", got)
	}
	if got := evt.GetPayloadStrings("decoded"); len(got) != 1 || got[0] != "b@x.io" {
		t.Errorf("GetPayloadStrings(decoded) = %v", got)
	}
	if got := evt.GetPayloadStrings("missing"); got != nil {
		t.Errorf("GetPayloadStrings(missing) = %v, want nil", got)
	}
}
