// Package status holds the status vocabularies of the booking lifecycle and
// the pure mappings between them.
package status

// precedence lists room statuses from most to least significant. The first
// one present decides the request status.
var precedence = []struct {
	rooms   []RoomStatus
	request RequestStatus
}{
	{[]RoomStatus{RoomPaymentSuccess}, RequestPaymentSuccess},
	{[]RoomStatus{RoomPaymentPending}, RequestPaymentPending},
	{[]RoomStatus{RoomBookingSuccess}, RequestClosed},
	{[]RoomStatus{RoomApproved}, RequestApproved},
	{[]RoomStatus{RoomSentForApproval, RoomWaitingForApproval}, RequestSentForApproval},
}

// DeriveRequestStatus computes the request status from the statuses of every
// room across all hotel options of the request. It depends only on the set of
// statuses, never on their order.
func DeriveRequestStatus(rooms []RoomStatus) RequestStatus {
	rs, _ := Derive(rooms)
	return rs
}

// Derive is DeriveRequestStatus that also reports whether any non-empty room
// status was present. Callers keep the stored status when ok is false.
func Derive(rooms []RoomStatus) (rs RequestStatus, ok bool) {
	present := make(map[RoomStatus]bool, len(rooms))
	for _, r := range rooms {
		if r == "" {
			continue
		}
		present[r] = true
	}
	if len(present) == 0 {
		return RequestPending, false
	}

	for _, p := range precedence {
		for _, r := range p.rooms {
			if present[r] {
				return p.request, true
			}
		}
	}

	for r := range present {
		if !r.IsRejected() {
			return RequestPending, true
		}
	}
	return RequestCancelled, true
}
