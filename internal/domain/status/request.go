package status

// RequestStatus is the aggregate status of a travel request
type RequestStatus string

const (
	RequestPending         RequestStatus = "req_pending"
	RequestSentForApproval RequestStatus = "req_sent_for_approval"
	RequestApproved        RequestStatus = "req_approved"
	RequestPaymentPending  RequestStatus = "req_payment_pending"
	RequestPaymentSuccess  RequestStatus = "req_payment_success"
	RequestClosed          RequestStatus = "req_closed"
	RequestCancelled       RequestStatus = "req_cancelled"
)

var requestStatusCodes = map[RequestStatus]int{
	RequestPending:         0,
	RequestSentForApproval: 1,
	RequestApproved:        2,
	RequestPaymentPending:  3,
	RequestPaymentSuccess:  4,
	RequestClosed:          5,
	RequestCancelled:       6,
}

// requestRoomFilter selects which rooms a request view shows in a given status
var requestRoomFilter = map[RequestStatus]RoomStatus{
	RequestSentForApproval: RoomSentForApproval,
	RequestApproved:        RoomApproved,
	RequestPaymentPending:  RoomPaymentPending,
	RequestPaymentSuccess:  RoomPaymentSuccess,
}

// String returns the string representation of the status
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known request status
func (s RequestStatus) IsValid() bool {
	_, ok := requestStatusCodes[s]
	return ok
}

// Code returns the numeric code clients use for the status, -1 when unknown
func (s RequestStatus) Code() int {
	if code, ok := requestStatusCodes[s]; ok {
		return code
	}
	return -1
}

// RoomFilter returns the room status a request view is narrowed to.
// ok is false when every room should be shown.
func (s RequestStatus) RoomFilter() (RoomStatus, bool) {
	rs, ok := requestRoomFilter[s]
	return rs, ok
}
