package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/status"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// Text accepts a JSON string, number or boolean and keeps it as text
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Number accepts a JSON number or a numeric string. Malformed input is kept
// and reported by validation with the field name.
type Number struct {
	Value float64
	Set   bool
	raw   string
	bad   bool
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}

	n.raw = raw
	n.Set = true
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		n.bad = true
		return nil
	}
	n.Value = v
	return nil
}

func (n Number) float(field string) (float64, error) {
	if n.bad || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return 0, errs.Validationf("%s must be a number, got %q", field, n.raw)
	}
	return n.Value, nil
}

func (n Number) nonNegative(field string) (float64, error) {
	v, err := n.float(field)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errs.Validationf("%s cannot be negative", field)
	}
	return v, nil
}

func (n Number) count(field string) (int, error) {
	v, err := n.nonNegative(field)
	if err != nil {
		return 0, err
	}
	if v != float64(int64(v)) {
		return 0, errs.Validationf("%s must be a whole number, got %q", field, n.raw)
	}
	return int(v), nil
}

// Embedded decodes a nested object that may also arrive as a JSON-encoded
// string. Decode failures are kept for validation.
type Embedded[T any] struct {
	Value T
	Set   bool
	err   error
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Embedded[T]) UnmarshalJSON(data []byte) error {
	*e = Embedded[T]{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		data = []byte(s)
	}

	e.Set = true
	if err := json.Unmarshal(data, &e.Value); err != nil {
		e.err = err
	}
	return nil
}

func (e Embedded[T]) check(field string) error {
	if e.err != nil {
		return errs.Validationf("%s is not valid JSON: %v", field, e.err)
	}
	return nil
}

// RawText keeps a string as is and any other JSON value as its compact
// encoding
type RawText string

// UnmarshalJSON implements json.Unmarshaler
func (r *RawText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawText(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*r = RawText(buf.String())
	}
	return nil
}

// WebhookHotel is the hotel block of a supplier callback
type WebhookHotel struct {
	ID      Text   `json:"id"`
	Name    Text   `json:"name"`
	Address Text   `json:"address"`
	City    Text   `json:"city"`
	Country Text   `json:"country"`
	Phone   Text   `json:"phone"`
	Rating  Number `json:"rating"`
}

// WebhookContact is the booking holder block of a supplier callback
type WebhookContact struct {
	FirstName Text `json:"first_name"`
	LastName  Text `json:"last_name"`
	Email     Text `json:"email"`
	Phone     Text `json:"phone"`
}

// WebhookRoom is one booked room of a supplier callback
type WebhookRoom struct {
	RoomID   Text   `json:"room_id"`
	RateID   Text   `json:"room_rate_id"`
	RoomName Text   `json:"room_name"`
	Price    Number `json:"price"`
	Tax      Number `json:"tax"`
	Quantity Number `json:"quantity"`
}

// WebhookGuest is one named occupant of a supplier callback
type WebhookGuest struct {
	FirstName Text `json:"first_name"`
	LastName  Text `json:"last_name"`
	Type      Text `json:"type"`
}

// BookingWebhook is the supplier confirmation payload accepted by the
// confirm and create entrypoints
type BookingWebhook struct {
	ClientReference    Text                     `json:"client_reference"`
	BookingID          Text                     `json:"booking_id"`
	ConfirmationNumber Text                     `json:"confirmation_number"`
	Status             Text                     `json:"status"`
	Hotel              Embedded[WebhookHotel]   `json:"hotel"`
	Contact            Embedded[WebhookContact] `json:"contact"`
	Rooms              Embedded[[]WebhookRoom]  `json:"rooms"`
	Guests             Embedded[[]WebhookGuest] `json:"guests"`
	CancellationPolicy RawText                  `json:"cancellation_policy"`
	CheckIn            Text                     `json:"check_in"`
	CheckOut           Text                     `json:"check_out"`
	TotalPrice         Number                   `json:"total_price"`
	Tax                Number                   `json:"tax"`
	Currency           Text                     `json:"currency"`
	RoomCount          Number                   `json:"room_count"`
	Adults             Number                   `json:"adults"`
	Children           Number                   `json:"children"`
}

// bookingDetails is a webhook after validation
type bookingDetails struct {
	ClientReference    string
	BookingID          string
	ConfirmationNumber string
	Status             status.BookingStatus
	Hotel              entity.Hotel
	Contact            entity.Contact
	Rooms              []entity.BookedRoom
	Guests             []entity.Guest
	CancellationPolicy string
	CheckIn            time.Time // zero when omitted
	CheckOut           time.Time
	TotalPrice         float64
	HasTotal           bool
	Tax                float64
	Currency           string
	RoomCount          int
	HasRoomCount       bool
	Adults             int
	HasAdults          bool
	Children           int
	HasChildren        bool
}

// Validate checks every field of the payload before anything is read from
// storage. requireConfirmation is set by the confirm entrypoint.
func (w *BookingWebhook) Validate(requireConfirmation bool) (*bookingDetails, error) {
	d := &bookingDetails{
		ClientReference:    w.ClientReference.String(),
		BookingID:          w.BookingID.String(),
		ConfirmationNumber: w.ConfirmationNumber.String(),
		Status:             status.BookingStatus(strings.ToLower(w.Status.String())),
		CancellationPolicy: string(w.CancellationPolicy),
		Currency:           strings.ToUpper(w.Currency.String()),
	}

	if d.ClientReference == "" {
		return nil, errs.Validationf("client_reference is required")
	}
	if d.BookingID == "" {
		return nil, errs.Validationf("booking_id is required")
	}
	if requireConfirmation && d.ConfirmationNumber == "" {
		return nil, errs.Validationf("confirmation_number is required")
	}
	if !d.Status.IsValid() {
		return nil, errs.Validationf("status must be one of confirmed, cancelled, pending, completed; got %q", w.Status)
	}

	if err := w.Hotel.check("hotel"); err != nil {
		return nil, err
	}
	if !w.Hotel.Set || w.Hotel.Value.ID == "" {
		return nil, errs.Validationf("hotel.id is required")
	}
	rating, err := w.Hotel.Value.Rating.float("hotel.rating")
	if err != nil {
		return nil, err
	}
	h := w.Hotel.Value
	d.Hotel = entity.Hotel{
		ID:      h.ID.String(),
		Name:    h.Name.String(),
		Address: h.Address.String(),
		City:    h.City.String(),
		Country: h.Country.String(),
		Phone:   h.Phone.String(),
		Rating:  rating,
	}

	if d.TotalPrice, err = w.TotalPrice.nonNegative("total_price"); err != nil {
		return nil, err
	}
	d.HasTotal = w.TotalPrice.Set
	if d.Tax, err = w.Tax.nonNegative("tax"); err != nil {
		return nil, err
	}
	if d.RoomCount, err = w.RoomCount.count("room_count"); err != nil {
		return nil, err
	}
	d.HasRoomCount = w.RoomCount.Set
	if d.Adults, err = w.Adults.count("adults"); err != nil {
		return nil, err
	}
	d.HasAdults = w.Adults.Set
	if d.Children, err = w.Children.count("children"); err != nil {
		return nil, err
	}
	d.HasChildren = w.Children.Set

	if err := w.Contact.check("contact"); err != nil {
		return nil, err
	}
	c := w.Contact.Value
	d.Contact = entity.Contact{
		FirstName: c.FirstName.String(),
		LastName:  c.LastName.String(),
		Email:     c.Email.String(),
		Phone:     c.Phone.String(),
	}

	if err := w.Rooms.check("rooms"); err != nil {
		return nil, err
	}
	d.Rooms = make([]entity.BookedRoom, 0, len(w.Rooms.Value))
	for i, r := range w.Rooms.Value {
		price, err := r.Price.nonNegative(indexed("rooms", i, "price"))
		if err != nil {
			return nil, err
		}
		tax, err := r.Tax.nonNegative(indexed("rooms", i, "tax"))
		if err != nil {
			return nil, err
		}
		qty, err := r.Quantity.count(indexed("rooms", i, "quantity"))
		if err != nil {
			return nil, err
		}
		d.Rooms = append(d.Rooms, entity.BookedRoom{
			RoomID:   r.RoomID.String(),
			RateID:   r.RateID.String(),
			RoomName: r.RoomName.String(),
			Price:    price,
			Tax:      tax,
			Quantity: qty,
		})
	}

	if err := w.Guests.check("guests"); err != nil {
		return nil, err
	}
	d.Guests = make([]entity.Guest, 0, len(w.Guests.Value))
	for _, g := range w.Guests.Value {
		d.Guests = append(d.Guests, entity.Guest{
			FirstName: g.FirstName.String(),
			LastName:  g.LastName.String(),
			Type:      g.Type.String(),
		})
	}

	if w.CheckIn != "" {
		if d.CheckIn, err = parseDay("check_in", w.CheckIn.String()); err != nil {
			return nil, err
		}
	}
	if w.CheckOut != "" {
		if d.CheckOut, err = parseDay("check_out", w.CheckOut.String()); err != nil {
			return nil, err
		}
	}
	if !d.CheckIn.IsZero() && !d.CheckOut.IsZero() && !d.CheckIn.Before(d.CheckOut) {
		return nil, errs.Validationf("check_in must be before check_out")
	}

	return d, nil
}

func indexed(list string, i int, field string) string {
	return list + "[" + strconv.Itoa(i) + "]." + field
}
