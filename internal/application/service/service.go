package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/domain/event"
	"github.com/destiin/travel-booking/internal/pkg/errs"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Publisher hands events to background handlers
type Publisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event) int
}

// Result is the outcome of every service entrypoint. Business failures are
// reported here rather than as Go errors; Kind carries the errs
// classification for the transport layer.
type Result struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Kind    string      `json:"-"`
}

// Selection names rooms of one hotel option by rate id
type Selection struct {
	HotelID     string   `json:"hotel_id"`
	RoomRateIDs []string `json:"room_rate_ids"`
}

func succeed(data interface{}) *Result {
	return &Result{Success: true, Data: data}
}

// fail converts err into a failed Result. Unclassified errors are logged with
// their stack.
func fail(logger Logger, op string, err error) *Result {
	kind := errs.KindOf(err)
	if errs.IsExpected(err) {
		logger.Info(op+" rejected", "kind", kind, "reason", err.Error())
	} else {
		logger.Error(op+" failed", "error", err, "stack", strings.Join(errs.ExtractStackLines(err, 12), "\n"))
	}
	return &Result{Success: false, Error: err.Error(), Kind: kind}
}

func validateSelections(selections []Selection) error {
	if len(selections) == 0 {
		return errs.Validationf("selected_items is required and cannot be empty")
	}
	for i, sel := range selections {
		if strings.TrimSpace(sel.HotelID) == "" {
			return errs.Validationf("selected_items[%d].hotel_id is required", i)
		}
		if len(sel.RoomRateIDs) == 0 {
			return errs.Validationf("selected_items[%d].room_rate_ids is required for hotel %s", i, sel.HotelID)
		}
	}
	return nil
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var dayLayouts = []string{
	entity.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// parseDay parses a calendar date. Any time of day is dropped.
func parseDay(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errs.Validationf("%s is required", field)
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errs.Validationf("%s must be a date (YYYY-MM-DD), got %q", field, value)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(entity.DateLayout)
}
