package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/destiin/travel-booking/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, fmt.Sprint(append([]interface{}{msg}, keysAndValues...)...))
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func newEvent(t event.Type) *event.Event {
	return event.NewEvent(t, "E1_2026-08-01_2026-08-02", 1, nil)
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string
		d.Subscribe(event.TypeBookingMaterialized, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.Subscribe(event.TypeBookingMaterialized, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		if err := d.Dispatch(context.Background(), newEvent(event.TypeBookingMaterialized)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		secondCalled := false
		d.Subscribe(event.TypeBookingConfirmed, func(ctx context.Context, evt *event.Event) error {
			return errors.New("boom")
		})
		d.Subscribe(event.TypeBookingConfirmed, func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		})

		if err := d.Dispatch(context.Background(), newEvent(event.TypeBookingConfirmed)); err == nil {
			t.Fatal("expected error")
		}
		if secondCalled {
			t.Error("second handler should not run after an error")
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe(event.TypeBookingConfirmed, func(ctx context.Context, evt *event.Event) error {
			panic("kaboom")
		})

		err := d.Dispatch(context.Background(), newEvent(event.TypeBookingConfirmed))
		if err == nil {
			t.Fatal("expected error from panicking handler")
		}
	})

	t.Run("fails after close", func(t *testing.T) {
		d := NewDispatcher()
		_ = d.Close()
		if err := d.Dispatch(context.Background(), newEvent(event.TypeBookingConfirmed)); err == nil {
			t.Error("expected error when dispatcher is closed")
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("survives caller cancellation", func(t *testing.T) {
		d := NewDispatcher()
		var sawCancel atomic.Bool
		release := make(chan struct{})
		done := make(chan struct{})

		d.Subscribe(event.TypeBookingMaterialized, func(ctx context.Context, evt *event.Event) error {
			defer close(done)
			<-release
			if ctx.Err() != nil {
				sawCancel.Store(true)
			}
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		if n := d.DispatchAsync(ctx, newEvent(event.TypeBookingMaterialized)); n != 1 {
			t.Fatalf("started %d handlers, want 1", n)
		}
		cancel()
		close(release)
		<-done

		if sawCancel.Load() {
			t.Error("async handler context was cancelled with the caller")
		}
		_ = d.Close()
	})

	t.Run("applies handler timeout", func(t *testing.T) {
		d := NewDispatcher()
		var deadlineHit atomic.Bool
		d.SubscribeNamed(event.TypeBookingMaterialized, "slow", 20*time.Millisecond, func(ctx context.Context, evt *event.Event) error {
			<-ctx.Done()
			deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})

		d.DispatchAsync(context.Background(), newEvent(event.TypeBookingMaterialized))
		_ = d.Close()

		if !deadlineHit.Load() {
			t.Error("expected handler to observe its deadline")
		}
	})

	t.Run("errors only reach logs", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.Subscribe(event.TypeBookingConfirmed, func(ctx context.Context, evt *event.Event) error {
			return errors.New("email down")
		})

		d.DispatchAsync(context.Background(), newEvent(event.TypeBookingConfirmed))
		_ = d.Close()

		if logger.ErrorCount() != 1 {
			t.Errorf("error count = %d, want 1", logger.ErrorCount())
		}
	})

	t.Run("no handlers", func(t *testing.T) {
		d := NewDispatcher()
		if n := d.DispatchAsync(context.Background(), newEvent(event.TypeBookingCancelled)); n != 0 {
			t.Errorf("started %d handlers, want 0", n)
		}
	})

	t.Run("closed dispatcher starts nothing", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		called := false
		d.Subscribe(event.TypeBookingConfirmed, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})
		_ = d.Close()

		if n := d.DispatchAsync(context.Background(), newEvent(event.TypeBookingConfirmed)); n != 0 {
			t.Errorf("started %d handlers, want 0", n)
		}
		if called {
			t.Error("handler ran after close")
		}
	})
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()
	d.SubscribeNamed(event.TypeBookingMaterialized, "price-comparison", time.Minute, func(ctx context.Context, evt *event.Event) error {
		return nil
	})

	handlers := d.ListHandlers(event.TypeBookingMaterialized)
	if len(handlers) != 1 {
		t.Fatalf("len = %d, want 1", len(handlers))
	}
	if handlers[0].Name != "price-comparison" || handlers[0].Timeout != time.Minute {
		t.Errorf("unexpected handler info: %+v", handlers[0])
	}
	if handlers[0].Handler != nil {
		t.Error("handler function should not be exposed")
	}
}

func TestClose_Twice(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("second close should fail")
	}
}
