// Package dispatcher runs background work for domain events. Asynchronous
// handlers run on a context detached from the caller so that a finished or
// cancelled inbound request never cancels work it already handed off.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/destiin/travel-booking/internal/domain/event"
)

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name and its own async timeout
	SubscribeNamed(eventType event.Type, name string, timeout time.Duration, handler Handler)

	// Dispatch sends event to all registered handlers synchronously
	// Returns first error encountered (handlers run in order)
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync starts every handler in its own goroutine and returns
	// the number of handlers started. Handler errors are only logged.
	DispatchAsync(ctx context.Context, evt *event.Event) int

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close shuts down the dispatcher and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu             sync.RWMutex
	handlers       map[event.Type][]HandlerInfo
	logger         Logger
	defaultTimeout time.Duration

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// WithDefaultTimeout bounds async handlers that were registered without a timeout
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(d *eventDispatcher) {
		d.defaultTimeout = timeout
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers:       make(map[event.Type][]HandlerInfo),
		defaultTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler for an event type with an auto-generated name
func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.RLock()
	name := fmt.Sprintf("%s-handler-%d", eventType, len(d.handlers[eventType]))
	d.mu.RUnlock()
	d.SubscribeNamed(eventType, name, 0, handler)
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, timeout time.Duration, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
		Timeout:   timeout,
	})

	d.info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	for _, info := range d.snapshot(evt.Type) {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}

	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) int {
	if d.closed.Load() {
		d.error("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return 0
	}

	handlers := d.snapshot(evt.Type)
	d.info("Dispatching event asynchronously",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"request_booking_id", evt.RequestID,
		"handler_count", len(handlers),
	)

	detached := context.WithoutCancel(ctx)
	for _, info := range handlers {
		timeout := info.Timeout
		if timeout <= 0 {
			timeout = d.defaultTimeout
		}

		d.wg.Add(1)
		go func(h HandlerInfo, timeout time.Duration) {
			defer d.wg.Done()

			runCtx, cancel := context.WithTimeout(detached, timeout)
			defer cancel()

			started := time.Now()
			if err := d.safeExecute(runCtx, evt, h); err != nil {
				d.error("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", h.Name,
					"elapsed", time.Since(started).String(),
					"error", err,
				)
				return
			}
			d.info("Async handler finished",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", h.Name,
				"elapsed", time.Since(started).String(),
			)
		}(info, timeout)
	}

	return len(handlers)
}

func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.snapshot(eventType)
	for i := range handlers {
		handlers[i].Handler = nil
	}
	return handlers
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.info("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	d.info("Dispatcher closed")

	return nil
}

func (d *eventDispatcher) snapshot(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.error("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"panic", r,
			)
		}
	}()

	return info.Handler(ctx, evt)
}

func (d *eventDispatcher) info(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) error(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
