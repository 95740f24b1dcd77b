package dispatcher

import (
	"context"
	"time"

	"github.com/destiin/travel-booking/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
	// Timeout bounds one asynchronous run of the handler; zero means the
	// dispatcher default.
	Timeout time.Duration
}
