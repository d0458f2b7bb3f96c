package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names the kind of background event delivered to a function group.
// The trigger transport (queue, scheduler, platform runtime) is supplied by
// the embedding program; regfold only defines the contract handlers are
// registered against.
type Type string

// Event envelopes the payload delivered to a background handler.
type Event struct {
	ID         string         // globally unique event identifier
	Type       Type           // event kind identifier
	OccurredAt time.Time      // timestamp of emission
	Group      string         // deployment group the event targets
	Function   string         // logical function name, when addressed to one
	Metadata   map[string]any // extensible payload
}

// New returns an Event stamped with a fresh ID and the current time.
func New(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: time.Now().UTC()}
}

// Handler reacts to an Event. Implementations should be idempotent.
type Handler func(context.Context, Event) error

// Dispatcher fans an event out to a set of handlers. It is the minimal
// invocation surface for a published reactive group: the daemon and tests
// use it to drive the handlers a construction pass produced.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// Register adds a handler. Handlers fire sequentially in registration order.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Emit delivers an event to all registered handlers. Errors are aggregated
// so callers can surface each failure.
func (d *Dispatcher) Emit(ctx context.Context, evt Event) error {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
