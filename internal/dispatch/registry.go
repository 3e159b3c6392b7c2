// Package dispatch routes gateway dispatch events to tagged handlers.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// ErrDuplicateTag is returned when a handler with the same tag is already
// registered for an event type.
var ErrDuplicateTag = errors.New("dispatch: handler tag already registered")

// Handler handles the payload of one dispatch event.
// Returning an error logs the failure; it never affects the session.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Registry maps (event type, tag) pairs to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]taggedHandler
	inflight sync.WaitGroup
	log      *logging.Logger
	metrics  *metrics.Metrics
}

type taggedHandler struct {
	tag     string
	handler Handler
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(log *logging.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		handlers: make(map[string][]taggedHandler),
		log:      log.Sub("dispatch"),
		metrics:  m,
	}
}

// Register adds a handler for event under tag. A second registration of the
// same (event, tag) pair fails with ErrDuplicateTag and leaves the first in place.
func (r *Registry) Register(event, tag string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.handlers[event] {
		if existing.tag == tag {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateTag, event, tag)
		}
	}
	r.handlers[event] = append(r.handlers[event], taggedHandler{tag: tag, handler: h})
	r.log.Debug().Str("event", event).Str("tag", tag).Msg("handler registered")
	return nil
}

// Unregister removes the handler registered for event under tag and reports
// whether one was present.
func (r *Registry) Unregister(event, tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := r.handlers[event]
	for i, h := range handlers {
		if h.tag != tag {
			continue
		}
		filtered := make([]taggedHandler, 0, len(handlers)-1)
		filtered = append(filtered, handlers[:i]...)
		filtered = append(filtered, handlers[i+1:]...)
		if len(filtered) == 0 {
			delete(r.handlers, event)
		} else {
			r.handlers[event] = filtered
		}
		r.log.Debug().Str("event", event).Str("tag", tag).Msg("handler unregistered")
		return true
	}
	return false
}

// Dispatch starts every handler registered for event in its own goroutine and
// returns the number started without waiting for any of them. Registrations
// that change after Dispatch takes its snapshot do not affect this delivery.
func (r *Registry) Dispatch(ctx context.Context, event string, payload json.RawMessage) int {
	r.mu.RLock()
	handlers := make([]taggedHandler, len(r.handlers[event]))
	copy(handlers, r.handlers[event])
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.log.Trace().Str("event", event).Msg("no handlers")
		return 0
	}

	r.inflight.Add(len(handlers))
	for _, h := range handlers {
		go r.run(ctx, event, h, payload)
	}
	return len(handlers)
}

func (r *Registry) run(ctx context.Context, event string, h taggedHandler, payload json.RawMessage) {
	defer r.inflight.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordHandler(event, "panic")
			r.log.Error().
				Str("event", event).
				Str("tag", h.tag).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("handler panicked")
		}
	}()

	if err := h.handler(ctx, payload); err != nil {
		r.metrics.RecordHandler(event, "error")
		r.log.Warn().
			Err(err).
			Str("event", event).
			Str("tag", h.tag).
			Msg("handler error")
		return
	}
	r.metrics.RecordHandler(event, "ok")
}

// Wait blocks until every handler started by Dispatch has returned.
func (r *Registry) Wait() {
	r.inflight.Wait()
}

// Count returns the number of handlers registered for an event.
func (r *Registry) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Events returns the sorted event types that have at least one handler.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]string, 0, len(r.handlers))
	for event := range r.handlers {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}
