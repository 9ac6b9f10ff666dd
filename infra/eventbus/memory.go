// Package eventbus provides the bus adapters: an in-memory bus for tests and
// development and a Redis Streams bus for production.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/eventbus"
)

// MemoryEventBus is a simple in-memory implementation of the Bus interface.
// Handlers run synchronously in Emit's goroutine; handler errors are logged,
// matching the at-least-once, best-effort contract of the Redis bus.
type MemoryEventBus struct {
	handlers  map[string][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []event.Event
}

// NewWithMemory creates a new in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers: make(map[string][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "memory"),
	}
}

// Register registers a handler for a specific event type.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches the event to all registered handlers for its type.
func (b *MemoryEventBus) Emit(ctx context.Context, e *event.Event) error {
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[e.EventType]...)
	b.mu.RUnlock()

	b.mu.Lock()
	b.published = append(b.published, *e)
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, e); err != nil {
			b.logger.Error("handler error",
				"event_type", e.EventType, "event_id", e.ID, "error", err)
		}
	}
	return nil
}

// Close implements eventbus.Bus.
func (b *MemoryEventBus) Close() error { return nil }

// Published returns the events emitted so far. Useful for testing.
func (b *MemoryEventBus) Published() []event.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]event.Event, len(b.published))
	copy(out, b.published)
	return out
}

// ClearPublished clears the recorded events. Useful for testing.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
}

// Ensure MemoryEventBus implements the Bus interface.
var _ eventbus.Bus = (*MemoryEventBus)(nil)
