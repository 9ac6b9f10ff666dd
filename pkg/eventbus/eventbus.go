// Package eventbus defines the contract for distributing ledger events to
// interested consumers. Delivery is at-least-once: a handler may observe the
// same event more than once and must be idempotent.
package eventbus

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/event"
)

// HandlerFunc processes one delivered event. Returning an error signals the
// bus that the delivery failed; it must not panic.
type HandlerFunc func(ctx context.Context, e *event.Event) error

// Bus publishes appended events and supports independent subscription per
// event type. Emit is fire-and-forget relative to consumers: it returns once
// the event is handed to the fabric, never waiting for handler acknowledgment.
type Bus interface {
	Emit(ctx context.Context, e *event.Event) error
	Register(eventType string, handler HandlerFunc)
	Close() error
}
