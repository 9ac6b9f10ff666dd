// Package eventstore defines the port for the append-only event log.
package eventstore

import (
	"context"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/event"
)

// Store is durable, queryable append-only storage of events with
// per-aggregate and global ordering. Events are never updated or deleted.
//
// The store assigns each appended event a monotonic Sequence used as the
// tie-break when created_at collides (the two legs of a transfer share one
// timestamp).
type Store interface {
	// Append inserts a single event. The event_id uniqueness constraint is
	// enforced by the store, not negotiated by the caller.
	Append(ctx context.Context, e *event.Event) error

	// AppendAll inserts the given events atomically: either all become
	// durable or none do. Used for the two legs of a transfer.
	AppendAll(ctx context.Context, events ...*event.Event) error

	// ByAggregate returns one aggregate's events, optionally filtered to a
	// type set and/or bounded by timestamp (inclusive), ordered ascending by
	// (created_at, sequence).
	ByAggregate(ctx context.Context, aggregateID string, types []string, upTo *time.Time) ([]event.Event, error)

	// AccountExists reports whether at least one AccountCreated event exists
	// for the aggregate.
	AccountExists(ctx context.Context, aggregateID string) (bool, error)

	// All returns events across all aggregates ordered descending by
	// (created_at, sequence), newest first, for audit/listing use.
	All(ctx context.Context, upTo *time.Time, limit int) ([]event.Event, error)

	// Scan walks the entire log ascending by (created_at, sequence), calling
	// fn for each event. Used by the projector's catch-up replay. A non-nil
	// error from fn stops the scan.
	Scan(ctx context.Context, fn func(e *event.Event) error) error
}
