package eventstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/eventstore"
)

// ErrDuplicateEvent mirrors the unique event_id constraint of the gorm store.
var ErrDuplicateEvent = errors.New("duplicate event_id")

// MemoryStore is an in-memory event store with the same ordering and
// uniqueness semantics as the gorm store. Used in tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	events []event.Event
	ids    map[string]bool
	seq    uint64
}

// NewMemory creates an empty in-memory event store.
func NewMemory() *MemoryStore {
	return &MemoryStore{ids: make(map[string]bool)}
}

// Append implements eventstore.Store.
func (m *MemoryStore) Append(ctx context.Context, e *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.append(e)
}

// AppendAll implements eventstore.Store. All events are inserted or none.
func (m *MemoryStore) AppendAll(ctx context.Context, events ...*event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		if m.ids[e.ID.String()] {
			return ErrDuplicateEvent
		}
	}
	for _, e := range events {
		if err := m.append(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) append(e *event.Event) error {
	if m.ids[e.ID.String()] {
		return ErrDuplicateEvent
	}
	m.seq++
	e.Sequence = m.seq
	m.ids[e.ID.String()] = true
	m.events = append(m.events, *e)
	return nil
}

// ByAggregate implements eventstore.Store.
func (m *MemoryStore) ByAggregate(
	ctx context.Context,
	aggregateID string,
	types []string,
	upTo *time.Time,
) ([]event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var out []event.Event
	for _, e := range m.events {
		if e.AggregateID != aggregateID {
			continue
		}
		if len(types) > 0 && !typeSet[e.EventType] {
			continue
		}
		if upTo != nil && e.CreatedAt.After(*upTo) {
			continue
		}
		out = append(out, e)
	}
	sortAscending(out)
	return out, nil
}

// AccountExists implements eventstore.Store.
func (m *MemoryStore) AccountExists(ctx context.Context, aggregateID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.AggregateID == aggregateID && e.EventType == event.TypeAccountCreated {
			return true, nil
		}
	}
	return false, nil
}

// All implements eventstore.Store.
func (m *MemoryStore) All(ctx context.Context, upTo *time.Time, limit int) ([]event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []event.Event
	for _, e := range m.events {
		if upTo != nil && e.CreatedAt.After(*upTo) {
			continue
		}
		out = append(out, e)
	}
	sortAscending(out)
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Scan implements eventstore.Store.
func (m *MemoryStore) Scan(ctx context.Context, fn func(e *event.Event) error) error {
	m.mu.RLock()
	snapshot := make([]event.Event, len(m.events))
	copy(snapshot, m.events)
	m.mu.RUnlock()

	sortAscending(snapshot)
	for i := range snapshot {
		if err := fn(&snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

func sortAscending(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].Sequence < events[j].Sequence
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}

var _ eventstore.Store = (*MemoryStore)(nil)
