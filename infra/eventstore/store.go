// Package eventstore provides the gorm-backed append-only event log.
package eventstore

import (
	"context"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/eventstore"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

// New creates an event store using the provided *gorm.DB.
func New(db *gorm.DB) eventstore.Store {
	return &store{db: db}
}

// Migrate creates the events table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Model{})
}

// Append implements eventstore.Store.
func (s *store) Append(ctx context.Context, e *event.Event) error {
	m := toModel(e)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	e.Sequence = m.Sequence
	return nil
}

// AppendAll implements eventstore.Store. The inserts run in one transaction
// so a crash between the two legs of a transfer cannot leave a partial pair.
func (s *store) AppendAll(ctx context.Context, events ...*event.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range events {
			m := toModel(e)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			e.Sequence = m.Sequence
		}
		return nil
	})
}

// ByAggregate implements eventstore.Store.
func (s *store) ByAggregate(
	ctx context.Context,
	aggregateID string,
	types []string,
	upTo *time.Time,
) ([]event.Event, error) {
	q := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC, sequence ASC")
	if len(types) > 0 {
		q = q.Where("event_type IN ?", types)
	}
	if upTo != nil {
		q = q.Where("created_at <= ?", *upTo)
	}
	var models []Model
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return mapModels(models), nil
}

// AccountExists implements eventstore.Store.
func (s *store) AccountExists(ctx context.Context, aggregateID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Model{}).
		Where("aggregate_id = ? AND event_type = ?", aggregateID, event.TypeAccountCreated).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// All implements eventstore.Store.
func (s *store) All(ctx context.Context, upTo *time.Time, limit int) ([]event.Event, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, sequence DESC")
	if upTo != nil {
		q = q.Where("created_at <= ?", *upTo)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []Model
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return mapModels(models), nil
}

// Scan implements eventstore.Store. Rows are streamed in batches so a long
// event log does not have to fit in memory during catch-up.
func (s *store) Scan(ctx context.Context, fn func(e *event.Event) error) error {
	var models []Model
	return s.db.WithContext(ctx).
		Order("created_at ASC, sequence ASC").
		FindInBatches(&models, 500, func(tx *gorm.DB, batch int) error {
			for i := range models {
				e := toDomain(&models[i])
				if err := fn(&e); err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func mapModels(models []Model) []event.Event {
	events := make([]event.Event, 0, len(models))
	for i := range models {
		events = append(events, toDomain(&models[i]))
	}
	return events
}
