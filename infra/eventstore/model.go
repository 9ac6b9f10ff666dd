package eventstore

import (
	"encoding/json"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/google/uuid"
)

// Model is the gorm row for one stored event. The event_id uniqueness
// constraint is the store-level guard against duplicate appends; sequence is
// a monotonic insert counter used as the ordering tie-break when created_at
// collides.
type Model struct {
	EventID       uuid.UUID       `gorm:"type:uuid;column:event_id;uniqueIndex;not null"`
	AggregateID   string          `gorm:"column:aggregate_id;index;not null"`
	AggregateType string          `gorm:"column:aggregate_type;not null"`
	EventType     string          `gorm:"column:event_type;index;not null"`
	EventData     json.RawMessage `gorm:"type:jsonb;column:event_data"`
	EventVersion  int             `gorm:"column:event_version;not null;default:1"`
	Sequence      uint64          `gorm:"column:sequence;primaryKey;autoIncrement"`
	CreatedAt     time.Time       `gorm:"column:created_at;index;not null"`
}

// TableName specifies the table name for the event model.
func (Model) TableName() string {
	return "events"
}

func toModel(e *event.Event) Model {
	return Model{
		EventID:       e.ID,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		EventType:     e.EventType,
		EventData:     e.Data,
		EventVersion:  e.Version,
		CreatedAt:     e.CreatedAt,
	}
}

func toDomain(m *Model) event.Event {
	return event.Event{
		ID:            m.EventID,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		EventType:     m.EventType,
		Data:          m.EventData,
		Version:       m.EventVersion,
		Sequence:      m.Sequence,
		CreatedAt:     m.CreatedAt,
	}
}
