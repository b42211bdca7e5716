package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

// AuditLog is one row per consumed lifecycle event.
type AuditLog struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	ActorID       *uuid.UUID                `gorm:"column:actor_id;type:uuid"`
	ActorRole     *string                   `gorm:"column:actor_role"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	OccurredAt    time.Time                 `gorm:"column:occurred_at;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
