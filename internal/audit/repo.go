package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

// Repository appends and reads audit rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Append inserts entry unless its event id was already recorded. It
	// reports whether a row was written.
	Append(ctx context.Context, entry *models.AuditLog) (bool, error)
	List(ctx context.Context, params listAuditParams) ([]models.AuditLog, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

type listAuditParams struct {
	AggregateType *enums.OutboxAggregateType
	AggregateID   *uuid.UUID
	EventType     *enums.OutboxEventType
	Limit         int
	Cursor        *pagination.Cursor
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.AuditLog) (bool, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, params listAuditParams) ([]models.AuditLog, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if params.AggregateType != nil {
		query = query.Where("aggregate_type = ?", *params.AggregateType)
	}
	if params.AggregateID != nil {
		query = query.Where("aggregate_id = ?", *params.AggregateID)
	}
	if params.EventType != nil {
		query = query.Where("event_type = ?", *params.EventType)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(row models.AuditLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return page, next, nil
}
