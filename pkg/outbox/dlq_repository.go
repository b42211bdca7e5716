package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
)

// error text beyond this is cut before it reaches the dead letter table
const maxDLQErrorLen = 1024

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errNoTx
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	if entry.ErrorMessage != nil {
		msg := clip(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List pages dead letters newest first. before, when set, is the FailedAt of
// the last row already seen.
func (r *DLQRepository) List(ctx context.Context, limit int, before *time.Time) ([]models.OutboxDLQ, error) {
	q := r.db.WithContext(ctx).Order("failed_at DESC").Order("id DESC").Limit(limit)
	if before != nil {
		q = q.Where("failed_at < ?", *before)
	}
	var rows []models.OutboxDLQ
	return rows, q.Find(&rows).Error
}

// LockTx loads one dead letter with a row lock for replay.
func (r *DLQRepository) LockTx(tx *gorm.DB, id uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *DLQRepository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&models.OutboxDLQ{}).Error
}
