package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/pagination"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, rows []models.Notification) error
	List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, inbox Inbox, id uuid.UUID, at time.Time) (readOutcome, error)
	MarkAllRead(ctx context.Context, inbox Inbox, at time.Time) (int64, error)
	DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// Inbox is what one reader sees: rows addressed to them and, for admins,
// rows with no recipient.
type Inbox struct {
	Audience    enums.NotificationAudience
	RecipientID uuid.UUID
}

func (in Inbox) scope(q *gorm.DB) *gorm.DB {
	q = q.Where("audience = ?", in.Audience)
	if in.Audience == enums.NotificationAudienceAdmin {
		return q.Where("(recipient_id IS NULL OR recipient_id = ?)", in.RecipientID)
	}
	return q.Where("recipient_id = ?", in.RecipientID)
}

type listQuery struct {
	Inbox      Inbox
	Limit      int
	After      *pagination.Cursor
	UnreadOnly bool
}

type readOutcome int

const (
	readMissing readOutcome = iota
	readAlready
	readMarked
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Insert writes rows in one statement, filling in missing ids in place.
func (r *repository) Insert(ctx context.Context, tx *gorm.DB, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.conn(ctx, tx).Create(&rows).Error
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	query := q.Inbox.scope(r.db.WithContext(ctx).Model(&models.Notification{}))
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if q.After != nil {
		query = query.Where("(created_at, id) < (?, ?)", q.After.CreatedAt, q.After.ID)
	}

	var rows []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *repository) MarkRead(ctx context.Context, inbox Inbox, id uuid.UUID, at time.Time) (readOutcome, error) {
	var row models.Notification
	err := inbox.scope(r.db.WithContext(ctx).Model(&models.Notification{})).
		Select("id", "read_at").
		Where("id = ?", id).
		Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return readMissing, nil
	case err != nil:
		return readMissing, err
	case row.ReadAt != nil:
		return readAlready, nil
	}

	err = r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at).Error
	if err != nil {
		return readMissing, err
	}
	return readMarked, nil
}

func (r *repository) MarkAllRead(ctx context.Context, inbox Inbox, at time.Time) (int64, error) {
	res := inbox.scope(r.db.WithContext(ctx).Model(&models.Notification{})).
		Where("read_at IS NULL").
		UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadOlderThan never touches unread rows, however old.
func (r *repository) DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := r.conn(ctx, tx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
