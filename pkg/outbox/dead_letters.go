package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/foodops-backend/pkg/errors"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DeadLetters is the admin view over events the publisher gave up on.
type DeadLetters struct {
	dlq    *DLQRepository
	events *Repository
	tx     txRunner
	logg   *logger.Logger
}

func NewDeadLetters(dlq *DLQRepository, events *Repository, tx txRunner, logg *logger.Logger) (*DeadLetters, error) {
	if dlq == nil || events == nil || tx == nil {
		return nil, errors.New("outbox: dead letters need both repositories and a transaction runner")
	}
	return &DeadLetters{dlq: dlq, events: events, tx: tx, logg: logg}, nil
}

func (d *DeadLetters) List(ctx context.Context, limit int, before *time.Time) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 50
	}
	return d.dlq.List(ctx, limit, before)
}

// Replay moves a dead letter back into the outbox in one transaction.
func (d *DeadLetters) Replay(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	var queued models.OutboxEvent
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		letter, err := d.dlq.LockTx(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dead letter")
		}

		queued = letter.Requeue()
		if err := d.events.Insert(tx, queued); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "requeue dead letter")
		}
		return d.dlq.DeleteTx(tx, letter.ID)
	})
	if err != nil {
		return nil, err
	}

	if d.logg != nil {
		d.logg.Info(d.logg.WithFields(ctx, map[string]any{
			"dead_letter_id": id.String(),
			"outbox_id":      queued.ID.String(),
			"event_type":     queued.EventType,
		}), "dead letter requeued")
	}
	return &queued, nil
}
