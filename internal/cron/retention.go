package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

const (
	outboxRetentionDays       = 30
	notificationRetentionDays = 30
	// rows that needed this many publish attempts are kept for inspection
	outboxMinAttempts = 5
)

// purgeJob deletes everything older than a day-based window in one
// transaction and logs how many rows went.
type purgeJob struct {
	name      string
	logg      *logger.Logger
	tx        txRunner
	days      int
	now       func() time.Time
	delete    func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	logFields map[string]any
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var removed int64
	if err := j.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.delete(ctx, tx, cutoff)
		removed = n
		return err
	}); err != nil {
		return err
	}

	fields := map[string]any{"cutoff": cutoff, "retention_days": j.days, "rows_deleted": removed}
	for k, v := range j.logFields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "purge complete")
	return nil
}

func newPurgeJob(name string, logg *logger.Logger, tx txRunner, days, fallbackDays int, now func() time.Time) (*purgeJob, error) {
	if logg == nil {
		return nil, errors.New(name + ": logger required")
	}
	if tx == nil {
		return nil, errors.New(name + ": transaction runner required")
	}
	if days <= 0 {
		days = fallbackDays
	}
	if now == nil {
		now = time.Now
	}
	return &purgeJob{name: name, logg: logg, tx: tx, days: days, now: now}, nil
}

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
	Now         func() time.Time
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// NewOutboxRetentionJob drops published outbox rows past the window.
// Unpublished rows stay until the publisher settles them.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	job, err := newPurgeJob("outbox-retention", params.Logger, params.DB, params.Retention, outboxRetentionDays, params.Now)
	if err != nil {
		return nil, err
	}
	if params.Repository == nil {
		return nil, errors.New("outbox-retention: repository required")
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	job.logFields = map[string]any{"min_attempts": minAttempts}
	job.delete = func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return params.Repository.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
	}
	return job, nil
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  int
	Now        func() time.Time
}

type notificationsCleanupRepo interface {
	DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob drops read notifications past the window. Unread
// ones are kept however old they are.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	job, err := newPurgeJob("notification-cleanup", params.Logger, params.DB, params.Retention, notificationRetentionDays, params.Now)
	if err != nil {
		return nil, err
	}
	if params.Repository == nil {
		return nil, errors.New("notification-cleanup: repository required")
	}
	job.delete = params.Repository.DeleteReadOlderThan
	return job, nil
}
