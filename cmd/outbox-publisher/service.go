package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// broker is Pub/Sub or Kafka, whichever the deployment uses.
type broker interface {
	outbox.Publisher
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Broker        broker
	BrokerName    string
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Metrics       *metrics.OutboxMetrics
}

// Service is the relay: it claims unpublished outbox rows, hands them to the
// broker and records the outcome on each row, one batch per transaction.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	broker      broker
	brokerName  string
	registry    registryResolver
	dlq         dlqRepository
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"config", p.Config == nil},
		{"logger", p.Logger == nil},
		{"database client", p.DB == nil},
		{"broker", p.Broker == nil},
		{"outbox repository", p.Repository == nil},
		{"event registry", p.Registry == nil},
		{"dlq repository", p.DLQRepository == nil},
	} {
		if dep.missing {
			return nil, fmt.Errorf("outbox publisher: %s is required", dep.name)
		}
	}

	s := &Service{
		logg:        p.Logger,
		db:          p.DB,
		repo:        p.Repository,
		broker:      p.Broker,
		brokerName:  p.BrokerName,
		registry:    p.Registry,
		dlq:         p.DLQRepository,
		metrics:     p.Metrics,
		batchSize:   p.Config.Outbox.BatchSize,
		maxAttempts: p.Config.Outbox.MaxAttempts,
		poll:        time.Duration(p.Config.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if s.brokerName == "" {
		s.brokerName = "broker"
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.poll <= 0 {
		s.poll = defaultPoll
	}
	return s, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{s.brokerName, s.broker.Ping},
	}
	for _, c := range checks {
		if err := c.ping(ctx); err != nil {
			return fmt.Errorf("%s not reachable: %w", c.name, err)
		}
	}
	return nil
}

// Run drains the outbox until ctx ends. A full batch is followed straight
// away by the next one; an empty batch waits one poll interval; a failed
// batch backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	delay := s.poll
	for {
		busy, err := s.processBatch(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			delay = nextBackoff(delay, s.poll, maxBackoff)
			s.logg.Error(s.logg.WithField(ctx, "retry_in_ms", delay.Milliseconds()), "outbox batch failed", err)
		case busy:
			delay = s.poll
			continue
		default:
			delay = s.poll
		}

		if err := sleepCtx(ctx, withJitter(delay)); err != nil {
			return err
		}
	}
}

// processBatch reports whether any rows were claimed. Only bookkeeping
// errors come back; broker errors are recorded on the rows themselves.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := s.relay(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 {
		s.metrics.ObserveBatch(time.Since(started))
	}
	return claimed > 0, err
}

func (s *Service) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, rowFields(row))

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, row.AttemptCount, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})

	attempt := row.AttemptCount + 1
	err = s.publish(ctx, row, resolved)
	switch {
	case err == nil:
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		s.metrics.Published(string(row.EventType))
		s.logg.Info(ctx, "outbox event published")
		return nil

	case registry.IsNonRetryable(err):
		return s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, attempt, err)

	case attempt >= s.maxAttempts:
		return s.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, attempt,
			fmt.Errorf("gave up after %d attempts: %w", attempt, err))

	default:
		s.metrics.Retried(string(row.EventType))
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		}), "outbox publish failed, will retry")
		if err := s.repo.MarkFailedTx(tx, row.ID, err); err != nil {
			return fmt.Errorf("mark %s failed: %w", row.ID, err)
		}
		return nil
	}
}

// deadLetter copies the row into outbox_dlq and retires it in the same
// transaction, so a row is never both pending and dead-lettered.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, attempts int, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event dead-lettered")

	if err := s.dlq.InsertTx(tx, row.DeadLetter(reason, cause, attempts)); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("retire %s: %w", row.ID, err)
	}
	s.metrics.DeadLettered(string(reason))
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return registry.NewNonRetryableError(errors.New("no topic for " + string(row.EventType)))
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return s.broker.Publish(ctx, topic, toMessage(row, resolved.Envelope))
}

// toMessage keys by aggregate id so Kafka keeps one order's events in order.
func toMessage(row models.OutboxEvent, envelope outbox.PayloadEnvelope) outbox.Message {
	return outbox.Message{
		Key:  row.AggregateID.String(),
		Data: row.Payload,
		Attributes: map[string]string{
			outbox.AttrEventID:       envelope.EventID,
			outbox.AttrEventType:     string(row.EventType),
			outbox.AttrAggregateType: string(row.AggregateType),
			outbox.AttrAggregateID:   row.AggregateID.String(),
			outbox.AttrCreatedAt:     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nextBackoff doubles current (starting from base) and caps it at ceiling.
func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}
