package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/registry"
)

// ConsumerName scopes the processed-event keys of this consumer.
const ConsumerName = "notifications"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ConsumerParams groups the consumer dependencies.
type ConsumerParams struct {
	Repo         Repository
	Tx           txRunner
	Subscription outbox.Subscriber
	Decoders     *registry.DecoderRegistry
	Idempotency  *idempotency.Manager
	Logger       *logger.Logger
}

// Consumer watches domain events and turns them into in-app notifications.
type Consumer struct {
	repo         Repository
	tx           txRunner
	subscription outbox.Subscriber
	decoders     *registry.DecoderRegistry
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := params.Decoders
	if decoders == nil {
		decoders = registry.NewLifecycleDecoders()
	}
	return &Consumer{
		repo:         params.Repo,
		tx:           params.Tx,
		subscription: params.Subscription,
		decoders:     decoders,
		idempotency:  params.Idempotency,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, c.Handle)
}

// Handle processes one delivery. Malformed messages are logged and
// acknowledged; storage and idempotency failures are returned so the
// transport redelivers.
func (c *Consumer) Handle(ctx context.Context, delivery outbox.Delivery) error {
	eventType := enums.OutboxEventType(delivery.Attributes[outbox.AttrEventType])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": delivery.ID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Warn(logCtx, "skipping unknown event type")
		return nil
	}

	envelope, event, err := c.decoders.DecodeLifecycle(eventType, delivery.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode event", err)
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return nil
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	planned := Plan(event)
	if len(planned) == 0 {
		c.logg.Info(logCtx, "event produces no notifications")
		return nil
	}

	duplicate, err := c.idempotency.Guard(ctx, ConsumerName, eventID, func(ctx context.Context) error {
		return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return c.repo.Insert(ctx, tx, planned)
		})
	})
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		return err
	}
	if duplicate {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	c.logg.Info(c.logg.WithField(logCtx, "notifications", len(planned)), "notifications created")
	return nil
}
