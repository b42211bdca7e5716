package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/registry"
)

// Consumer appends one audit row per lifecycle event. The unique event_id
// column absorbs redeliveries.
type Consumer struct {
	repo         Repository
	subscription outbox.Subscriber
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
	now          func() time.Time
}

// NewConsumer builds the audit-log writer.
func NewConsumer(repo Repository, subscription outbox.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("audit subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		decoders:     registry.NewLifecycleDecoders(),
		logg:         logg,
		now:          time.Now,
	}, nil
}

// Run blocks until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, c.Handle)
}

// Handle records one delivery.
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

	aggregateType, aggregateID, err := aggregateOf(eventType, delivery.Attributes, event)
	if err != nil {
		c.logg.Error(logCtx, "cannot resolve aggregate", err)
		return nil
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = c.now().UTC()
	}
	entry := &models.AuditLog{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       envelope.Data,
		OccurredAt:    occurredAt.UTC(),
	}
	if envelope.Actor != nil {
		if envelope.Actor.UserID != uuid.Nil {
			id := envelope.Actor.UserID
			entry.ActorID = &id
		}
		if envelope.Actor.Role != "" {
			role := envelope.Actor.Role
			entry.ActorRole = &role
		}
	}

	written, err := c.repo.Append(ctx, entry)
	if err != nil {
		c.logg.Error(logCtx, "failed to append audit row", err)
		return err
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":     eventID.String(),
		"aggregate_id": aggregateID.String(),
	})
	if !written {
		c.logg.Info(logCtx, "audit row already recorded")
		return nil
	}
	c.logg.Info(logCtx, "audit row recorded")
	return nil
}

// aggregateOf prefers the publisher attributes and falls back to the ids
// carried in the payload.
func aggregateOf(eventType enums.OutboxEventType, attrs map[string]string, event *payloads.LifecycleEvent) (enums.OutboxAggregateType, uuid.UUID, error) {
	aggregateType, ok := registry.AggregateFor(eventType)
	if raw := attrs[outbox.AttrAggregateType]; raw != "" {
		parsed, err := enums.ParseOutboxAggregateType(raw)
		if err != nil {
			return "", uuid.Nil, err
		}
		aggregateType, ok = parsed, true
	}
	if !ok {
		return "", uuid.Nil, fmt.Errorf("no aggregate for %s", eventType)
	}

	if raw := attrs[outbox.AttrAggregateID]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return "", uuid.Nil, fmt.Errorf("invalid aggregate id: %w", err)
		}
		return aggregateType, id, nil
	}

	var candidate *uuid.UUID
	switch aggregateType {
	case enums.AggregateOrder:
		candidate = event.OrderID
	case enums.AggregateStock:
		candidate = event.StockID
	case enums.AggregateEarning:
		candidate = event.EarningID
	case enums.AggregatePayout:
		candidate = event.PayoutID
	}
	if candidate == nil || *candidate == uuid.Nil {
		return "", uuid.Nil, fmt.Errorf("payload carries no %s id", aggregateType)
	}
	return aggregateType, *candidate, nil
}
