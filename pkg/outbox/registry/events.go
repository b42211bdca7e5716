// Package registry knows, for every lifecycle event type, which aggregate
// emits it, which topic carries it and how its payload decodes.
package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/db/models"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
)

var eventAggregates = map[enums.OutboxEventType]enums.OutboxAggregateType{
	enums.EventOrderCreated:        enums.AggregateOrder,
	enums.EventOrderStatusChanged:  enums.AggregateOrder,
	enums.EventOrderReturned:       enums.AggregateOrder,
	enums.EventOrderDriverAssigned: enums.AggregateOrder,
	enums.EventOrderRefunded:       enums.AggregateOrder,
	enums.EventStockAdjusted:       enums.AggregateStock,
	enums.EventStockLow:            enums.AggregateStock,
	enums.EventEarningAvailable:    enums.AggregateEarning,
	enums.EventPayoutRequested:     enums.AggregatePayout,
	enums.EventPayoutCompleted:     enums.AggregatePayout,
	enums.EventPayoutRejected:      enums.AggregatePayout,
}

func AggregateFor(eventType enums.OutboxEventType) (enums.OutboxAggregateType, bool) {
	agg, ok := eventAggregates[eventType]
	return agg, ok
}

// NonRetryableError marks a row that will fail the same way on every
// attempt; the publisher dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError { return NonRetryableError{Err: err} }

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// IsNonRetryable reports whether err, or anything it wraps, is a
// NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation, with its envelope
// and decoded payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry validates outbox rows before they are published. Every event
// currently shares the one domain topic; consumers filter on the event_type
// attribute.
type EventRegistry struct {
	topic    string
	decoders *DecoderRegistry
}

func NewEventRegistry(domainTopic string) (*EventRegistry, error) {
	if domainTopic == "" {
		return nil, errors.New("registry: domain topic is required")
	}
	return &EventRegistry{topic: domainTopic, decoders: NewLifecycleDecoders()}, nil
}

// Resolve checks the row against its event type and decodes the payload.
// Every failure is a NonRetryableError: a malformed row never heals.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	aggregate, known := eventAggregates[event.EventType]
	switch {
	case !known:
		return nil, permanent("unsupported event type %s", event.EventType)
	case aggregate != event.AggregateType:
		return nil, permanent("%s belongs to %s, row says %s", event.EventType, aggregate, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("%s row has no aggregate id", event.EventType)
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("%s envelope carries no data", event.EventType)
	}

	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, permanent("decode %s: %w", event.EventType, err)
	}
	if lifecycle, ok := payload.(*payloads.LifecycleEvent); ok && lifecycle.EventType != event.EventType {
		return nil, permanent("payload says %q, row says %s", lifecycle.EventType, event.EventType)
	}

	return &ResolvedEvent{
		Descriptor: EventDescriptor{EventType: event.EventType, AggregateType: aggregate, Topic: r.topic},
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
