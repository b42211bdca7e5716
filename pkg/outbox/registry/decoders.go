package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/payloads"
)

// Decoder turns an envelope's data into a typed payload.
type Decoder func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry keys decoders by event type and envelope version, so a v2
// payload can ship while v1 rows are still in flight.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]Decoder{}}
}

// NewLifecycleDecoders registers the current lifecycle payload for every
// known event type.
func NewLifecycleDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for eventType := range eventAggregates {
		reg.Register(eventType, outbox.CurrentVersion, decodeLifecycleV1)
	}
	return reg
}

func decodeLifecycleV1(data json.RawMessage) (any, error) {
	event := new(payloads.LifecycleEvent)
	if err := json.Unmarshal(data, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decode Decoder) {
	r.mu.Lock()
	r.decoders[decoderKey{eventType, version}] = decode
	r.mu.Unlock()
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[decoderKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", eventType, version)
	}
	return decode(data)
}

// DecodeLifecycle is the consumer side: raw message body in, envelope and
// lifecycle payload out.
func (r *DecoderRegistry) DecodeLifecycle(eventType enums.OutboxEventType, raw []byte) (outbox.PayloadEnvelope, *payloads.LifecycleEvent, error) {
	envelope, err := outbox.DecodeEnvelope(raw)
	if err != nil {
		return outbox.PayloadEnvelope{}, nil, fmt.Errorf("decode envelope: %w", err)
	}
	decoded, err := r.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		return envelope, nil, err
	}
	lifecycle, ok := decoded.(*payloads.LifecycleEvent)
	if !ok {
		return envelope, nil, fmt.Errorf("%s decoded to %T, want lifecycle event", eventType, decoded)
	}
	return envelope, lifecycle, nil
}
