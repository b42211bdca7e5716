package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRef names who caused the event; jobs run as uuid.Nil.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and delivered
// unchanged to subscribers.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func NewEnvelope(eventID string, actor *ActorRef, data json.RawMessage) PayloadEnvelope {
	return PayloadEnvelope{
		Version:    CurrentVersion,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Data:       data,
	}
}

func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("outbox: decode envelope: %w", err)
	}
	return envelope, nil
}
