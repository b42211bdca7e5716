// Package idempotency keeps at-least-once event delivery from producing
// duplicate side effects. Each consumer claims an event id in Redis before
// acting on it and gives the claim back when the work fails.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/redis"
)

// Manager stores claims under fo:idempotency:evt:processed:<consumer>:<event_id>.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewManager builds a guard whose claims expire after ttl. A zero ttl keeps
// claims forever.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim marks eventID as handled by consumer. It returns false when another
// delivery of the same event already holds the claim.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
}

// Release drops a claim so a redelivery can try again.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Guard runs fn at most once per (consumer, eventID). duplicate is true when
// fn was skipped. When fn fails the claim is released and the joined error is
// returned so the broker redelivers.
func (m *Manager) Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (duplicate bool, err error) {
	claimed, err := m.Claim(ctx, consumer, eventID)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", eventID, err)
	}
	if !claimed {
		return true, nil
	}
	if err := fn(ctx); err != nil {
		if relErr := m.Release(ctx, consumer, eventID); relErr != nil {
			return false, errors.Join(err, fmt.Errorf("release %s: %w", eventID, relErr))
		}
		return false, err
	}
	return false, nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
