package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

const counterTTL = 48 * time.Hour

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CounterKey(name string) string
}

// Sequencer allocates per-day order numbers from a Redis counter, seeding a
// fresh counter from the database and falling back to MAX(order_number)+1
// when Redis is absent or failing. The (order_date, order_number) unique
// index backs both paths.
type Sequencer struct {
	counter counterStore
	repo    Repository
	logg    *logger.Logger
}

// NewSequencer builds an allocator. counter may be nil.
func NewSequencer(counter counterStore, repo Repository, logg *logger.Logger) *Sequencer {
	return &Sequencer{counter: counter, repo: repo, logg: logg}
}

func (s *Sequencer) Next(ctx context.Context, tx *gorm.DB, day time.Time) (int, error) {
	repo := s.repo.WithTx(tx)
	if s.counter == nil {
		return s.fromDB(ctx, repo, day)
	}

	key := s.counter.CounterKey("orders:" + day.Format("20060102"))
	n, err := s.counter.IncrWithTTL(ctx, key, counterTTL)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "counter_key", key), "order counter unavailable, using database")
		}
		return s.fromDB(ctx, repo, day)
	}
	if n > 1 {
		return int(n), nil
	}

	// New key: the counter may have been evicted while orders already exist.
	max, err := repo.MaxOrderNumber(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("seed order counter: %w", err)
	}
	if max == 0 {
		return 1, nil
	}
	next := max + 1
	if err := s.counter.Set(ctx, key, next, counterTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "counter_key", key), "order counter reseed failed")
	}
	return next, nil
}

func (s *Sequencer) fromDB(ctx context.Context, repo Repository, day time.Time) (int, error) {
	max, err := repo.MaxOrderNumber(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("max order number: %w", err)
	}
	return max + 1, nil
}
