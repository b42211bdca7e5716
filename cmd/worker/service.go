package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// consumer is a subscription loop that runs until its context ends.
type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	Consumers map[string]consumer
}

type Service struct {
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]consumer
}

type dependency struct {
	name string
	pinger
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("worker: config is required")
	case p.Logger == nil:
		return nil, errors.New("worker: logger is required")
	case p.DB == nil:
		return nil, errors.New("worker: database client is required")
	case p.Redis == nil:
		return nil, errors.New("worker: redis client is required")
	case len(p.Consumers) == 0:
		return nil, errors.New("worker: no consumers configured")
	}
	for name, c := range p.Consumers {
		if c == nil {
			return nil, fmt.Errorf("worker: %s consumer is nil", name)
		}
	}

	return &Service{
		logg:      p.Logger,
		deps:      []dependency{{"database", p.DB}, {"redis", p.Redis}},
		consumers: p.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", dep.name), "readiness check failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

// Run starts every consumer and blocks until all of them have returned. The
// first consumer to stop, with or without an error, takes the others down.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for _, name := range slices.Sorted(maps.Keys(s.consumers)) {
		c := s.consumers[name]
		g.Go(func() error {
			consumerCtx := s.logg.WithField(groupCtx, "consumer", name)
			s.logg.Info(consumerCtx, "consumer started")

			err := c.Run(consumerCtx)
			switch {
			case err == nil:
				s.logg.Warn(consumerCtx, "consumer returned without error")
				return fmt.Errorf("%s consumer exited", name)
			case errors.Is(err, context.Canceled) && groupCtx.Err() != nil:
				return err
			default:
				s.logg.Error(consumerCtx, "consumer failed", err)
				return fmt.Errorf("%s consumer: %w", name, err)
			}
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
