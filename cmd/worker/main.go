package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/foodops-backend/internal/audit"
	"github.com/angelmondragon/foodops-backend/internal/notifications"
	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/kafka"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/migrate"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/foodops-backend/pkg/pubsub"
	"github.com/angelmondragon/foodops-backend/pkg/redis"
)

const serviceName = "worker"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env not loaded, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"transport":   cfg.Eventing.Transport,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker exited", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	subs, err := openSubscriptions(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("subscriptions: %w", err)
	}
	defer closeQuietly(ctx, logg, cfg.Eventing.Transport, subs.close)

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	notificationConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repo:         notifications.NewRepository(conn),
		Tx:           dbClient,
		Subscription: subs.notifications,
		Idempotency:  dedupe,
		Logger:       logg,
	})
	if err != nil {
		return err
	}
	auditConsumer, err := audit.NewConsumer(audit.NewRepository(conn), subs.audit, logg)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
		Redis:  redisClient,
		Consumers: map[string]consumer{
			"notifications": notificationConsumer,
			"audit":         auditConsumer,
		},
	})
	if err != nil {
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()

	logg.Info(ctx, "worker running")
	return service.Run(ctx)
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}

type subscriptions struct {
	notifications outbox.Subscriber
	audit         outbox.Subscriber
	close         func() error
}

// openSubscriptions gives each consumer its own subscriber. On Kafka that
// means one consumer group per consumer, so both see every event.
func openSubscriptions(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*subscriptions, error) {
	if cfg.Eventing.UsesKafka() {
		notificationSub, err := kafka.NewSubscriber(cfg.Kafka, cfg.Kafka.NotificationGroup, logg)
		if err != nil {
			return nil, err
		}
		auditSub, err := kafka.NewSubscriber(cfg.Kafka, cfg.Kafka.AuditGroup, logg)
		if err != nil {
			return nil, multierr.Append(err, notificationSub.Close())
		}
		return &subscriptions{
			notifications: notificationSub,
			audit:         auditSub,
			close: func() error {
				return multierr.Combine(notificationSub.Close(), auditSub.Close())
			},
		}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, err
	}
	notificationSub, err := client.OutboxSubscriber(cfg.PubSub.NotificationSubscription)
	if err != nil {
		return nil, multierr.Append(err, client.Close())
	}
	auditSub, err := client.OutboxSubscriber(cfg.PubSub.AuditSubscription)
	if err != nil {
		return nil, multierr.Append(err, client.Close())
	}
	return &subscriptions{notifications: notificationSub, audit: auditSub, close: client.Close}, nil
}
