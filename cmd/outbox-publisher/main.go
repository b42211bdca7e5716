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

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/kafka"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/migrate"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/outbox/registry"
	"github.com/angelmondragon/foodops-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

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
		logg.Error(ctx, "outbox publisher exited", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher stopped")
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

	brk, topic, closeBroker, err := newBroker(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Eventing.Transport, err)
	}
	defer closeQuietly(ctx, logg, cfg.Eventing.Transport, closeBroker)

	events, err := registry.NewEventRegistry(topic)
	if err != nil {
		return err
	}
	conn := dbClient.DB()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Broker:        brk,
		BrokerName:    cfg.Eventing.Transport,
		Repository:    outbox.NewRepository(conn),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "topic", topic), "outbox publisher running")
	return service.Run(ctx)
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}

// newBroker returns the configured transport together with the topic every
// domain event is routed to.
func newBroker(ctx context.Context, cfg *config.Config, logg *logger.Logger) (broker, string, func() error, error) {
	if cfg.Eventing.UsesKafka() {
		pub, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			return nil, "", nil, err
		}
		return pub, cfg.Kafka.DomainTopic, pub.Close, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, "", nil, err
	}
	return pubsubBroker{Publisher: client.OutboxPublisher(), client: client}, cfg.PubSub.DomainTopic, client.Close, nil
}

type pubsubBroker struct {
	outbox.Publisher
	client *pubsub.Client
}

func (b pubsubBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx)
}
