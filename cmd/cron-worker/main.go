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

	"github.com/angelmondragon/foodops-backend/internal/cron"
	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/internal/ledger"
	"github.com/angelmondragon/foodops-backend/internal/notifications"
	"github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/migrate"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/redis"
)

const serviceName = "cron-worker"

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
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": cfg.Service.Kind})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker exited", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
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

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	jobs, err := buildJobs(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "jobs", len(jobs)), "cron worker running")
	return service.Run(ctx)
}

// lockName scopes the lock per environment so staging and prod sharing a
// Redis do not starve each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceName + ":" + env
}

func closeQuietly(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", what), "close failed", err)
	}
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) ([]cron.Job, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	outboxService := outbox.NewService(outboxRepo, logg)
	fulfillment := metrics.NewFulfillmentMetrics(prometheus.DefaultRegisterer)

	stock, err := inventory.NewService(inventory.ServiceParams{
		Repo:     inventory.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   outboxService,
		Settings: cfg.Fulfillment,
		Logger:   logg,
		Metrics:  fulfillment,
	})
	if err != nil {
		return nil, err
	}
	earnings, err := ledger.NewService(ledger.NewRepository(conn), outboxService)
	if err != nil {
		return nil, err
	}
	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Stock:    stock,
		Ledger:   earnings,
		Numbers:  orders.NewSequencer(redisClient, ordersRepo, logg),
		Settings: cfg.Fulfillment,
		Logger:   logg,
		Metrics:  fulfillment,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	var jobs []cron.Job
	for _, build := range []func() (cron.Job, error){
		func() (cron.Job, error) {
			return cron.NewDeliveredAutoCompleteJob(cron.DeliveredAutoCompleteJobParams{Logger: logg, Orders: ordersService})
		},
		func() (cron.Job, error) {
			return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
				Logger:      logg,
				DB:          dbClient,
				Repository:  outboxRepo,
				Retention:   cfg.Cron.OutboxRetentionDays,
				MinAttempts: cfg.Outbox.MaxAttempts,
			})
		},
		func() (cron.Job, error) {
			return cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
				Logger:     logg,
				DB:         dbClient,
				Repository: notifications.NewRepository(conn),
				Retention:  cfg.Cron.NotificationRetentionDays,
			})
		},
	} {
		job, err := build()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
