package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/foodops-backend/api"
	"github.com/angelmondragon/foodops-backend/api/routes"
	"github.com/angelmondragon/foodops-backend/internal/audit"
	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/internal/ledger"
	"github.com/angelmondragon/foodops-backend/internal/notifications"
	"github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/internal/paymentmethods"
	"github.com/angelmondragon/foodops-backend/internal/payouts"
	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/migrate"
	"github.com/angelmondragon/foodops-backend/pkg/outbox"
	"github.com/angelmondragon/foodops-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(cfg, addr, routes.NewRouter(cfg, logg, deps))
	if err := api.Serve(ctx, cfg, logg, server); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(prometheus.DefaultRegisterer)

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:     inventory.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   outboxService,
		Settings: cfg.Fulfillment,
		Logger:   logg,
		Metrics:  fulfillmentMetrics,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), outboxService)
	if err != nil {
		return routes.Dependencies{}, err
	}

	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Stock:    inventoryService,
		Ledger:   ledgerService,
		Numbers:  orders.NewSequencer(redisClient, ordersRepo, logg),
		Settings: cfg.Fulfillment,
		Logger:   logg,
		Metrics:  fulfillmentMetrics,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	methodsRepo := paymentmethods.NewRepository(conn)
	methodsService, err := paymentmethods.NewService(methodsRepo, dbClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	payoutsService, err := payouts.NewService(payouts.ServiceParams{
		Repo:           payouts.NewRepository(conn),
		PaymentMethods: methodsRepo,
		Ledger:         ledgerService,
		Tx:             dbClient,
		Outbox:         outboxService,
		Logger:         logg,
		Metrics:        fulfillmentMetrics,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	auditService, err := audit.NewService(audit.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	deadLetters, err := outbox.NewDeadLetters(outbox.NewDLQRepository(conn), outbox.NewRepository(conn), dbClient, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		Gatherer:       prometheus.DefaultGatherer,
		HTTPMetrics:    metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Orders:         ordersService,
		Inventory:      inventoryService,
		Ledger:         ledgerService,
		Payouts:        payoutsService,
		PaymentMethods: methodsService,
		Notifications:  notificationsService,
		Audit:          auditService,
		DeadLetters:    deadLetters,
	}, nil
}
