package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/foodops-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/foodops-backend/api/controllers/orders"
	payoutcontrollers "github.com/angelmondragon/foodops-backend/api/controllers/payouts"
	stockcontrollers "github.com/angelmondragon/foodops-backend/api/controllers/stocks"
	"github.com/angelmondragon/foodops-backend/api/middleware"
	"github.com/angelmondragon/foodops-backend/internal/audit"
	"github.com/angelmondragon/foodops-backend/internal/inventory"
	"github.com/angelmondragon/foodops-backend/internal/ledger"
	"github.com/angelmondragon/foodops-backend/internal/notifications"
	"github.com/angelmondragon/foodops-backend/internal/orders"
	"github.com/angelmondragon/foodops-backend/internal/paymentmethods"
	"github.com/angelmondragon/foodops-backend/internal/payouts"
	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
	"github.com/angelmondragon/foodops-backend/pkg/metrics"
	"github.com/angelmondragon/foodops-backend/pkg/redis"
)

// Dependencies is everything the router hands to controllers. A nil Redis
// disables idempotency and rate limiting; a nil HTTPMetrics only logs.
type Dependencies struct {
	DB          db.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Orders         orders.Service
	Inventory      inventory.Service
	Ledger         ledger.Service
	Payouts        payouts.Service
	PaymentMethods paymentmethods.Service
	Notifications  notifications.Service
	Audit          audit.Service
	DeadLetters    controllers.DeadLetterService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// typed nil pointers must not leak into the middleware interfaces
	var idempotencyStore redis.IdempotencyStore
	var rateStore *redis.Client
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		rateStore = deps.Redis
	}
	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if rateStore != nil {
			r.Use(middleware.RateLimit(apiPolicy, rateStore, logg))
		}
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleAdmin)).
				Post("/", ordercontrollers.CreateOrder(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))
				r.Post("/{orderId}/payment-proof", ordercontrollers.SubmitPaymentProof(deps.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.CancelOrder(deps.Orders, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Post("/transition", ordercontrollers.AdminTransition(deps.Orders, logg))
				r.Post("/assign-driver", ordercontrollers.AdminAssignDriver(deps.Orders, logg))
				r.Post("/refund", ordercontrollers.AdminRefund(deps.Orders, logg))
			})

			r.Route("/stocks", func(r chi.Router) {
				r.Get("/", stockcontrollers.ListStocks(deps.Inventory, logg))
				r.Post("/", stockcontrollers.CreateStock(deps.Inventory, logg))
				r.Get("/{stockId}", stockcontrollers.GetStock(deps.Inventory, logg))
				r.Patch("/{stockId}", stockcontrollers.SetStockEnabled(deps.Inventory, logg))
				r.Post("/{stockId}/adjust", stockcontrollers.AdjustStock(deps.Inventory, logg))
				r.Get("/{stockId}/adjustments", stockcontrollers.ListAdjustments(deps.Inventory, logg))
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", payoutcontrollers.AdminPayouts(deps.Payouts, logg))
				r.Get("/{payoutId}", payoutcontrollers.PayoutDetail(deps.Payouts, logg))
				r.Post("/{payoutId}/resolve", payoutcontrollers.ResolvePayout(deps.Payouts, logg))
			})

			r.Get("/audit-logs", controllers.ListAuditLogs(deps.Audit, logg))
			r.Get("/outbox/dead-letters", controllers.ListDeadLetters(deps.DeadLetters, logg))
			r.Post("/outbox/dead-letters/{deadLetterId}/replay", controllers.ReplayDeadLetter(deps.DeadLetters, logg))
		})

		r.Route("/driver", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleDriver))

			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Post("/pickup", ordercontrollers.DriverPickup(deps.Orders, logg))
				r.Post("/in-transit", ordercontrollers.DriverInTransit(deps.Orders, logg))
				r.Post("/deliver", ordercontrollers.DriverDeliver(deps.Orders, logg))
				r.Post("/return", ordercontrollers.DriverReturn(deps.Orders, logg))
			})

			r.Get("/earnings", payoutcontrollers.DriverEarnings(deps.Ledger, logg))
			r.Get("/earnings/summary", payoutcontrollers.DriverEarningsSummary(deps.Ledger, logg))

			r.Route("/payment-methods", func(r chi.Router) {
				r.Get("/", payoutcontrollers.ListPaymentMethods(deps.PaymentMethods, logg))
				r.Post("/", payoutcontrollers.CreatePaymentMethod(deps.PaymentMethods, logg))
				r.Post("/{methodId}/default", payoutcontrollers.SetDefaultPaymentMethod(deps.PaymentMethods, logg))
				r.Delete("/{methodId}", payoutcontrollers.DeletePaymentMethod(deps.PaymentMethods, logg))
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", payoutcontrollers.DriverPayouts(deps.Payouts, logg))
				r.Post("/", payoutcontrollers.RequestPayout(deps.Payouts, logg))
				r.Get("/{payoutId}", payoutcontrollers.PayoutDetail(deps.Payouts, logg))
			})
		})
	})

	return r
}
