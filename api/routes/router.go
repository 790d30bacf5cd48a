package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/fincore/api/controllers"
	accountcontrollers "github.com/angelmondragon/fincore/api/controllers/accounts"
	ordercontrollers "github.com/angelmondragon/fincore/api/controllers/orders"
	riskcontrollers "github.com/angelmondragon/fincore/api/controllers/risk"
	transactioncontrollers "github.com/angelmondragon/fincore/api/controllers/transactions"
	"github.com/angelmondragon/fincore/api/middleware"
	"github.com/angelmondragon/fincore/internal/accounts"
	"github.com/angelmondragon/fincore/internal/ledger"
	"github.com/angelmondragon/fincore/internal/orders"
	"github.com/angelmondragon/fincore/internal/risk"
	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	accountsService accounts.Service,
	ledgerService ledger.Service,
	ordersService orders.Service,
	riskService risk.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["postgres"] = dbP
	}
	// typed nil pointers must not reach the interface-typed middleware args
	var idempotencyStore redis.IdempotencyStore
	var rateStore middleware.RateLimitStore
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
		rateStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	policy := middleware.NewRateLimitPolicy("api", cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitPerIP, cfg.HTTP.RateLimitPerActor)
	adminOnly := middleware.RequireRole(logg, enums.ActorRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(policy, rateStore, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountcontrollers.GetOrCreate(accountsService, logg))
			r.Get("/{accountId}", accountcontrollers.Get(accountsService, logg))
			r.Get("/{accountId}/entries", transactioncontrollers.ListEntries(ledgerService, logg))
			r.With(adminOnly).Post("/{accountId}/freeze", accountcontrollers.Freeze(accountsService, logg))
			r.With(adminOnly).Post("/{accountId}/unfreeze", accountcontrollers.Unfreeze(accountsService, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", transactioncontrollers.Post(ledgerService, logg))
			r.Get("/{transactionId}", transactioncontrollers.Get(ledgerService, logg))
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/hold", ordercontrollers.Hold(ordersService, logg))
			r.Post("/capture", ordercontrollers.Capture(ordersService, logg))
			r.Post("/void", ordercontrollers.Void(ordersService, logg))
			r.Post("/ship", ordercontrollers.Ship(ordersService, logg))
		})

		r.Post("/risk/evaluate", riskcontrollers.Evaluate(riskService, logg))
	})

	return r
}
