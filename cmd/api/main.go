package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/fincore/api/routes"
	"github.com/angelmondragon/fincore/internal/accounts"
	"github.com/angelmondragon/fincore/internal/ledger"
	"github.com/angelmondragon/fincore/internal/orders"
	"github.com/angelmondragon/fincore/internal/risk"
	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/metrics"
	"github.com/angelmondragon/fincore/pkg/migrate"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	riskMetrics := metrics.NewRiskMetrics(registry)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountsService, err := accounts.NewService(accounts.NewRepository(dbClient.DB()), cfg.Ledger.Currency(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create accounts service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(dbClient.DB()),
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Metrics:    ledgerMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	riskRepo := risk.NewRepository(dbClient.DB())
	auditWriter, err := risk.NewAsyncAuditWriter(risk.AuditWriterParams{
		Repository: riskRepo,
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Metrics:    riskMetrics,
		Logger:     logg,
		QueueSize:  cfg.Risk.AuditQueueSize,
		Workers:    cfg.Risk.AuditWorkers,
	})
	if err != nil {
		logg.Error(ctx, "failed to create risk audit writer", err)
		os.Exit(1)
	}
	// workers outlive the signal context so Close can drain the queue
	if err := auditWriter.Start(context.WithoutCancel(ctx)); err != nil {
		logg.Error(ctx, "failed to start risk audit writer", err)
		os.Exit(1)
	}

	riskService, err := risk.NewService(risk.ServiceParams{
		Repository: riskRepo,
		Thresholds: risk.ThresholdsFromConfig(cfg.Risk),
		Audit:      auditWriter,
		Metrics:    riskMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create risk service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository:    orders.NewRepository(dbClient.DB()),
		TxRunner:      dbClient,
		Ledger:        ledgerService,
		Accounts:      accountsService,
		Risk:          riskService,
		Outbox:        outboxService,
		Logger:        logg,
		SystemOwnerID: cfg.Ledger.SystemOwnerID,
		FeeRate:       cfg.Ledger.PlatformFeeRate,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
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
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			accountsService,
			ledgerService,
			ordersService,
			riskService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "api server shutdown failed", err)
	}
	// flush queued risk decisions before the database handle closes
	if err := auditWriter.Close(shutdownCtx); err != nil {
		logg.Error(serverCtx, "risk audit writer close failed", err)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
