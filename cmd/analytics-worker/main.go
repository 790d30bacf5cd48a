package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/fincore/internal/analytics/router"
	"github.com/angelmondragon/fincore/internal/analytics/worker"
	"github.com/angelmondragon/fincore/internal/analytics/writer"
	"github.com/angelmondragon/fincore/pkg/bigquery"
	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/eventbus"
	"github.com/angelmondragon/fincore/pkg/instance"
	"github.com/angelmondragon/fincore/pkg/kafka"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/outbox/idempotency"
	"github.com/angelmondragon/fincore/pkg/pubsub"
	"github.com/angelmondragon/fincore/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscriber, closeSubscriber, err := newSubscriber(ctx, cfg, logg)
	requireResource(ctx, logg, "analytics subscriber", err)
	defer func() {
		if err := closeSubscriber(); err != nil {
			logg.Error(ctx, "failed to close analytics subscriber", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	analyticsWriter, err := writer.New(bqClient, writer.Config{
		RiskDecisionsTable:  cfg.BigQuery.RiskDecisionsTable,
		LedgerPostingsTable: cfg.BigQuery.LedgerPostingsTable,
	})
	requireResource(ctx, logg, "analytics bigquery writer", err)

	routingHandler, err := router.NewRouter(analyticsWriter, logg, nil)
	requireResource(ctx, logg, "analytics router", err)

	service, err := worker.NewService(subscriber, routingHandler, manager, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"transport":   string(cfg.Eventing.TransportKind()),
	})
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

// newSubscriber returns the consumer for the configured transport and a func
// releasing its connection.
func newSubscriber(ctx context.Context, cfg *config.Config, logg *logger.Logger) (eventbus.Subscriber, func() error, error) {
	switch cfg.Eventing.TransportKind() {
	case enums.EventTransportKafka:
		sub, err := kafka.NewSubscriber(cfg.Kafka, []string{cfg.Kafka.LedgerTopic, cfg.Kafka.RiskTopic}, logg)
		if err != nil {
			return nil, nil, err
		}
		return sub, sub.Close, nil
	default:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, err
		}
		subscriber, err := client.AnalyticsSubscription(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		sub, err := pubsub.NewSubscription(subscriber)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return sub, client.Close, nil
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
