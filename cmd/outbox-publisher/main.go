package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/eventbus"
	"github.com/angelmondragon/fincore/pkg/instance"
	"github.com/angelmondragon/fincore/pkg/kafka"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/metrics"
	"github.com/angelmondragon/fincore/pkg/migrate"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/registry"
	"github.com/angelmondragon/fincore/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
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

	transport, brokerPing, closeTransport, err := newTransport(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap event transport", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeTransport(); err != nil {
			logg.Error(context.Background(), "error closing event transport", err)
		}
	}()

	outboxMetrics := metrics.NewOutboxMetrics(prometheus.DefaultRegisterer)
	breakerName := "outbox-" + string(cfg.Eventing.TransportKind())
	publisher, err := eventbus.NewBreakerPublisher(breakerName, transport, cfg.Breaker, func(name string, from, to int) {
		outboxMetrics.SetBreakerState(name, to)
		logg.Warn(logg.WithFields(context.Background(), map[string]any{
			"breaker": name,
			"from":    from,
			"to":      to,
		}), "outbox breaker state changed")
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build breaker publisher", err)
		os.Exit(1)
	}

	eventRegistry, err := registry.NewEventRegistry(registry.TopicsFor(cfg))
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Publisher:     publisher,
		BrokerPing:    brokerPing,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       outboxMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"transport":   string(cfg.Eventing.TransportKind()),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// newTransport builds the broker publisher. The returned ping is nil for Kafka,
// whose writer dials lazily.
func newTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger) (eventbus.Publisher, func(context.Context) error, func() error, error) {
	if cfg.Eventing.TransportKind() == enums.EventTransportKafka {
		pub, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			return nil, nil, nil, err
		}
		return pub, nil, pub.Close, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, nil, err
	}
	bus, err := pubsub.NewBus(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	closeAll := func() error {
		return multierr.Append(bus.Close(), client.Close())
	}
	return bus, client.Ping, closeAll, nil
}
