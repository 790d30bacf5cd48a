package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fincore/internal/analytics/router"
	"github.com/angelmondragon/fincore/internal/analytics/types"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/eventbus"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/idempotency"
)

const analyticsConsumerName = "analytics"

// Handler defines how to process analytics envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyGuard interface {
	Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error
}

// Service consumes ledger and risk events from the bus while honoring Redis idempotency.
type Service struct {
	subscriber eventbus.Subscriber
	handler    Handler
	guard      idempotencyGuard
	logg       *logger.Logger
}

// NewService creates a new analytics worker service.
func NewService(subscriber eventbus.Subscriber, handler Handler, guard idempotencyGuard, logg *logger.Logger) (*Service, error) {
	if subscriber == nil {
		return nil, errors.New("analytics subscriber is required")
	}
	if handler == nil {
		return nil, errors.New("analytics handler is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscriber: subscriber,
		handler:    handler,
		guard:      guard,
		logg:       logg,
	}, nil
}

// Run consumes messages until the context is canceled. A returned handler
// error leaves the message for redelivery.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscriber.Receive(ctx, s.process)
}

func (s *Service) process(ctx context.Context, msg eventbus.Message) error {
	fields := map[string]any{"topic": msg.Topic}
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := buildEnvelope(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid analytics envelope")
		return nil
	}
	fields["event_id"] = envelope.EventID.String()
	fields["event_type"] = envelope.EventType
	fields["aggregate_type"] = envelope.AggregateType
	fields["aggregate_id"] = envelope.AggregateID
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = s.logg.WithFields(ctx, fields)

	err = s.guard.Guard(logCtx, analyticsConsumerName, envelope.EventID, func(ctx context.Context) error {
		err := s.handler.Handle(ctx, *envelope)
		if errors.Is(err, router.ErrUnsupportedEventType) {
			// other consumers own it; mark it seen so redeliveries are cheap
			s.logg.Info(ctx, "analytics event ignored")
			return nil
		}
		return err
	})
	switch {
	case errors.Is(err, idempotency.ErrAlreadyProcessed):
		s.logg.Info(logCtx, "event already processed")
		return nil
	case err != nil:
		s.logg.Error(logCtx, "analytics handler error", err)
		return err
	}
	s.logg.Info(logCtx, "analytics event handled")
	return nil
}

func buildEnvelope(msg eventbus.Message) (*types.Envelope, error) {
	stored, err := outbox.OpenEnvelope(msg.Data)
	if err != nil {
		return nil, err
	}

	eventType, err := enums.ParseOutboxEventType(attribute(msg, eventbus.AttrEventType))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attribute(msg, eventbus.AttrAggregateType))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attribute(msg, eventbus.AttrAggregateID)
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := attribute(msg, eventbus.AttrCreatedAt); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = attribute(msg, eventbus.AttrEventID)
	}
	if rawID == "" {
		return nil, errors.New("event_id missing")
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}

	return &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       stored.Version,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}, nil
}

func attribute(msg eventbus.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}
