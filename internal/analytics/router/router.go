package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/fincore/internal/analytics/types"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
	"github.com/angelmondragon/fincore/pkg/outbox/registry"
)

const currentPayloadVersion = 1

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertRiskDecisions(ctx context.Context, rows []types.RiskDecisionRow) error
	InsertLedgerPostings(ctx context.Context, rows []types.LedgerPostingRow) error
}

// Handler receives an envelope plus its decoded payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router decodes analytics envelopes and dispatches them per event type.
type Router struct {
	decoders *registry.Decoders
	handlers map[enums.OutboxEventType]Handler
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	decoders := registry.NewDecoders()
	registry.Register[payloads.RiskDecisionRecordedEvent](decoders, enums.EventRiskDecisionRecorded, currentPayloadVersion)
	registry.Register[payloads.LedgerTransactionPostedEvent](decoders, enums.EventLedgerTransactionPosted, currentPayloadVersion)

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventRiskDecisionRecorded:    newRiskDecisionHandler(writer),
		enums.EventLedgerTransactionPosted: newLedgerPostingHandler(writer),
	}
	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{decoders: decoders, handlers: handlers, logg: logg}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	version := envelope.Version
	if version == 0 {
		version = currentPayloadVersion
	}
	payload, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return handler.Handle(ctx, envelope, payload)
}
