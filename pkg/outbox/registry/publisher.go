package registry

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db/models"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// Topics names the destination of each event family on the active transport.
type Topics struct {
	Ledger string
	Orders string
	Risk   string
}

// TopicsFor picks the topic names of the configured transport.
func TopicsFor(cfg *config.Config) Topics {
	if cfg.Eventing.TransportKind() == enums.EventTransportKafka {
		return Topics{Ledger: cfg.Kafka.LedgerTopic, Orders: cfg.Kafka.OrdersTopic, Risk: cfg.Kafka.RiskTopic}
	}
	return Topics{Ledger: cfg.PubSub.LedgerTopic, Orders: cfg.PubSub.OrdersTopic, Risk: cfg.PubSub.RiskTopic}
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(topics Topics) (*EventRegistry, error) {
	if topics.Ledger == "" {
		return nil, fmt.Errorf("ledger topic is required")
	}
	if topics.Orders == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if topics.Risk == "" {
		return nil, fmt.Errorf("risk topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	reg.register(EventDescriptor{
		EventType:      enums.EventLedgerTransactionPosted,
		AggregateType:  enums.AggregateLedgerTransaction,
		Topic:          topics.Ledger,
		PayloadFactory: func() interface{} { return &payloads.LedgerTransactionPostedEvent{} },
	})
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderFundsHeld,
		enums.EventOrderPaymentCaptured,
		enums.EventOrderCancelled,
		enums.EventOrderShipped,
	} {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateOrder,
			Topic:          topics.Orders,
			PayloadFactory: func() interface{} { return &payloads.OrderLifecycleEvent{} },
		})
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventOrderReviewRequested,
		AggregateType:  enums.AggregateOrder,
		Topic:          topics.Orders,
		PayloadFactory: func() interface{} { return &payloads.OrderReviewRequestedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventRiskDecisionRecorded,
		AggregateType:  enums.AggregateRiskDecision,
		Topic:          topics.Risk,
		PayloadFactory: func() interface{} { return &payloads.RiskDecisionRecordedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Descriptor returns the descriptor registered for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.OpenEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := envelope.Unpack(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
