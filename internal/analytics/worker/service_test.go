package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/fincore/internal/analytics/router"
	"github.com/angelmondragon/fincore/internal/analytics/types"
	"github.com/angelmondragon/fincore/pkg/enums"
	"github.com/angelmondragon/fincore/pkg/eventbus"
	"github.com/angelmondragon/fincore/pkg/logger"
	"github.com/angelmondragon/fincore/pkg/outbox"
	"github.com/angelmondragon/fincore/pkg/outbox/idempotency"
	"github.com/google/uuid"
)

func TestBuildEnvelope(t *testing.T) {
	eventID := uuid.New()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"decision":"approve"}`),
	}
	msg := buildMessage(payload, map[string]string{
		eventbus.AttrEventType:     "risk_decision_recorded",
		eventbus.AttrAggregateType: "risk_decision",
		eventbus.AttrAggregateID:   "agg-1",
	})

	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventRiskDecisionRecorded {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateRiskDecision {
		t.Fatalf("unexpected aggregate type %v", env.AggregateType)
	}
	if env.AggregateID != "agg-1" || env.EventID != eventID || env.Version != 1 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	guard := &stubGuard{processed: map[uuid.UUID]bool{}}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	msg := buildAnalyticsMessage(t)
	if err := svc.process(context.Background(), msg); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.process(context.Background(), msg); err != nil {
		t.Fatalf("redelivery should ack, got %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("handler should run once, ran %d", handler.calls)
	}
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	guard := &stubGuard{processed: map[uuid.UUID]bool{}}
	handler := &stubHandler{err: errors.New("boom")}
	svc := newTestService(t, handler, guard)

	if err := svc.process(context.Background(), buildAnalyticsMessage(t)); err == nil {
		t.Fatal("expected handler error to be returned for redelivery")
	}
	if guard.released != 1 {
		t.Fatalf("expected idempotency marker release on failure")
	}
}

func TestProcessInvalidEnvelope(t *testing.T) {
	guard := &stubGuard{processed: map[uuid.UUID]bool{}}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	if err := svc.process(context.Background(), eventbus.Message{Data: []byte("invalid json")}); err != nil {
		t.Fatalf("invalid envelope should ack, got %v", err)
	}
	if handler.calls != 0 || guard.calls != 0 {
		t.Fatal("neither handler nor guard should run")
	}
}

func TestProcessUnsupportedEvent(t *testing.T) {
	guard := &stubGuard{processed: map[uuid.UUID]bool{}}
	handler := &stubHandler{err: router.ErrUnsupportedEventType}
	svc := newTestService(t, handler, guard)

	if err := svc.process(context.Background(), buildAnalyticsMessage(t)); err != nil {
		t.Fatalf("unsupported event should ack, got %v", err)
	}
	if guard.released != 0 {
		t.Fatalf("idempotency marker should be kept")
	}
}

func TestRunDispatchesSubscriberMessages(t *testing.T) {
	guard := &stubGuard{processed: map[uuid.UUID]bool{}}
	handler := &stubHandler{}
	sub := &stubSubscriber{messages: []eventbus.Message{buildAnalyticsMessage(t), buildAnalyticsMessage(t)}}
	svc, err := NewService(sub, handler, guard, logger.New(logger.Options{ServiceName: "analytics-test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if handler.calls != 2 {
		t.Fatalf("expected 2 handled messages, got %d", handler.calls)
	}
}

func buildAnalyticsMessage(t *testing.T) eventbus.Message {
	t.Helper()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"transaction_id":"x"}`),
	}
	return buildMessage(payload, map[string]string{
		eventbus.AttrEventType:     "ledger_transaction_posted",
		eventbus.AttrAggregateType: "ledger_transaction",
		eventbus.AttrAggregateID:   uuid.NewString(),
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) eventbus.Message {
	data, _ := json.Marshal(payload)
	return eventbus.Message{Topic: "fincore.ledger", Data: data, Attributes: attrs}
}

func newTestService(t *testing.T, handler Handler, guard *stubGuard) *Service {
	t.Helper()
	return &Service{
		handler: handler,
		guard:   guard,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test"}),
	}
}

type stubHandler struct {
	calls int
	err   error
}

func (h *stubHandler) Handle(ctx context.Context, envelope types.Envelope) error {
	h.calls++
	return h.err
}

// stubGuard mirrors idempotency.Manager.Guard without Redis.
type stubGuard struct {
	processed map[uuid.UUID]bool
	calls     int
	released  int
}

func (g *stubGuard) Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error {
	g.calls++
	if g.processed[eventID] {
		return idempotency.ErrAlreadyProcessed
	}
	g.processed[eventID] = true
	if err := fn(ctx); err != nil {
		delete(g.processed, eventID)
		g.released++
		return err
	}
	return nil
}

type stubSubscriber struct {
	messages []eventbus.Message
}

func (s *stubSubscriber) Receive(ctx context.Context, handler eventbus.Handler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubSubscriber) Close() error { return nil }
