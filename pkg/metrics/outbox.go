package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the outbox publisher.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincore_outbox_published_total",
		Help: "Outbox events published by event type.",
	}, []string{"event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincore_outbox_publish_failures_total",
		Help: "Outbox publish failures by event type.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincore_outbox_dead_lettered_total",
		Help: "Outbox events moved to the DLQ by reason.",
	}, []string{"reason"})
	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fincore_outbox_breaker_state",
		Help: "Circuit breaker state per breaker (0 closed, 1 half-open, 2 open).",
	}, []string{"breaker"})
	reg.MustRegister(published, failures, deadLettered, breakerState)
	return &OutboxMetrics{
		published:    published,
		failures:     failures,
		deadLettered: deadLettered,
		breakerState: breakerState,
	}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailure(eventType string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}

// SetBreakerState records the numeric breaker state.
func (m *OutboxMetrics) SetBreakerState(breaker string, state int) {
	if m == nil || m.breakerState == nil {
		return
	}
	m.breakerState.WithLabelValues(normalizeLabel(breaker)).Set(float64(state))
}
