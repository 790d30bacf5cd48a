package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsRecordsPostingOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObservePosting("order_hold", "ok", 10*time.Millisecond)
	m.ObservePosting("order_hold", "INSUFFICIENT_FUNDS", time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fincore_ledger_postings_total", "result", "INSUFFICIENT_FUNDS"); err != nil || got != 1 {
		t.Fatalf("expected one insufficient funds posting, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "fincore_ledger_posting_duration_seconds", "reference_type", "order_hold"); err != nil || got <= 0 {
		t.Fatalf("expected posting duration, got %f (%v)", got, err)
	}
}

func TestRiskMetricsCountsDecisionsAndDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRiskMetrics(reg)
	m.IncDecision("review")
	m.IncDecision("review")
	m.IncAuditDropped()
	m.IncAuditFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fincore_risk_decisions_total", "decision", "review"); err != nil || got != 2 {
		t.Fatalf("expected two review decisions, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "fincore_risk_audit_dropped_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one dropped audit record")
	}
}

func TestOutboxMetricsBreakerGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order_funds_held")
	m.IncDeadLettered("max_attempts")
	m.SetBreakerState("pubsub", 2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "fincore_outbox_breaker_state")
	if mf == nil {
		t.Fatalf("breaker gauge not registered")
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "breaker", "pubsub") && metric.GetGauge().GetValue() == 2 {
			return
		}
	}
	t.Fatalf("expected breaker gauge at 2")
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewLedgerMetrics(nil).ObservePosting("x", "ok", time.Second)
	NewRiskMetrics(nil).IncAuditDropped()
	NewOutboxMetrics(nil).SetBreakerState("x", 1)
	var nilMetrics *OutboxMetrics
	nilMetrics.IncPublished("x")
}
