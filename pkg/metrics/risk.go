package metrics

import "github.com/prometheus/client_golang/prometheus"

// RiskMetrics tracks risk gate decisions and the health of the audit side channel.
type RiskMetrics struct {
	decisions     *prometheus.CounterVec
	auditDropped  prometheus.Counter
	auditFailures prometheus.Counter
}

// NewRiskMetrics registers the risk metrics on the provided registerer.
func NewRiskMetrics(reg prometheus.Registerer) *RiskMetrics {
	if reg == nil {
		return &RiskMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincore_risk_decisions_total",
		Help: "Risk gate evaluations by decision.",
	}, []string{"decision"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fincore_risk_audit_dropped_total",
		Help: "Audit records dropped because the audit queue was full.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fincore_risk_audit_failures_total",
		Help: "Audit records that failed to persist.",
	})
	reg.MustRegister(decisions, dropped, failures)
	return &RiskMetrics{decisions: decisions, auditDropped: dropped, auditFailures: failures}
}

func (m *RiskMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

func (m *RiskMetrics) IncAuditDropped() {
	if m == nil || m.auditDropped == nil {
		return
	}
	m.auditDropped.Inc()
}

func (m *RiskMetrics) IncAuditFailure() {
	if m == nil || m.auditFailures == nil {
		return
	}
	m.auditFailures.Inc()
}
