package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks posting outcomes and latency.
type LedgerMetrics struct {
	postings *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fincore_ledger_postings_total",
		Help: "Ledger postings by reference type and outcome code.",
	}, []string{"reference_type", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fincore_ledger_posting_duration_seconds",
		Help:    "Time spent posting a ledger transaction, including lock waits.",
		Buckets: prometheus.DefBuckets,
	}, []string{"reference_type"})
	reg.MustRegister(postings, duration)
	return &LedgerMetrics{postings: postings, duration: duration}
}

// ObservePosting records one posting attempt. result is "ok" or an error code.
func (m *LedgerMetrics) ObservePosting(referenceType, result string, elapsed time.Duration) {
	if m == nil || m.postings == nil {
		return
	}
	referenceType = normalizeLabel(referenceType)
	m.postings.WithLabelValues(referenceType, normalizeLabel(result)).Inc()
	m.duration.WithLabelValues(referenceType).Observe(elapsed.Seconds())
}
