package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronMetrics tracks scheduled job runs and lock contention between
// cron-worker replicas.
type CronMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cycles   *prometheus.CounterVec
}

// NewCronMetrics registers the cron metrics on reg. A nil reg yields a no-op
// collector.
func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fincore_cron_job_runs_total",
			Help: "Cron job executions by job and result (ok or error).",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fincore_cron_job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fincore_cron_cycles_total",
			Help: "Cron cycles by lock outcome (ran or skipped).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.runs, m.duration, m.cycles)
	return m
}

// ObserveRun records one job execution. A nil err counts as ok.
func (m *CronMetrics) ObserveRun(job string, err error, elapsed time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(job, result).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// ObserveCycle records whether this replica won the lock for a cycle.
func (m *CronMetrics) ObserveCycle(acquired bool) {
	if m == nil || m.cycles == nil {
		return
	}
	outcome := "skipped"
	if acquired {
		outcome = "ran"
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
