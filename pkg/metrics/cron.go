package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contactalia"

// Cycle results for RecordCycle.
const (
	CycleRan        = "ran"
	CycleSkipped    = "skipped_locked"
	CycleLockFailed = "lock_error"
)

// CronJobMetrics covers the cron worker: one series per job outcome, job
// durations, the last successful run per job, and how each cycle ended.
// A nil receiver records nothing.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron metrics on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_job_runs_total",
			Help:      "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		// Orphan sweeps over large buckets can take minutes.
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cron_job_duration_seconds",
			Help:      "Duration of cron jobs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 3, 9),
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cron_job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per job.",
		}, []string{"job"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_cycles_total",
			Help:      "Cron cycles by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.cycles)
	}
	return m
}

// RecordJob records one job execution that finished at `at`.
func (c *CronJobMetrics) RecordJob(job string, took time.Duration, err error, at time.Time) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
}

// RecordCycle counts a cycle under one of the Cycle* results.
func (c *CronJobMetrics) RecordCycle(result string) {
	if c == nil {
		return
	}
	c.cycles.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
