package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 9, 1, 4, 0, 0, 0, time.UTC)

	m.RecordJob("orphan-media-cleanup", 2*time.Second, nil, finished)
	m.RecordJob("orphan-media-cleanup", time.Second, errors.New("list failed"), finished.Add(time.Hour))
	m.RecordCycle(CycleRan)
	m.RecordCycle(CycleSkipped)
	m.RecordCycle(CycleSkipped)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	job := map[string]string{"job": "orphan-media-cleanup"}
	if got := sample(mfs, "contactalia_cron_job_runs_total", with(job, "outcome", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := sample(mfs, "contactalia_cron_job_runs_total", with(job, "outcome", "failure")); got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
	if got := sample(mfs, "contactalia_cron_job_last_success_timestamp_seconds", job); got != float64(finished.Unix()) {
		t.Fatalf("failed run must not move last success, got %v", got)
	}
	if got := sample(mfs, "contactalia_cron_job_duration_seconds", job); got != 3 {
		t.Fatalf("expected duration sum 3s, got %v", got)
	}
	if got := sample(mfs, "contactalia_cron_cycles_total", map[string]string{"result": CycleSkipped}); got != 2 {
		t.Fatalf("expected two skipped cycles, got %v", got)
	}
}

func TestNilCronJobMetricsIsInert(t *testing.T) {
	var m *CronJobMetrics
	m.RecordJob("x", time.Second, nil, time.Now())
	m.RecordCycle(CycleRan)
}

func with(base map[string]string, k, v string) map[string]string {
	out := map[string]string{k: v}
	for key, val := range base {
		out[key] = val
	}
	return out
}

// sample returns the counter, gauge or histogram-sum value of the series
// in family name whose labels include every pair in want.
func sample(mfs []*dto.MetricFamily, name string, want map[string]string) float64 {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !hasLabels(metric.GetLabel(), want) {
				continue
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				return metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				return metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				return metric.GetHistogram().GetSampleSum()
			}
		}
	}
	return -1
}

func hasLabels(labels []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, l := range labels {
		if v, ok := want[l.GetName()]; ok && v == l.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
