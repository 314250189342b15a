package metrics_test

import (
	"errors"
	"testing"
	"time"

	"sregrade/internal/conductor/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RecordSubmission("noop", metrics.OutcomeAccepted)
	m.RecordSubmission("noop", metrics.OutcomeAccepted)
	m.RecordTransition("noop", "detection")
	m.ObserveOracle("detection", 20*time.Millisecond)
	m.RecordInjection(nil)
	m.RecordInjection(errors.New("boom"))
	m.RecordFinished("done")

	count, err := testutil.GatherAndCount(reg,
		"sregrade_conductor_submissions_total",
		"sregrade_conductor_stage_transitions_total",
		"sregrade_oracle_eval_duration_seconds",
		"sregrade_fault_injections_total",
		"sregrade_conductor_problems_finished_total",
	)
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 series, got %d", count)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RecordSubmission("noop", metrics.OutcomeRejected)
	m.RecordTransition("noop", "detection")
	m.ObserveOracle("noop", time.Second)
	m.RecordInjection(nil)
	m.RecordFinished("done")
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}
