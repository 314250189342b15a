// Package metrics exposes grading counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sregrade"

// Submission outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds the conductor's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// submissions counts submit calls.
	// Labels: stage (stage at submit time), outcome (accepted, rejected, invalid, error)
	submissions *prometheus.CounterVec

	// transitions counts stage changes.
	// Labels: from, to
	transitions *prometheus.CounterVec

	// oracleLatency measures oracle evaluation time.
	// Labels: stage
	oracleLatency *prometheus.HistogramVec

	// faultInjections counts fault injections.
	// Labels: status (success, error)
	faultInjections *prometheus.CounterVec

	// problems counts finished grading sessions.
	// Labels: outcome (done, aborted)
	problems *prometheus.CounterVec
}

// New registers the grading collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conductor",
			Name:      "submissions_total",
			Help:      "Total submissions by stage and outcome",
		}, []string{"stage", "outcome"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conductor",
			Name:      "stage_transitions_total",
			Help:      "Total stage transitions",
		}, []string{"from", "to"}),
		oracleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "eval_duration_seconds",
			Help:      "Oracle evaluation latency in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
		faultInjections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fault",
			Name:      "injections_total",
			Help:      "Total fault injections by status",
		}, []string{"status"}),
		problems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conductor",
			Name:      "problems_finished_total",
			Help:      "Total grading sessions finished",
		}, []string{"outcome"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSubmission(stage, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveOracle(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.oracleLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordInjection(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.faultInjections.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordFinished(outcome string) {
	if m == nil {
		return
	}
	m.problems.WithLabelValues(outcome).Inc()
}
