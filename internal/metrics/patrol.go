// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus collectors for patrol outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jellypatrol_active_sessions",
		Help: "Active playback sessions seen in the last poll cycle",
	}, []string{"server"})

	sessionsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellypatrol_sessions_evaluated_total",
		Help: "Total number of session snapshots evaluated",
	}, []string{"server"})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellypatrol_violations_total",
		Help: "Total number of terminate verdicts",
	}, []string{"server", "path"}) // path=video|audio

	terminationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellypatrol_terminations_total",
		Help: "Termination commands sent by outcome",
	}, []string{"server", "outcome"}) // outcome=success|failure

	dryRunTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellypatrol_dry_run_verdicts_total",
		Help: "Terminate verdicts logged but not executed (kill disabled)",
	}, []string{"server"})

	notifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellypatrol_notify_failures_total",
		Help: "Failed pre-termination message deliveries",
	}, []string{"server"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellypatrol_fetch_failures_total",
		Help: "Session list fetches that failed and skipped a cycle",
	}, []string{"server"})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jellypatrol_cycle_duration_seconds",
		Help:    "Duration of one full patrol cycle",
		Buckets: prometheus.DefBuckets,
	}, []string{"server"})
)

// Recorder implements the patrol loop's metrics interface on top of
// the package collectors.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (Recorder) RecordActiveSessions(server string, n int) {
	activeSessions.WithLabelValues(server).Set(float64(n))
}

func (Recorder) IncSessionEvaluated(server string) {
	sessionsEvaluated.WithLabelValues(server).Inc()
}

func (Recorder) IncViolation(server, path string) {
	violationsTotal.WithLabelValues(server, path).Inc()
}

func (Recorder) IncTermination(server, outcome string) {
	terminationsTotal.WithLabelValues(server, outcome).Inc()
}

func (Recorder) IncDryRun(server string) {
	dryRunTotal.WithLabelValues(server).Inc()
}

func (Recorder) IncNotifyFailure(server string) {
	notifyFailures.WithLabelValues(server).Inc()
}

func (Recorder) IncFetchFailure(server string) {
	fetchFailures.WithLabelValues(server).Inc()
}

func (Recorder) ObserveCycleDuration(server string, seconds float64) {
	cycleDuration.WithLabelValues(server).Observe(seconds)
}
