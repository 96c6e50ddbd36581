// Package metrics holds Prometheus instruments shared by the form, the
// prediction client, and the session store.  All collectors are registered
// with the global registry, so mounting promhttp.Handler() in main.go is
// enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Submission results used as the "result" label.
const (
	ResultEstimate = "estimate"
	ResultFailure  = "failure"
)

var (
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_submissions_total",
			Help: "Settled submissions, labelled by outcome.",
		}, []string{"result"})

	ValidationRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_validation_rejections_total",
			Help: "Submit attempts suppressed by field validation.",
		})

	BusyRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_busy_rejections_total",
			Help: "Submit attempts ignored because a request was already in flight.",
		})

	PredictionRequestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_request_seconds",
			Help:    "Latency of outbound prediction requests.",
			Buckets: prometheus.DefBuckets,
		})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "form_sessions_active",
			Help: "Number of form sessions currently held in memory.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "form_sessions_evicted_total",
			Help: "Cumulative number of form sessions evicted from memory.",
		})
)

func init() {
	prometheus.MustRegister(
		Submissions,
		ValidationRejections,
		BusyRejections,
		PredictionRequestSeconds,
		ActiveSessions,
		SessionEvictTotal,
	)
}
