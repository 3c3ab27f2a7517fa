// Package metrics provides Prometheus instrumentation for the testimonial
// moderation service. It exposes counters for verdicts, triggered checks and
// classifier outcomes, and a histogram for evaluation latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts completed evaluations, labeled by verdict
	// status: "PENDING", "FLAGGED", "REJECTED" or "APPROVED".
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testimonial_moderation_evaluations_total",
		Help: "Total number of moderation evaluations by verdict",
	}, []string{"status"})

	// EvaluationLatency records how long one evaluation takes, including the
	// optional classifier call.
	EvaluationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "testimonial_moderation_evaluation_seconds",
		Help:    "Moderation evaluation latency in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})

	// ChecksTriggered counts checks that produced at least one issue.
	ChecksTriggered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testimonial_moderation_checks_triggered_total",
		Help: "Total number of checks that raised an issue",
	}, []string{"check"})

	// ClassifierCalls counts AI classifier outcomes. "error", "timeout" and
	// "disabled" are degradations; "clean" is a real not-flagged or empty
	// answer.
	ClassifierCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testimonial_moderation_classifier_total",
		Help: "AI classifier outcomes",
	}, []string{"outcome"}) // outcome = "flagged", "clean", "error", "timeout", "disabled"

	// FallbacksTotal counts evaluations that fell back to manual review
	// because a collaborator failed.
	FallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "testimonial_moderation_fallbacks_total",
		Help: "Evaluations that fell back to manual review",
	}, []string{"reason"})

	// QueueDropped counts requests dropped because the worker queue was full.
	QueueDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "testimonial_moderation_queue_dropped_total",
		Help: "Moderation requests dropped because the worker queue was full",
	})
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal,
		EvaluationLatency,
		ChecksTriggered,
		ClassifierCalls,
		FallbacksTotal,
		QueueDropped,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
