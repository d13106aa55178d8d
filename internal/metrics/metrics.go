// Package metrics exposes Prometheus metrics for the scoring pipeline.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all pipeline metrics on a dedicated Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	ScoresComputed    *prometheus.CounterVec
	ScoreValue        *prometheus.HistogramVec
	DirectivesSkipped *prometheus.CounterVec
	SignalsFired      *prometheus.CounterVec
	SignalsSuppressed *prometheus.CounterVec
	RiskAssessments   *prometheus.CounterVec
	StageFailures     *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
	BatchesRunning    prometheus.Gauge
}

// NewRegistry creates and registers all metrics, plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ScoresComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesignal_scores_computed_total",
				Help: "Composite scores computed by strategy",
			},
			[]string{"strategy"},
		),

		ScoreValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradesignal_composite_score",
				Help:    "Distribution of composite scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"strategy"},
		),

		DirectivesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesignal_directives_skipped_total",
				Help: "Directive evaluations skipped under the skip failure policy",
			},
			[]string{"directive"},
		),

		SignalsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesignal_signals_fired_total",
				Help: "Trade signals fired by strategy and action",
			},
			[]string{"strategy", "action"},
		),

		SignalsSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesignal_signals_suppressed_total",
				Help: "Decisions that did not fire, by first suppression reason",
			},
			[]string{"strategy", "reason"},
		),

		RiskAssessments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesignal_risk_assessments_total",
				Help: "Risk assessments by level and whether they failed closed",
			},
			[]string{"level", "failed_closed"},
		),

		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradesignal_stage_failures_total",
				Help: "Per-symbol failures by pipeline stage",
			},
			[]string{"stage"},
		),

		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradesignal_batch_duration_seconds",
				Help:    "Duration of a batch run",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"strategy"},
		),

		BatchesRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradesignal_batches_running",
				Help: "Batches currently in progress",
			},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ScoresComputed,
		r.ScoreValue,
		r.DirectivesSkipped,
		r.SignalsFired,
		r.SignalsSuppressed,
		r.RiskAssessments,
		r.StageFailures,
		r.BatchDuration,
		r.BatchesRunning,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveScore records a computed composite score and its skipped directives.
func (r *Registry) ObserveScore(strategy string, score float64, skipped []string) {
	r.ScoresComputed.WithLabelValues(strategy).Inc()
	r.ScoreValue.WithLabelValues(strategy).Observe(score)
	for _, id := range skipped {
		r.DirectivesSkipped.WithLabelValues(id).Inc()
	}
}

// ObserveDecision records a fired signal, or the first suppression reason.
func (r *Registry) ObserveDecision(strategy string, fired bool, action string, reasons []string) {
	if fired {
		r.SignalsFired.WithLabelValues(strategy, action).Inc()
		return
	}
	reason := "unknown"
	if len(reasons) > 0 {
		reason = ReasonLabel(reasons[0])
	}
	r.SignalsSuppressed.WithLabelValues(strategy, reason).Inc()
}

// ObserveRisk records a risk assessment.
func (r *Registry) ObserveRisk(level string, failedClosed bool) {
	fc := "false"
	if failedClosed {
		fc = "true"
	}
	r.RiskAssessments.WithLabelValues(level, fc).Inc()
}

// ObserveFailure records a per-symbol failure in a stage.
func (r *Registry) ObserveFailure(stage string) {
	r.StageFailures.WithLabelValues(stage).Inc()
}

// ReasonLabel strips the detail after the first colon so labels stay low-cardinality.
func ReasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}
