package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	StageAdvances      *prometheus.CounterVec
	ValidationRefusals *prometheus.CounterVec
	Uploads            *prometheus.CounterVec
	Autosaves          prometheus.Counter
	Submissions        *prometheus.CounterVec
	ForceCompletions   prometheus.Counter
	UpstreamLatency    *prometheus.HistogramVec
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		StageAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristage_stage_advances_total",
			Help: "Accepted forward stage transitions, labeled by mode.",
		}, []string{"mode"}),
		ValidationRefusals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristage_validation_refusals_total",
			Help: "Advance or submit attempts refused by the step validator, labeled by stage.",
		}, []string{"stage"}),
		Uploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristage_document_uploads_total",
			Help: "Document upload attempts by slot and outcome.",
		}, []string{"slot", "outcome"}),
		Autosaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veristage_autosaves_total",
			Help: "Incremental progress saves issued by admin-assisted workflows.",
		}),
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristage_submissions_total",
			Help: "Terminal submissions by outcome.",
		}, []string{"outcome"}),
		ForceCompletions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veristage_force_completions_total",
			Help: "Admin force-complete actions.",
		}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veristage_upstream_latency_seconds",
			Help:    "Latency of document and record service calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veristage_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveUpstream records one upstream call's latency.
func (m *Metrics) ObserveUpstream(target string, d time.Duration) {
	m.UpstreamLatency.WithLabelValues(target).Observe(d.Seconds())
}
