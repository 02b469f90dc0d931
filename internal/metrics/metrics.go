// Package metrics holds the Prometheus instrumentation for signscribe.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame skip reasons.
const (
	SkipDetectError   = "detect_error"
	SkipNoHand        = "no_hand"
	SkipFeatureLength = "feature_length"
)

// Metrics contains all Prometheus metrics for the recognition pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	FramesProcessed        prometheus.Counter
	FramesSkipped          *prometheus.CounterVec
	ClassificationFailures prometheus.Counter
	FrameDuration          prometheus.Histogram
	VoteConfidence         prometheus.Histogram

	// Text metrics
	Reductions *prometheus.CounterVec
	Commits    prometheus.Counter

	// Session metrics
	SessionRunning prometheus.Gauge
	SessionStarts  prometheus.Counter
	CaptureErrors  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "signscribe_frames_processed_total",
			Help: "Total number of frames read from the camera",
		}),
		FramesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signscribe_frames_skipped_total",
			Help: "Frames dropped before reaching the vote buffer",
		}, []string{"reason"}),
		ClassificationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "signscribe_classification_failures_total",
			Help: "Total number of frames the classifier could not label",
		}),
		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signscribe_frame_duration_seconds",
			Help:    "Time spent processing one frame after capture",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		VoteConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "signscribe_vote_confidence",
			Help:    "Confidence of the majority vote per frame",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),

		Reductions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signscribe_text_reductions_total",
			Help: "Votes applied to the text state, by outcome",
		}, []string{"action"}),
		Commits: f.NewCounter(prometheus.CounterOpts{
			Name: "signscribe_commits_total",
			Help: "Total number of phrases committed",
		}),

		SessionRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "signscribe_session_running",
			Help: "1 while the recognition loop is running",
		}),
		SessionStarts: f.NewCounter(prometheus.CounterOpts{
			Name: "signscribe_session_starts_total",
			Help: "Total number of successful session starts",
		}),
		CaptureErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "signscribe_capture_errors_total",
			Help: "Capture failures that ended a session",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signscribe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signscribe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFrame records one frame and how long it took.
func (m *Metrics) RecordFrame(durationSeconds float64) {
	if m == nil {
		return
	}
	m.FramesProcessed.Inc()
	m.FrameDuration.Observe(durationSeconds)
}

// RecordSkip records a frame dropped for reason.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.FramesSkipped.WithLabelValues(reason).Inc()
}

// RecordClassificationFailure increments the classification failure counter.
func (m *Metrics) RecordClassificationFailure() {
	if m == nil {
		return
	}
	m.ClassificationFailures.Inc()
}

// RecordVote records the confidence of a majority vote.
func (m *Metrics) RecordVote(confidence float64) {
	if m == nil {
		return
	}
	m.VoteConfidence.Observe(confidence)
}

// RecordReduction records the outcome of applying a vote.
func (m *Metrics) RecordReduction(action string) {
	if m == nil {
		return
	}
	m.Reductions.WithLabelValues(action).Inc()
}

// RecordCommit increments the commit counter.
func (m *Metrics) RecordCommit() {
	if m == nil {
		return
	}
	m.Commits.Inc()
}

// SetRunning sets the session running gauge.
func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.SessionRunning.Set(1)
		m.SessionStarts.Inc()
		return
	}
	m.SessionRunning.Set(0)
}

// RecordCaptureError increments the fatal capture error counter.
func (m *Metrics) RecordCaptureError() {
	if m == nil {
		return
	}
	m.CaptureErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
