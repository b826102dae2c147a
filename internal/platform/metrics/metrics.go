// Package metrics holds the Prometheus collectors for the tutor service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. Every collector is registered on the Metrics'
// own registry; nothing touches the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	AttemptsTotal      *prometheus.CounterVec
	XPAwarded          prometheus.Counter
	MasteryTransitions prometheus.Counter
	TopicsUnlocked     prometheus.Counter
	DuplicateSubmits   prometheus.Counter
	SubmitFailures     *prometheus.CounterVec
	SubmitDuration     prometheus.Histogram
	RateLimitedSubmits prometheus.Counter
	EventPublishErrors *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		AttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_attempts_total",
				Help: "Total number of recorded attempts",
			},
			[]string{"correct"},
		),
		XPAwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_xp_awarded_total",
			Help: "Total XP awarded across all students",
		}),
		MasteryTransitions: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_mastery_transitions_total",
			Help: "Number of subtopics newly mastered",
		}),
		TopicsUnlocked: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_topics_unlocked_total",
			Help: "Number of subtopics unlocked by a mastery event",
		}),
		DuplicateSubmits: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_duplicate_submits_total",
			Help: "Submissions ignored because their attempt id was already recorded",
		}),
		SubmitFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_submit_failures_total",
				Help: "Failed submissions by error kind",
			},
			[]string{"kind"},
		),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_submit_duration_seconds",
			Help:    "Time to record one submission",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}),
		RateLimitedSubmits: f.NewCounter(prometheus.CounterOpts{
			Name: "tutor_rate_limited_submits_total",
			Help: "Submissions rejected by the rate limiter",
		}),
		EventPublishErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_event_errors_total",
				Help: "Engine events that failed to log or publish",
			},
			[]string{"event_type"},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutor_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAttempt records one committed attempt. A nil *Metrics is a no-op.
func (m *Metrics) ObserveAttempt(correct bool, xp int, mastered bool, unlocked int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(strconv.FormatBool(correct)).Inc()
	m.XPAwarded.Add(float64(xp))
	if mastered {
		m.MasteryTransitions.Inc()
	}
	m.TopicsUnlocked.Add(float64(unlocked))
	m.SubmitDuration.Observe(elapsed.Seconds())
}

// ObserveDuplicate records a deduplicated retry.
func (m *Metrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateSubmits.Inc()
}

// ObserveFailure records a failed submit by kind (not_found, invalid, storage).
func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.SubmitFailures.WithLabelValues(kind).Inc()
}

// ObserveRateLimited records a throttled submit.
func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedSubmits.Inc()
}

// ObserveEventError records a failed event delivery.
func (m *Metrics) ObserveEventError(eventType string) {
	if m == nil {
		return
	}
	m.EventPublishErrors.WithLabelValues(eventType).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
