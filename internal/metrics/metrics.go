// Package metrics exposes Prometheus series for the prediction client and
// the stand-in prediction service.
package metrics

import (
	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "typeahead"

// =============================================================================
// Client
// =============================================================================

// Recorder turns Predictor events into metrics. Register Observe as a
// predict.Hook.
type Recorder struct {
	// events counts every Predictor event.
	// Labels: kind (skipped, sent, applied, discarded, timed_out)
	events *prometheus.CounterVec

	// latency measures how long queries took to resolve.
	// Labels: outcome (success, failure), admission (applied, discarded)
	latency *prometheus.HistogramVec

	inflight     prometheus.Gauge
	lastAdmitted prometheus.Gauge
}

// NewRecorder creates the client collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "events_total",
			Help:      "Predictor events by kind",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "query_latency_seconds",
			Help:      "Time from sending a query to its outcome",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1, 2, 5},
		}, []string{"outcome", "admission"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "queries_in_flight",
			Help:      "Queries sent and not yet resolved",
		}),
		lastAdmitted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "last_admitted_sequence",
			Help:      "Sequence number of the last outcome shown",
		}),
	}
}

// Observe records one event.
func (r *Recorder) Observe(ev predict.Event) {
	r.events.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case predict.EventSent:
		r.inflight.Inc()
	case predict.EventApplied, predict.EventDiscarded:
		if ev.Kind == predict.EventApplied {
			r.lastAdmitted.Set(float64(ev.Sequence))
		}
		// Only outcomes that closed a query carry its ID.
		if ev.QueryID == "" {
			return
		}
		r.inflight.Dec()
		admission := predict.Applied
		if ev.Kind == predict.EventDiscarded {
			admission = predict.Discarded
		}
		r.latency.WithLabelValues(outcomeLabel(ev.Outcome), admission.String()).Observe(ev.Latency.Seconds())
	}
}

func outcomeLabel(o predict.Outcome) string {
	switch o.(type) {
	case predict.Success:
		return "success"
	case predict.Failure:
		return "failure"
	default:
		return "cleared"
	}
}

// =============================================================================
// Service
// =============================================================================

// ServiceMetrics instruments the stand-in prediction service.
type ServiceMetrics struct {
	// requests counts handled requests.
	// Labels: status (HTTP status code), request_type (json, form)
	requests *prometheus.CounterVec

	duration       prometheus.Histogram
	topProbability prometheus.Histogram
	rateLimited    prometheus.Counter
}

// NewServiceMetrics creates the service collectors on reg.
func NewServiceMetrics(reg prometheus.Registerer) *ServiceMetrics {
	f := promauto.With(reg)
	return &ServiceMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "requests_total",
			Help:      "Prediction requests by status",
		}, []string{"status", "request_type"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "request_duration_seconds",
			Help:      "Prediction request handling time, including injected latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.3, 0.5, 1},
		}),
		topProbability: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "top_probability",
			Help:      "Probability of the best prediction per request",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// ObserveRequest records a handled request.
func (m *ServiceMetrics) ObserveRequest(status, requestType string, seconds float64) {
	m.requests.WithLabelValues(status, requestType).Inc()
	m.duration.Observe(seconds)
}

// ObserveTop records the best prediction's probability.
func (m *ServiceMetrics) ObserveTop(p float64) {
	m.topProbability.Observe(p)
}

// RateLimited records a rejected request.
func (m *ServiceMetrics) RateLimited() {
	m.rateLimited.Inc()
}
