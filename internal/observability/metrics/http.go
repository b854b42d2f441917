package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	sessionsTotal        *prometheus.CounterVec
	sessionDuration      *prometheus.HistogramVec
	sessionVerdicts      *prometheus.HistogramVec
	stepsTotal           *prometheus.CounterVec
	stepDuration         *prometheus.HistogramVec
	groundednessFailures *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "sessions_total",
			Help:      "Total answer sessions by provenance and failure reason.",
		},
		[]string{"service", "provenance", "failure_reason"},
	)
	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "session_duration_seconds",
			Help:      "End-to-end answer session duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	sessionVerdicts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "session_verdicts",
			Help:      "Distribution of grader verdicts recorded per session.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	stepsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "steps_total",
			Help:      "Total workflow step executions by step and outcome detail.",
		},
		[]string{"service", "step", "detail"},
	)
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "step_duration_seconds",
			Help:      "Workflow step duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "step"},
	)
	groundednessFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "workflow",
			Name:      "groundedness_failures_total",
			Help:      "Total groundedness check failures.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		sessionsTotal,
		sessionDuration,
		sessionVerdicts,
		stepsTotal,
		stepDuration,
		groundednessFailures,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		sessionsTotal:        sessionsTotal,
		sessionDuration:      sessionDuration,
		sessionVerdicts:      sessionVerdicts,
		stepsTotal:           stepsTotal,
		stepDuration:         stepDuration,
		groundednessFailures: groundednessFailures,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSession(service, provenance, failureReason string, verdictCount int, duration time.Duration) {
	if provenance == "" {
		provenance = "none"
	}
	m.sessionsTotal.WithLabelValues(service, provenance, failureReason).Inc()
	m.sessionDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.sessionVerdicts.WithLabelValues(service).Observe(float64(verdictCount))
}

func (m *HTTPServerMetrics) RecordGroundednessFailure(service string) {
	m.groundednessFailures.WithLabelValues(service).Inc()
}

// statusRecorder captures the response status for labelling. Every endpoint
// here writes a plain JSON body, so no streaming interfaces are forwarded.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
