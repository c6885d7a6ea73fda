// Package metrics exposes Prometheus collectors for the search pipeline and gateway.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchJobsTotal           *prometheus.CounterVec
	searchJobDurationSeconds  prometheus.Histogram
	searchJobsPending         prometheus.Gauge
	searchActiveWorkers       prometheus.Gauge
	breakerState              *prometheus.GaugeVec
	breakerTransitionsTotal   *prometheus.CounterVec
	gatewayRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSecond *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_jobs_total",
				Help: "Total number of search jobs reaching a terminal state, labeled by status.",
			},
			[]string{"status"},
		)

		searchJobDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_job_duration_seconds",
				Help:    "Histogram of search job execution latencies.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		searchJobsPending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_jobs_pending",
				Help: "Number of jobs queued and not yet picked up by a worker.",
			},
		)

		searchActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "search_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		breakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Current circuit breaker state per service (0=closed, 1=open, 2=half-open).",
			},
			[]string{"service"},
		)

		breakerTransitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_transitions_total",
				Help: "Total circuit breaker state transitions, labeled by service and target state.",
			},
			[]string{"service", "to"},
		)

		gatewayRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total gateway proxy requests, labeled by service and outcome.",
			},
			[]string{"service", "outcome"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob records a terminal job outcome and its execution duration.
func ObserveJob(status string, duration time.Duration) {
	if searchJobsTotal == nil {
		return
	}
	searchJobsTotal.WithLabelValues(status).Inc()
	searchJobDurationSeconds.Observe(duration.Seconds())
}

// SetPendingJobs records the current queue depth.
func SetPendingJobs(n int) {
	if searchJobsPending == nil {
		return
	}
	searchJobsPending.Set(float64(n))
}

// WorkerStarted increments the active worker gauge.
func WorkerStarted() {
	if searchActiveWorkers == nil {
		return
	}
	searchActiveWorkers.Inc()
}

// WorkerFinished decrements the active worker gauge.
func WorkerFinished() {
	if searchActiveWorkers == nil {
		return
	}
	searchActiveWorkers.Dec()
}

// ObserveBreakerState records a breaker transition for a service.
func ObserveBreakerState(service, to string, stateValue int) {
	if breakerState == nil {
		return
	}
	breakerState.WithLabelValues(service).Set(float64(stateValue))
	breakerTransitionsTotal.WithLabelValues(service, to).Inc()
}

// ObserveGatewayRequest counts a proxied request by outcome
// (proxied, degraded, rejected).
func ObserveGatewayRequest(service, outcome string) {
	if gatewayRequestsTotal == nil {
		return
	}
	gatewayRequestsTotal.WithLabelValues(service, outcome).Inc()
}

// ObserveHTTPRequest records an HTTP request latency.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	if httpRequestDurationSecond == nil {
		return
	}
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}
