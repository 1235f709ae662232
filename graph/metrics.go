package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics collection for
// graph execution.
//
// Metrics exposed (all namespaced with "stategraph_"):
//
//  1. invocations_total (counter): Completed runs.
//     Labels: status (success/error).
//  2. inflight_invocations (gauge): Runs currently executing.
//  3. invocation_duration_ms (histogram): End-to-end run duration.
//     Labels: status.
//  4. step_latency_ms (histogram): Node execution duration in milliseconds.
//     Labels: node_id, status (success/error).
//  5. routes_total (counter): Router decisions.
//     Labels: from, to.
//
// All methods are safe to call on a nil *PrometheusMetrics, in which case they
// do nothing.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	g, err := b.Compile(graph.WithMetrics(metrics))
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	inflight prometheus.Gauge

	invocationDuration *prometheus.HistogramVec
	stepLatency        *prometheus.HistogramVec

	invocations *prometheus.CounterVec
	routes      *prometheus.CounterVec

	registry prometheus.Registerer

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all graph execution metrics with
// the provided registry. A nil registry uses prometheus.DefaultRegisterer.
//
// Histograms use buckets suited to node execution times from 1ms to 10s.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)
	buckets := []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}

	return &PrometheusMetrics{
		registry: registry,
		enabled:  true,

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "stategraph",
			Name:      "inflight_invocations",
			Help:      "Current number of graph runs executing",
		}),
		invocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "invocation_duration_ms",
			Help:      "Graph run duration in milliseconds",
			Buckets:   buckets,
		}, []string{"status"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   buckets,
		}, []string{"node_id", "status"}),
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "invocations_total",
			Help:      "Total number of completed graph runs",
		}, []string{"status"}),
		routes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "routes_total",
			Help:      "Total number of router decisions by source and target",
		}, []string{"from", "to"}),
	}
}

func (pm *PrometheusMetrics) active() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

func (pm *PrometheusMetrics) invocationStarted() {
	if !pm.active() {
		return
	}
	pm.inflight.Inc()
}

func (pm *PrometheusMetrics) invocationFinished(status string, d time.Duration) {
	if !pm.active() {
		return
	}
	pm.inflight.Dec()
	pm.invocations.WithLabelValues(status).Inc()
	pm.invocationDuration.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}

// RecordStepLatency records the execution duration of a node.
//
// Example:
//
//	start := time.Now()
//	update, err := node.Run(ctx, state)
//	metrics.RecordStepLatency("sayHello", time.Since(start), "success")
func (pm *PrometheusMetrics) RecordStepLatency(nodeID string, latency time.Duration, status string) {
	if !pm.active() {
		return
	}
	pm.stepLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// RecordRoute counts a router decision from one node to another.
func (pm *PrometheusMetrics) RecordRoute(from, to string) {
	if !pm.active() {
		return
	}
	pm.routes.WithLabelValues(from, to).Inc()
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable().
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Reset clears the in-flight gauge (useful for testing).
// Counters and histograms are cumulative and are not reset.
func (pm *PrometheusMetrics) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.inflight.Set(0)
}
