package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Step statuses used as metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// Run outcomes used as the outcome label of threadgraph_runs_total.
const (
	OutcomeCompleted       = "completed"
	OutcomeRecursionLimit  = "recursion_limit"
	OutcomeStepError       = "step_error"
	OutcomeRoutingError    = "routing_error"
	OutcomeMalformedUpdate = "malformed_update"
	OutcomeStoreError      = "store_error"
	OutcomeCancelled       = "cancelled"
)

// PrometheusMetrics collects engine metrics, all namespaced "threadgraph_":
//
//   - steps_total (counter, labels node, status): completed step attempts.
//   - step_latency_ms (histogram, labels node, status): step duration.
//   - runs_total (counter, label outcome): finished Run calls.
//   - active_runs (gauge): Run calls currently holding a thread lock.
//   - checkpoint_writes_total (counter): successful checkpoint saves.
//
// Thread identifiers are deliberately not labels; their cardinality is
// unbounded.
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine, _ := graph.New(def, st, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	steps            *prometheus.CounterVec
	stepLatency      *prometheus.HistogramVec
	runs             *prometheus.CounterVec
	activeRuns       prometheus.Gauge
	checkpointWrites prometheus.Counter

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers the collectors with registry, or with the
// default registerer when registry is nil.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadgraph",
			Name:      "steps_total",
			Help:      "Step function invocations by node and outcome",
		}, []string{"node", "status"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "threadgraph",
			Name:      "step_latency_ms",
			Help:      "Step function duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"node", "status"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadgraph",
			Name:      "runs_total",
			Help:      "Finished runs by outcome",
		}, []string{"outcome"}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "threadgraph",
			Name:      "active_runs",
			Help:      "Runs currently executing",
		}),
		checkpointWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "threadgraph",
			Name:      "checkpoint_writes_total",
			Help:      "Checkpoints successfully written to the store",
		}),
	}
}

func (pm *PrometheusMetrics) on() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordStep records one step invocation.
func (pm *PrometheusMetrics) RecordStep(node string, latency time.Duration, failed bool) {
	if !pm.on() {
		return
	}
	status := statusSuccess
	if failed {
		status = statusError
	}
	pm.steps.WithLabelValues(node, status).Inc()
	pm.stepLatency.WithLabelValues(node, status).Observe(float64(latency.Milliseconds()))
}

// RunStarted increments active_runs and returns the function that ends the
// run. A run counted as started is always decremented by its finish
// function, even if collection is disabled in between; the outcome is
// counted only while collection is enabled.
func (pm *PrometheusMetrics) RunStarted() (finish func(outcome string)) {
	if !pm.on() {
		return func(string) {}
	}
	pm.activeRuns.Inc()
	return func(outcome string) {
		pm.activeRuns.Dec()
		if pm.on() {
			pm.runs.WithLabelValues(outcome).Inc()
		}
	}
}

// CheckpointWritten counts a successful checkpoint save.
func (pm *PrometheusMetrics) CheckpointWritten() {
	if !pm.on() {
		return
	}
	pm.checkpointWrites.Inc()
}

// Disable stops metric collection until Enable is called.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes metric collection.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
