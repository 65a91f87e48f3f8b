// Package metrics holds the Prometheus collector for verflow.
// Each Collector owns its registry so tests can build as many as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the engine.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	VersionsCreated   prometheus.Counter
	VersionConflicts  prometheus.Counter
	ConflictsDetected *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	VersionsPruned    prometheus.Counter
	CleanupFailures   prometheus.Counter
	TxDuration        *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		VersionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_created_total",
			Help:      "Total number of content versions created",
		}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_number_conflicts_total",
			Help:      "Version-number collisions observed while creating versions",
		}),
		ConflictsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_detected_total",
			Help:      "Conflicts reported by detection, by dimension",
		}, []string{"dimension"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Workflow transition attempts by result",
		}, []string{"to_state", "result"}),
		VersionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_pruned_total",
			Help:      "Versions deleted by the retention cleaner",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_cleanup_failures_total",
			Help:      "Per-content retention cleanups that failed and were skipped",
		}),
		TxDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_duration_seconds",
			Help:      "Duration of store transactions in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	c.registry.MustRegister(
		c.VersionsCreated,
		c.VersionConflicts,
		c.ConflictsDetected,
		c.Transitions,
		c.VersionsPruned,
		c.CleanupFailures,
		c.TxDuration,
	)
	return c
}

// Handler returns the HTTP handler exposing this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (used by tests).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// IncVersionsCreated records one created version.
func (c *Collector) IncVersionsCreated() {
	if c == nil {
		return
	}
	c.VersionsCreated.Inc()
}

// IncVersionConflict records one version-number collision.
func (c *Collector) IncVersionConflict() {
	if c == nil {
		return
	}
	c.VersionConflicts.Inc()
}

// ObserveConflict records the dimensions of a conflict report.
func (c *Collector) ObserveConflict(timestamp, content bool) {
	if c == nil {
		return
	}
	if timestamp {
		c.ConflictsDetected.WithLabelValues("timestamp").Inc()
	}
	if content {
		c.ConflictsDetected.WithLabelValues("content").Inc()
	}
}

// ObserveTransition records a transition attempt.
func (c *Collector) ObserveTransition(toState, result string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(toState, result).Inc()
}

// AddPruned records deleted versions.
func (c *Collector) AddPruned(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.VersionsPruned.Add(float64(n))
}

// IncCleanupFailure records a skipped per-content cleanup.
func (c *Collector) IncCleanupFailure() {
	if c == nil {
		return
	}
	c.CleanupFailures.Inc()
}

// ObserveTx records how long a store transaction took.
func (c *Collector) ObserveTx(operation string, seconds float64) {
	if c == nil {
		return
	}
	c.TxDuration.WithLabelValues(operation).Observe(seconds)
}
