// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	SimulationsRun     prometheus.Counter
	NoEntryTotal       prometheus.Counter
	ExitReasons        *prometheus.CounterVec
	SimulationDuration prometheus.Histogram

	// Batch metrics
	BatchesRun   prometheus.Counter
	PairFailures prometheus.Counter

	// Aggregation/reporting metrics
	AggregatesComputed prometheus.Counter
	ReportsGenerated   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "exit_policy_lab"
	}

	return &Metrics{
		SimulationsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "simulations_run_total",
			Help:      "Total number of (call, policy) simulations executed",
		}),
		NoEntryTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "no_entry_total",
			Help:      "Total number of simulations that resolved to no entry",
		}),
		ExitReasons: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "exit_reasons_total",
			Help:      "Total number of exits by reason code",
		}, []string{"reason"}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of a single simulation",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),

		BatchesRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "batches_run_total",
			Help:      "Total number of batch runs",
		}),
		PairFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "pair_failures_total",
			Help:      "Total number of (call, policy) pairs that failed",
		}),

		AggregatesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "aggregates_computed_total",
			Help:      "Total number of policy aggregates computed",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by store and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Database query errors by store and operation",
		}, []string{"store", "operation"}),
	}
}

// RecordDBQuery records one database query: its duration since start, and a
// failure when err is non-nil. Safe on a nil receiver so stores without
// metrics attached pay nothing.
func (m *Metrics) RecordDBQuery(store, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(store, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}

// Handler returns an HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
