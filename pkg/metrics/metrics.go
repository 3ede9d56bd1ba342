// Package metrics exposes Prometheus collectors for the storage service,
// the repository engine, the object store, and the auth/access-control
// pipelines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP-facing request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_requests_total",
			Help: "Total number of storage service requests by method and status",
		},
		[]string{"method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podcore_request_duration_seconds",
			Help:    "Storage service request duration in seconds by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Repo operator metrics
	RepoOperatorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podcore_repo_operator_duration_seconds",
			Help:    "Repo operator latency in seconds by operator kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operator"},
	)

	RepoOperatorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_repo_operator_errors_total",
			Help: "Total number of repo operator failures by operator kind and problem type",
		},
		[]string{"operator", "problem"},
	)

	// Object store metrics
	ObjectStoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_objectstore_ops_total",
			Help: "Total number of object store backend operations by backend and op",
		},
		[]string{"backend", "op"},
	)

	RemnantsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "podcore_remnants_purged_total",
			Help: "Total number of partially-written objects purged by the remnants sweeper",
		},
	)

	// Cache metrics (JWKS cache, WebID profile cache)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_cache_hits_total",
			Help: "Total number of cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_cache_misses_total",
			Help: "Total number of cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Auth pipeline metrics
	AuthOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_auth_outcomes_total",
			Help: "Total number of credential resolution outcomes by outcome",
		},
		[]string{"outcome"},
	)

	// Access-control metrics
	AccessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podcore_access_decisions_total",
			Help: "Total number of PEP decisions by engine (wac/acp) and verdict (allow/deny)",
		},
		[]string{"engine", "verdict"},
	)

	// Per-resource lock metrics
	LockWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podcore_lock_wait_duration_seconds",
			Help:    "Time spent waiting to acquire a per-resource lock",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RepoOperatorDuration,
		RepoOperatorErrors,
		ObjectStoreOpsTotal,
		RemnantsPurgedTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		AuthOutcomesTotal,
		AccessDecisionsTotal,
		LockWaitDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
