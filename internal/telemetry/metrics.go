// -------------------------------------------------------------------------------
// Metrics - Prometheus Instrumentation
//
// Project: KCloud / Author: Alex Freidah
//
// Prometheus metric definitions for the songs API. Tracks request counts,
// latencies, sizes, storage operation health, and the record store circuit
// breaker. All metrics are prefixed with 'songsapi_' for easy identification in
// dashboards and alerting rules.
// -------------------------------------------------------------------------------

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -------------------------------------------------------------------------
// METRIC DEFINITIONS
// -------------------------------------------------------------------------

var (
	// --- Request metrics ---

	// RequestsTotal counts all HTTP requests by method, route and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status_code"},
	)

	// RequestDuration tracks request latency distribution by method and route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songsapi_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// RequestSize tracks upload sizes.
	RequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songsapi_request_size_bytes",
			Help:    "HTTP request body size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to 256GB
		},
		[]string{"method"},
	)

	// InflightRequests tracks currently processing requests.
	InflightRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "songsapi_inflight_requests",
			Help: "Number of requests currently being processed",
		},
		[]string{"method"},
	)

	// --- Object store metrics ---

	// BucketRequestsTotal counts object store operations by type and status.
	BucketRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_bucket_requests_total",
			Help: "Total number of object store operations",
		},
		[]string{"operation", "status"},
	)

	// BucketDuration tracks object store operation latency.
	BucketDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songsapi_bucket_duration_seconds",
			Help:    "Object store operation latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// --- Record store metrics ---

	// StoreRequestsTotal counts record store operations by type and status.
	StoreRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_store_requests_total",
			Help: "Total number of record store operations",
		},
		[]string{"operation", "status"},
	)

	// StoreDuration tracks record store operation latency.
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songsapi_store_duration_seconds",
			Help:    "Record store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// --- Manager metrics ---

	// ManagerRequestsTotal counts song lifecycle operations by type and status.
	ManagerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_manager_requests_total",
			Help: "Total number of song lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	// ManagerDuration tracks lifecycle operation latency.
	ManagerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songsapi_manager_duration_seconds",
			Help:    "Song lifecycle operation latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// CleanupWarningsTotal counts non-fatal blob cleanup failures that were
	// downgraded to warnings instead of failing the request.
	CleanupWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_cleanup_warnings_total",
			Help: "Blob cleanup failures downgraded to warnings",
		},
		[]string{"operation", "kind"},
	)

	// OrphanedBlobsTotal counts blobs known to be orphaned by partial create
	// failures. No automatic reconciliation exists for these.
	OrphanedBlobsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songsapi_orphaned_blobs_total",
			Help: "Object store blobs orphaned by partial create failures",
		},
	)

	// --- Cache metrics ---

	// URLCacheTotal counts signed-URL cache lookups by result.
	URLCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_url_cache_total",
			Help: "Signed-URL cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	// --- Circuit breaker metrics ---

	// CircuitBreakerState exposes the record store breaker state
	// (0=closed, 1=open, 2=half-open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "songsapi_circuit_breaker_state",
			Help: "Record store circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	// CircuitBreakerTransitionsTotal counts breaker state transitions.
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songsapi_circuit_breaker_transitions_total",
			Help: "Record store circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	// --- Info metric ---

	// BuildInfo exposes version information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "songsapi_build_info",
			Help: "Build information for the songs API",
		},
		[]string{"version", "go_version"},
	)
)
