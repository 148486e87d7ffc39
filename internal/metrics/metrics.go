// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvtime_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tvtime_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Metadata service (TMDB) Metrics
	MetadataRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvtime_metadata_requests_total",
			Help: "Total number of metadata service requests by outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, failed, aborted
	)

	MetadataRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tvtime_metadata_request_duration_seconds",
			Help:    "Metadata service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Trend store Metrics
	TrendStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvtime_trend_store_errors_total",
			Help: "Trend store operations that failed and were swallowed",
		},
		[]string{"operation"},
	)

	// Local persistence Metrics
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvtime_persistence_failures_total",
			Help: "Local storage loads or writes that failed and were swallowed",
		},
		[]string{"store", "kind"}, // kind: corrupt, write
	)

	// Browse session Metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvtime_active_sessions",
			Help: "Current number of browse sessions",
		},
	)

	SupersededResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tvtime_superseded_responses_total",
			Help: "Fetch responses discarded because a newer request superseded them",
		},
	)
)

// RecordAPIRequest records one served HTTP request
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMetadataRequest records one metadata service call
func RecordMetadataRequest(endpoint, outcome string, duration time.Duration) {
	MetadataRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	MetadataRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
