// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - API endpoint latency and throughput
// - Recommendation outcomes per mood and strategy
// - Feature store health (calls, breaker state)
// - Session tracker occupancy
// - Similarity index size and rebuilds

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation requests served",
		},
		[]string{"mood", "strategy"}, // strategy: "mood", "anchor", "degraded"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "End-to-end recommendation selection duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mood"},
	)

	RecommendationSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_result_size",
			Help:    "Number of songs returned per recommendation",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	NoveltyExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_novelty_exhausted_total",
			Help: "Times the unseen pool could not fill a request and seen songs were reused",
		},
	)

	PoolWidenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_pool_widened_total",
			Help: "Times a mood bucket could not fill a request and the pool widened to the full catalog",
		},
		[]string{"mood"},
	)

	// Feature Store Metrics
	StoreCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_call_duration_seconds",
			Help:    "Feature store call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_call_errors_total",
			Help: "Total number of feature store call errors",
		},
		[]string{"operation"},
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_breaker_state",
			Help: "Circuit breaker state for the feature store (0=closed, 1=half-open, 2=open)",
		},
	)

	// Session Tracker Metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_active_total",
			Help: "Current number of tracked sessions",
		},
	)

	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_swept_total",
			Help: "Total number of idle sessions removed by the janitor",
		},
	)

	// Similarity Index Metrics
	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_index_size",
			Help: "Number of songs in the active similarity index",
		},
	)

	IndexVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_index_version",
			Help: "Monotonic version of the active similarity index",
		},
	)

	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "similarity_index_rebuild_duration_seconds",
			Help:    "Duration of similarity index rebuilds in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	IndexRebuildErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similarity_index_rebuild_errors_total",
			Help: "Total number of failed similarity index rebuilds",
		},
	)

	// Mood Scorer Metrics
	ScorerFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mood_scorer_fallback_total",
			Help: "Times the classifier artifact was unusable and the heuristic scorer served instead",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records the outcome of one recommendation request.
func RecordRecommendation(mood, strategy string, size int, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(mood, strategy).Inc()
	RecommendationDuration.WithLabelValues(mood).Observe(duration.Seconds())
	RecommendationSize.Observe(float64(size))
}

// RecordStoreCall records a feature store call metric.
func RecordStoreCall(operation string, duration time.Duration, err error) {
	StoreCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreCallErrors.WithLabelValues(operation).Inc()
	}
}

// RecordIndexRebuild records a similarity index rebuild.
func RecordIndexRebuild(size int, version int64, duration time.Duration, err error) {
	IndexRebuildDuration.Observe(duration.Seconds())
	if err != nil {
		IndexRebuildErrors.Inc()
		return
	}
	IndexSize.Set(float64(size))
	IndexVersion.Set(float64(version))
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
