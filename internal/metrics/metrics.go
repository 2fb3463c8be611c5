// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package metrics exposes Prometheus instrumentation for the
// recommendation pipeline: request latency, cache efficiency, scorer
// failures, fallback activity, and the preference-refresh queue.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_recommend_requests_total",
			Help: "Total recommendation requests by algorithm and outcome",
		},
		[]string{"algorithm", "outcome"}, // outcome: ok, cached, fallback, error
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskfeed_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_cache_hits_total",
			Help: "Cache hits by namespace",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_cache_misses_total",
			Help: "Cache misses by namespace",
		},
		[]string{"namespace"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_cache_errors_total",
			Help: "Absorbed cache backend errors by operation",
		},
		[]string{"operation"},
	)

	ScorerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_scorer_failures_total",
			Help: "Scorer errors whose contribution was zeroed",
		},
		[]string{"scorer"},
	)

	FallbackInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_fallback_invocations_total",
			Help: "Fallback ranker invocations by cause",
		},
		[]string{"cause"}, // cause: empty, engine_error, breaker_open
	)

	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_events_recorded_total",
			Help: "Interaction events by kind and disposition",
		},
		[]string{"kind", "disposition"}, // disposition: appended, coalesced, dropped
	)

	RefreshQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskfeed_refresh_queue_depth",
			Help: "Pending preference-refresh jobs",
		},
	)

	RefreshDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskfeed_refresh_dropped_total",
			Help: "Preference-refresh jobs collapsed as duplicates",
		},
	)

	OptimizerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_optimizer_runs_total",
			Help: "Optimizer runs by outcome",
		},
		[]string{"outcome"}, // outcome: updated, skipped, error
	)

	ExclusionSetSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskfeed_exclusion_set_size",
			Help:    "Size of computed per-user exclusion sets",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 10000},
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskfeed_http_requests_total",
			Help: "HTTP requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskfeed_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskfeed_http_active_requests",
			Help: "HTTP requests currently in flight",
		},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRecommend records a completed recommendation request.
func ObserveRecommend(algorithm, outcome string, start time.Time) {
	RecommendRequests.WithLabelValues(algorithm, outcome).Inc()
	RecommendDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
}
