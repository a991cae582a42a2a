// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package metrics exposes Prometheus instrumentation for the scoring
// engine: stage latency, pool health, catalog resilience, and the
// healing queue. Collectors register globally via promauto and are
// served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stage metrics.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dgs_stage_duration_seconds",
			Help:    "Duration of pipeline stage handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "stage1_artists", "stage2_tracks", "stage3_score"
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgs_stage_errors_total",
			Help: "Total stage requests that failed validation or processing",
		},
		[]string{"stage", "code"},
	)

	// Candidate pool metrics.
	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dgs_candidate_pool_size",
			Help:    "Candidate artist pool size per Stage 1 turn",
			Buckets: []float64{25, 50, 75, 100, 125, 150, 200},
		},
	)

	BackfillCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dgs_random_backfill_count",
			Help:    "Random artists pulled per turn to reach the minimum pool",
			Buckets: []float64{0, 10, 25, 50, 75, 100},
		},
	)

	OptionCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dgs_option_count",
			Help:    "Final option tracks produced per Stage 2 turn",
			Buckets: []float64{0, 3, 6, 9},
		},
	)

	HardConvergenceTurns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dgs_hard_convergence_turns_total",
			Help: "Turns where hard convergence injected the target artist",
		},
	)

	// Catalog client metrics.
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgs_catalog_requests_total",
			Help: "Catalog API requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "error", "not_found"
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dgs_catalog_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Profile cache metrics.
	ProfileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dgs_profile_cache_hits_total",
			Help: "Artist profile LRU cache hits",
		},
	)

	ProfileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dgs_profile_cache_misses_total",
			Help: "Artist profile LRU cache misses",
		},
	)

	// Healing queue metrics.
	HealingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dgs_healing_queue_depth",
			Help: "Pending jobs in the lazy enrichment queue",
		},
	)

	HealingJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgs_healing_jobs_total",
			Help: "Healing jobs by outcome",
		},
		[]string{"outcome"}, // "healed", "dropped", "retried"
	)

	// HTTP metrics.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dgs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveStage records one stage's handling duration.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest records one HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// SetBreakerState maps a gobreaker state string onto the gauge.
func SetBreakerState(state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CatalogBreakerState.Set(v)
}
