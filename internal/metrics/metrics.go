// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Aggregation run outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

var (
	AggregationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecrawl_aggregation_runs_total",
			Help: "Aggregation runs by outcome (success, fallback, failed).",
		},
		[]string{"outcome"},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tunecrawl_aggregation_duration_seconds",
			Help:    "Wall time of a complete aggregation run.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecrawl_source_failures_total",
			Help: "Discovery source invocations that failed and were excluded from the batch.",
		},
		[]string{"source"},
	)

	SourceCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunecrawl_source_candidates_total",
			Help: "Candidates produced per discovery source.",
		},
		[]string{"source"},
	)

	CatalogTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunecrawl_catalog_tracks",
			Help: "Number of records in the catalog after the last mutation.",
		},
	)

	CatalogAggregations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunecrawl_catalog_aggregation_count",
			Help: "Aggregation count stored with the catalog.",
		},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunecrawl_scheduler_running",
			Help: "1 while an aggregation is in flight.",
		},
	)

	SchedulerSkippedTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunecrawl_scheduler_skipped_ticks_total",
			Help: "Interval ticks skipped because an aggregation was already running.",
		},
	)

	SchedulerJoinedTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunecrawl_scheduler_joined_triggers_total",
			Help: "On-demand triggers that joined an in-flight aggregation.",
		},
	)

	FeedBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tunecrawl_feed_breaker_state",
			Help: "Circuit breaker state per feed (0 closed, 1 half-open, 2 open).",
		},
		[]string{"feed"},
	)
)

// ObserveCatalog records catalog size and aggregation count.
func ObserveCatalog(tracks, aggregations int) {
	CatalogTracks.Set(float64(tracks))
	CatalogAggregations.Set(float64(aggregations))
}
