package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_searches_started_total",
			Help: "Total number of keyword searches started",
		},
	)

	SearchesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_searches_dropped_total",
			Help: "Total number of searches dropped because one was already in flight",
		},
	)

	SearchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_searches_failed_total",
			Help: "Total number of searches that surfaced an error",
		},
		[]string{"error_code"},
	)

	GeocodeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_geocode_calls_total",
			Help: "Geocoding provider calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	GeocodeCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_geocode_cache_hits_total",
			Help: "Geocode cache hits by operation",
		},
		[]string{"operation"},
	)

	ListingFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discovery_listing_fetch_duration_seconds",
			Help:    "Duration of persisted listing fetches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
