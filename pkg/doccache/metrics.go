package doccache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks reads answered from a live entry.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doccache_hits_total",
			Help: "Total number of document cache hits",
		},
	)

	// cacheMisses tracks reads with no live entry (absent or expired).
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doccache_misses_total",
			Help: "Total number of document cache misses",
		},
	)

	// cacheEvictions tracks entry removals by reason.
	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doccache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"reason"}, // "age", "capacity", "replace", "remove", "clear"
	)

	// releaseErrors tracks handles that failed to release on removal.
	releaseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doccache_release_errors_total",
			Help: "Total number of handle release failures",
		},
	)

	// cacheBytes tracks the payload bytes currently held.
	cacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doccache_bytes",
			Help: "Current size of cached document payloads in bytes",
		},
	)

	// inflightFetches tracks fetches currently underway.
	inflightFetches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doccache_inflight_fetches",
			Help: "Number of document fetches currently in flight",
		},
	)

	// dedupJoins tracks callers attached to an already-pending fetch.
	dedupJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doccache_dedup_joins_total",
			Help: "Total number of callers deduplicated onto an in-flight fetch",
		},
	)
)
