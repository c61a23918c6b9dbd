// Package metrics provides the centralized Prometheus metrics registry for
// the report client. All metrics are defined in their respective packages
// (doccache, fetcher) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the report client.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/doccache):
//   - doccache_hits_total (Counter): Reads answered from a live entry
//   - doccache_misses_total (Counter): Reads with no live entry
//   - doccache_evictions_total{reason} (Counter): Entries removed, by
//     reason (age, capacity, replace, remove, clear)
//   - doccache_release_errors_total (Counter): Handle release failures
//   - doccache_bytes (Gauge): Payload bytes currently held
//   - doccache_inflight_fetches (Gauge): Fetches currently underway
//   - doccache_dedup_joins_total (Counter): Callers attached to an
//     already-pending fetch
//
// Fetch Metrics (pkg/fetcher):
//   - report_fetch_requests_total{status} (Counter): Fetch attempts by
//     HTTP status
//   - report_fetch_duration_seconds (Histogram): Fetch duration
//   - report_fetch_errors_total{class} (Counter): Errors by class
//     (client, server, rate_limit, network)
//   - report_fetch_retries_total{error_class} (Counter): Retry attempts
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(doccache_hits_total[5m])) /
//   (sum(rate(doccache_hits_total[5m])) + sum(rate(doccache_misses_total[5m])))
//
//   # Dedup Effectiveness
//   rate(doccache_dedup_joins_total[5m])
//
//   # Handle Leak Signal
//   increase(doccache_release_errors_total[1h]) > 0
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(report_fetch_duration_seconds_bucket[5m]))
