// Package doccache provides a bounded in-memory cache for binary report
// documents fetched from an authenticated remote source.
//
// The cache guarantees:
//
// - At most one physical fetch per key, no matter how many callers ask
//   concurrently (all callers for a pending key share the same outcome)
// - A hard capacity bound, enforced by insertion-order (FIFO) eviction
// - Age-based freshness, checked lazily on every read
// - Exactly-once release of every entry's resource handle on eviction,
//   expiry, replacement, or clear
//
// # Basic Usage
//
//	f, err := fetcher.NewHTTP(fetcher.DefaultConfig("my-app/1.0"))
//	if err != nil {
//		return err
//	}
//
//	cache, err := doccache.New(doccache.Config{
//		BaseURL: "https://api.example.com",
//		Fetcher: f,
//		Handles: handle.NewMemoryFactory(),
//	})
//	if err != nil {
//		return err
//	}
//
//	h, err := cache.GetOrFetch(ctx, "/reports/42/export.pdf")
//	if err != nil {
//		return err
//	}
//	// h.Bytes() / h.URI() stay valid until the entry is evicted.
//
// # Eviction Policy
//
// Eviction is FIFO by insertion time, not LRU by access time: an entry that
// is read constantly but inserted early is evicted before a rarely-read but
// recently inserted one. Reads never reorder entries.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - doccache_hits_total / doccache_misses_total
//   - doccache_evictions_total{reason}
//   - doccache_release_errors_total
//   - doccache_bytes
//   - doccache_inflight_fetches
//   - doccache_dedup_joins_total
package doccache
