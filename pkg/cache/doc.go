// Package cache provides the in-process caching layer of the proxy: a
// generic TTL cache with FIFO eviction, single-flight loading, and a paged
// cache specialized for list-shaped resources such as news.
//
// # TTLCache
//
//	quotes := cache.New[string, Quote](512, 60*time.Second,
//		cache.WithName("ttl_cache", "quote"))
//
//	quotes.Set("AAPL", q)
//	q, ok := quotes.Get("AAPL")
//
// Entries expire after the configured TTL and the oldest-inserted entry is
// evicted when the capacity is reached. Expiry checks use a monotonic-safe
// clock injected at construction, so tests can drive time explicitly.
//
// # Single-flight loading
//
//	q, err := quotes.GetOrLoad(ctx, "AAPL", func(ctx context.Context) (Quote, error) {
//		return client.Quote(ctx, "AAPL")
//	})
//
// Under N concurrent callers for a cold key the loader runs once; this is
// what prevents a cache stampede against the upstream. Loader failures are
// never cached.
//
// # PagedCache
//
//	news := cache.NewPaged[NewsItem](128, 5*time.Minute, func(n NewsItem) string { return n.ID },
//		cache.WithVirtualCategory("all", "news", "press-releases"))
//
// A Get for count n is a hit only when at least n items resolve; the "all"
// category is a read-only merge of its concrete categories.
//
// # Metrics
//
// Every cache instance exports labeled Prometheus counters (hits, misses,
// evictions, expirations, puts) and a length gauge; see pkg/metrics for the
// full inventory.
package cache
