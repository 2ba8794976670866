package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by cache instance and resource.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache", "resource"},
	)

	// CacheMisses tracks cache misses by cache instance and resource.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache", "resource"},
	)

	// CacheEvictions tracks capacity-driven evictions.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries evicted to enforce capacity",
		},
		[]string{"cache", "resource"},
	)

	// CacheExpirations tracks entries removed because their TTL passed.
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_expirations_total",
			Help: "Total number of entries removed after TTL expiry",
		},
		[]string{"cache", "resource"},
	)

	// CachePuts tracks successful writes.
	CachePuts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_puts_total",
			Help: "Total number of cache writes",
		},
		[]string{"cache", "resource"},
	)

	// CacheLength tracks the current number of entries per cache instance.
	CacheLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_length",
			Help: "Current number of entries in the cache",
		},
		[]string{"cache", "resource"},
	)
)

// instrumentation bundles the labeled metric children for one cache instance.
type instrumentation struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	evictions   prometheus.Counter
	expirations prometheus.Counter
	puts        prometheus.Counter
	length      prometheus.Gauge
}

func newInstrumentation(cacheName, resource string) instrumentation {
	inst := instrumentation{
		hits:        CacheHits.WithLabelValues(cacheName, resource),
		misses:      CacheMisses.WithLabelValues(cacheName, resource),
		evictions:   CacheEvictions.WithLabelValues(cacheName, resource),
		expirations: CacheExpirations.WithLabelValues(cacheName, resource),
		puts:        CachePuts.WithLabelValues(cacheName, resource),
		length:      CacheLength.WithLabelValues(cacheName, resource),
	}
	inst.length.Set(0)
	return inst
}
