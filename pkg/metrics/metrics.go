// Package metrics documents the Prometheus metrics exported by the proxy.
// Metrics are declared with promauto in the package that owns them (cache,
// fetch, fanout, upstream, httpapi) to keep ownership local and avoid
// circular dependencies; this package holds the registry reference and the
// inventory.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registerer used by all proxy metrics.
var Registry = prometheus.DefaultRegisterer

// Metric inventory
//
// Cache (pkg/cache), all labeled {cache, resource}:
//   - cache_hits_total (Counter)
//   - cache_misses_total (Counter)
//   - cache_evictions_total (Counter): capacity-driven FIFO evictions
//   - cache_expirations_total (Counter): TTL-driven removals
//   - cache_puts_total (Counter)
//   - cache_length (Gauge): current entry count
//
// Fetch (pkg/fetch):
//   - fetch_duration_seconds{operation} (Histogram): per-attempt latency
//   - fetch_outcomes_total{operation, outcome} (Counter): outcome in
//     success | transient_error | cancelled | fatal_error | pass_through
//   - fetch_retries_total{operation} (Counter)
//   - fetch_retry_backoff_seconds{operation} (Histogram)
//   - fetch_retry_exhausted_total{operation} (Counter)
//
// Fan-out (pkg/fanout):
//   - fanout_batches_total (Counter)
//   - fanout_batch_keys (Histogram): keys per batch
//   - fanout_key_failures_total (Counter)
//
// Upstream (pkg/upstream):
//   - upstream_requests_total{operation, status} (Counter)
//   - upstream_rate_limit_blocks_total (Counter): requests short-circuited
//     while the cooldown window is active
//   - upstream_cooldowns_total (Counter): 429 responses that opened a
//     cooldown window
//
// HTTP (internal/httpapi):
//   - http_requests_total{route, method, status_class} (Counter)
//   - http_request_duration_seconds{route, method} (Histogram)
//   - http_inprogress_total (Gauge)
//
// Example queries:
//
//   # Cache hit rate per resource
//   sum by (resource) (rate(cache_hits_total[5m])) /
//   (sum by (resource) (rate(cache_hits_total[5m]))
//    + sum by (resource) (rate(cache_misses_total[5m])))
//
//   # P95 upstream fetch latency
//   histogram_quantile(0.95, rate(fetch_duration_seconds_bucket[5m]))
//
//   # Retry pressure
//   rate(fetch_retries_total[5m])
