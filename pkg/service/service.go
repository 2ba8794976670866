// Package service composes the caching, retry, and fan-out layers into the
// per-resource operations the HTTP surface exposes. Services are constructed
// explicitly and injected; there are no package-level singletons.
package service

import (
	"context"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
)

// loadCached is the shared read path for resources cached whole: a
// single-flight cache lookup whose loader runs the upstream call through the
// retry layer.
func loadCached[V any](ctx context.Context, c *cache.TTLCache[string, V], r *fetch.Retrier, op, key string, fn func(context.Context) (V, error)) (V, error) {
	return c.GetOrLoad(ctx, key, func(ctx context.Context) (V, error) {
		return fetch.Do(ctx, r, op, fn)
	})
}
