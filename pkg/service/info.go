package service

import (
	"context"
	"time"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// Info serves company metadata. Metadata moves slowly, so it gets a longer
// TTL than quotes.
type Info struct {
	client  *upstream.Client
	retrier *fetch.Retrier
	cache   *cache.TTLCache[string, *upstream.Info]
}

// NewInfo creates the info service.
func NewInfo(client *upstream.Client, retrier *fetch.Retrier, size int, ttl time.Duration) *Info {
	return &Info{
		client:  client,
		retrier: retrier,
		cache:   cache.New[string, *upstream.Info](size, ttl, cache.WithName("info_cache", "info")),
	}
}

// Get returns company metadata for a symbol, cached.
func (s *Info) Get(ctx context.Context, symbol string) (*upstream.Info, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return loadCached(ctx, s.cache, s.retrier, "info", symbol, func(ctx context.Context) (*upstream.Info, error) {
		return s.client.Info(ctx, symbol)
	})
}
