package service

import (
	"context"
	"time"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// Earnings serves earnings report history.
type Earnings struct {
	client  *upstream.Client
	retrier *fetch.Retrier
	cache   *cache.TTLCache[string, []upstream.EarningsRow]
}

// NewEarnings creates the earnings service.
func NewEarnings(client *upstream.Client, retrier *fetch.Retrier, size int, ttl time.Duration) *Earnings {
	return &Earnings{
		client:  client,
		retrier: retrier,
		cache:   cache.New[string, []upstream.EarningsRow](size, ttl, cache.WithName("earnings_cache", "earnings")),
	}
}

// Get returns the earnings history for a symbol, cached.
func (s *Earnings) Get(ctx context.Context, symbol string) ([]upstream.EarningsRow, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return loadCached(ctx, s.cache, s.retrier, "earnings", symbol, func(ctx context.Context) ([]upstream.EarningsRow, error) {
		return s.client.Earnings(ctx, symbol)
	})
}
