package service

import (
	"context"
	"time"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// Splits serves stock split history.
type Splits struct {
	client  *upstream.Client
	retrier *fetch.Retrier
	cache   *cache.TTLCache[string, []upstream.Split]
}

// NewSplits creates the splits service.
func NewSplits(client *upstream.Client, retrier *fetch.Retrier, size int, ttl time.Duration) *Splits {
	return &Splits{
		client:  client,
		retrier: retrier,
		cache:   cache.New[string, []upstream.Split](size, ttl, cache.WithName("splits_cache", "splits")),
	}
}

// Get returns the split history for a symbol, cached.
func (s *Splits) Get(ctx context.Context, symbol string) ([]upstream.Split, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return loadCached(ctx, s.cache, s.retrier, "splits", symbol, func(ctx context.Context) ([]upstream.Split, error) {
		return s.client.Splits(ctx, symbol)
	})
}
