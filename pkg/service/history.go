package service

import (
	"context"
	"time"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// History serves daily price series over optional date ranges. Each distinct
// (symbol, start, end) combination is cached separately.
type History struct {
	client  *upstream.Client
	retrier *fetch.Retrier
	cache   *cache.TTLCache[string, *upstream.History]
}

// NewHistory creates the history service.
func NewHistory(client *upstream.Client, retrier *fetch.Retrier, size int, ttl time.Duration) *History {
	return &History{
		client:  client,
		retrier: retrier,
		cache:   cache.New[string, *upstream.History](size, ttl, cache.WithName("history_cache", "historical")),
	}
}

// Get returns the price series for a symbol between optional ISO date bounds.
func (s *History) Get(ctx context.Context, symbol, start, end string) (*upstream.History, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := ValidateDate("start", start); err != nil {
		return nil, err
	}
	if err := ValidateDate("end", end); err != nil {
		return nil, err
	}

	key := symbol + "|" + start + "|" + end
	return loadCached(ctx, s.cache, s.retrier, "history", key, func(ctx context.Context) (*upstream.History, error) {
		return s.client.History(ctx, symbol, start, end)
	})
}
