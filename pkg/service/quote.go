package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fanout"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// Quotes serves latest market data. Single-symbol reads share one upstream
// call per symbol through the single-flight cache; bulk reads fan out with
// bounded concurrency and per-symbol error isolation.
type Quotes struct {
	client         *upstream.Client
	retrier        *fetch.Retrier
	cache          *cache.TTLCache[string, *upstream.Quote]
	maxConcurrency int
	logger         zerolog.Logger
}

// NewQuotes creates the quote service with a TTL cache of the given bounds.
func NewQuotes(client *upstream.Client, retrier *fetch.Retrier, size int, ttl time.Duration, maxConcurrency int) *Quotes {
	return &Quotes{
		client:         client,
		retrier:        retrier,
		cache:          cache.New[string, *upstream.Quote](size, ttl, cache.WithName("quote_cache", "quote")),
		maxConcurrency: maxConcurrency,
		logger:         log.With().Str("component", "quotes").Logger(),
	}
}

// Get returns the quote for a symbol, cached.
func (s *Quotes) Get(ctx context.Context, symbol string) (*upstream.Quote, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return loadCached(ctx, s.cache, s.retrier, "quote", symbol, func(ctx context.Context) (*upstream.Quote, error) {
		return s.client.Quote(ctx, symbol)
	})
}

// Fresh returns the quote for a symbol, bypassing the cache. The snapshot
// endpoint uses this so prices are never stale there.
func (s *Quotes) Fresh(ctx context.Context, symbol string) (*upstream.Quote, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return fetch.Do(ctx, s.retrier, "quote", func(ctx context.Context) (*upstream.Quote, error) {
		return s.client.Quote(ctx, symbol)
	})
}

// GetBulk fetches quotes for a deduplicated, normalized symbol list. Each
// symbol resolves independently; one symbol's failure never discards the
// others' results.
func (s *Quotes) GetBulk(ctx context.Context, symbols []string) (map[string]fanout.Result[*upstream.Quote], error) {
	s.logger.Debug().Int("symbols", len(symbols)).Msg("Bulk quote fetch")
	return fanout.Map(ctx, symbols, s.maxConcurrency, func(ctx context.Context, symbol string) (*upstream.Quote, error) {
		return s.Get(ctx, symbol)
	})
}

// InvalidateSymbol drops the cached quote for a symbol.
func (s *Quotes) InvalidateSymbol(symbol string) {
	if normalized, err := NormalizeSymbol(symbol); err == nil {
		s.cache.Delete(normalized)
	}
}
