package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quotefeed/quoteproxy/pkg/cache"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// defaultNewsCount is served when the caller does not ask for a count.
const defaultNewsCount = 10

// News serves news articles through the paged cache: per-(symbol, category)
// indexes over a shared article store, with "all" as a read-only merge of
// the concrete categories.
type News struct {
	client   *upstream.Client
	retrier  *fetch.Retrier
	cache    *cache.PagedCache[upstream.NewsItem]
	maxItems int
	logger   zerolog.Logger
}

// NewNews creates the news service.
func NewNews(client *upstream.Client, retrier *fetch.Retrier, size int, ttl time.Duration, maxItems int) *News {
	return &News{
		client:  client,
		retrier: retrier,
		cache: cache.NewPaged(size, ttl, func(n upstream.NewsItem) string { return n.ID },
			cache.WithPagedName("news_cache", "news"),
			cache.WithVirtualCategory(upstream.CategoryAll, upstream.CategoryNews, upstream.CategoryPressReleases),
		),
		maxItems: maxItems,
		logger:   log.With().Str("component", "news").Logger(),
	}
}

// NormalizeTab validates the news tab parameter. Empty defaults to "news".
func NormalizeTab(tab string) (string, error) {
	switch tab {
	case "":
		return upstream.CategoryNews, nil
	case upstream.CategoryNews, upstream.CategoryPressReleases, upstream.CategoryAll:
		return tab, nil
	default:
		return "", fetch.PassThrough(http.StatusBadRequest, fmt.Sprintf("tab must be one of news, press-releases, all; got %q", tab))
	}
}

// Get returns up to count articles for a symbol and tab. A cache hit
// requires the index to satisfy the full count; anything less refetches.
func (s *News) Get(ctx context.Context, symbol, tab string, count int) ([]upstream.NewsItem, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	category, err := NormalizeTab(tab)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = defaultNewsCount
	}
	if count > s.maxItems {
		count = s.maxItems
	}

	key := cache.Key{Symbol: symbol, Category: category}
	if items, ok := s.cache.Get(key, count); ok {
		return items, nil
	}

	items, err := fetch.Do(ctx, s.retrier, "news", func(ctx context.Context) ([]upstream.NewsItem, error) {
		return s.client.News(ctx, symbol, category, count)
	})
	if err != nil {
		return nil, err
	}

	// Ignored for the virtual merged category, which is never written.
	s.cache.Set(key, items)

	if len(items) > count {
		items = items[:count]
	}
	s.logger.Debug().
		Str("symbol", symbol).
		Str("tab", category).
		Int("count", len(items)).
		Msg("News fetched from upstream")
	return items, nil
}

// Invalidate drops the cached index for a symbol and tab.
func (s *News) Invalidate(symbol, tab string) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return
	}
	category, err := NormalizeTab(tab)
	if err != nil {
		return
	}
	s.cache.Delete(cache.Key{Symbol: normalized, Category: category})
}
