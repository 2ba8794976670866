// Package upstream implements the client for the third-party financial-data
// source, classifying every failure into the fetch error taxonomy.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quotefeed/quoteproxy/pkg/fetch"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Total upstream requests by operation and status",
	}, []string{"operation", "status"})
)

// Config holds the upstream client configuration.
type Config struct {
	// BaseURL of the upstream API.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Timeout for a single HTTP exchange. The retry layer applies its own
	// per-attempt deadline on top.
	Timeout time.Duration

	// Limiter gates requests during upstream rate-limit cooldowns.
	// Optional; nil disables cooldown tracking.
	Limiter *CooldownTracker
}

// DefaultConfig returns a safe default configuration for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "quoteproxy/1.0",
		Timeout:   30 * time.Second,
	}
}

// Client fetches financial data from the upstream API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger
}

// New creates an upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     log.With().Str("component", "upstream").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Quote fetches the latest market data for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	payload, err := c.infoPayload(ctx, "quote", symbol)
	if err != nil {
		return nil, err
	}
	return mapQuote(symbol, payload), nil
}

// Info fetches company metadata for a symbol.
func (c *Client) Info(ctx context.Context, symbol string) (*Info, error) {
	payload, err := c.infoPayload(ctx, "info", symbol)
	if err != nil {
		return nil, err
	}
	return mapInfo(symbol, payload), nil
}

// infoPayload fetches the raw info document shared by Quote and Info.
func (c *Client) infoPayload(ctx context.Context, op, symbol string) (map[string]any, error) {
	var payload map[string]any
	if err := c.getJSON(ctx, op, "/v1/info/"+url.PathEscape(symbol), nil, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		c.logger.Info().Str("symbol", symbol).Str("operation", op).Msg("Upstream returned no data")
		return nil, fetch.PassThrough(http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
	}
	return payload, nil
}

// News fetches up to count articles for a symbol in the given concrete
// category. Articles without an upstream identifier get a generated one so
// the caching layer can index them.
func (c *Client) News(ctx context.Context, symbol, category string, count int) ([]NewsItem, error) {
	query := url.Values{}
	query.Set("count", strconv.Itoa(count))
	if category != CategoryAll {
		query.Set("category", category)
	}

	var items []NewsItem
	if err := c.getJSON(ctx, "news", "/v1/news/"+url.PathEscape(symbol), query, &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
	}
	return items, nil
}

// History fetches the daily price series for a symbol. The start and end
// bounds are optional ISO dates.
func (c *Client) History(ctx context.Context, symbol, start, end string) (*History, error) {
	query := url.Values{}
	if start != "" {
		query.Set("start", start)
	}
	if end != "" {
		query.Set("end", end)
	}

	var history History
	if err := c.getJSON(ctx, "history", "/v1/history/"+url.PathEscape(symbol), query, &history); err != nil {
		return nil, err
	}
	if len(history.Prices) == 0 {
		return nil, fetch.PassThrough(http.StatusNotFound, fmt.Sprintf("no data for %s", symbol))
	}
	history.Symbol = symbol
	return &history, nil
}

// Earnings fetches the earnings report history for a symbol.
func (c *Client) Earnings(ctx context.Context, symbol string) ([]EarningsRow, error) {
	var rows []EarningsRow
	if err := c.getJSON(ctx, "earnings", "/v1/earnings/"+url.PathEscape(symbol), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Splits fetches the stock split history for a symbol.
func (c *Client) Splits(ctx context.Context, symbol string) ([]Split, error) {
	var splits []Split
	if err := c.getJSON(ctx, "splits", "/v1/splits/"+url.PathEscape(symbol), nil, &splits); err != nil {
		return nil, err
	}
	return splits, nil
}

// Ping checks whether the upstream is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.infoPayload(ctx, "ping", "AAPL")
	if err != nil && fetch.ClassOf(err) != fetch.ClassPassThrough {
		return err
	}
	return nil
}

// getJSON performs a GET against the upstream and decodes the JSON response
// into out, translating every failure mode into a classified error.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	if c.cfg.Limiter != nil {
		allowed, err := c.cfg.Limiter.Allow(ctx)
		if err != nil {
			// State lookup failures must not take the proxy down.
			c.logger.Warn().Err(err).Msg("Cooldown state check failed, allowing request")
		} else if !allowed {
			upstreamRequestsTotal.WithLabelValues(op, "cooldown").Inc()
			return fetch.Transient("upstream rate limit cooldown active", nil)
		}
	}

	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fetch.Fatal("build upstream request", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Warn().Str("operation", op).Msg("Upstream request cancelled")
			upstreamRequestsTotal.WithLabelValues(op, "cancelled").Inc()
			return fetch.Cancelled("request cancelled", err)
		}
		c.logger.Warn().Err(err).Str("operation", op).Msg("Upstream request failed")
		upstreamRequestsTotal.WithLabelValues(op, "network_error").Inc()
		return fetch.Transient("upstream unreachable", err)
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode

	case resp.StatusCode == http.StatusNotFound:
		return fetch.PassThrough(http.StatusNotFound, fmt.Sprintf("upstream has no data at %s", path))

	case resp.StatusCode == http.StatusTooManyRequests:
		cooldown := parseRetryAfter(resp.Header)
		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.RecordRateLimited(ctx, cooldown); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record rate-limit cooldown")
			}
		}
		c.logger.Warn().
			Str("operation", op).
			Dur("cooldown", cooldown).
			Msg("Upstream rate limited")
		return fetch.Transient("upstream rate limited", nil)

	case resp.StatusCode >= 500:
		return fetch.Transient(fmt.Sprintf("upstream returned %s", resp.Status), nil)

	default:
		// Unexpected 4xx: a request we built wrong or an upstream contract
		// change. Retrying cannot help.
		return fetch.Fatal(fmt.Sprintf("unexpected upstream status %s", resp.Status), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetch.Transient("read upstream response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn().
			Err(err).
			Str("operation", op).
			Msg("Malformed upstream payload")
		return fetch.Fatal("malformed data from upstream", err)
	}
	return nil
}

// parseRetryAfter reads a Retry-After header in seconds, falling back to a
// conservative default window.
func parseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCooldown
}
