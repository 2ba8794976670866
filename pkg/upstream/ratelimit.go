package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream cooldown tracking.
var (
	upstreamRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upstream_rate_limit_blocks_total",
		Help: "Total number of requests blocked during an upstream cooldown",
	})

	upstreamCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upstream_cooldowns_total",
		Help: "Total number of cooldown windows started after upstream 429 responses",
	})
)

const (
	// cooldownKey marks an active upstream rate-limit cooldown. The value
	// holds the unix timestamp the window expires at, the Redis TTL does
	// the actual expiry.
	cooldownKey = "quoteproxy:upstream:cooldown"

	// defaultCooldown is used when the upstream does not send Retry-After.
	defaultCooldown = 60 * time.Second
)

// CooldownTracker shares upstream rate-limit state across proxy instances.
// When any instance receives a 429 it records a cooldown window in Redis and
// every instance stops issuing requests until the window expires.
type CooldownTracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewCooldownTracker creates a cooldown tracker backed by the given Redis client.
func NewCooldownTracker(redisClient *redis.Client, logger zerolog.Logger) *CooldownTracker {
	return &CooldownTracker{
		redis:  redisClient,
		logger: logger,
	}
}

// Allow reports whether an upstream request may be issued right now.
// Returns false while a cooldown window is active.
func (t *CooldownTracker) Allow(ctx context.Context) (bool, error) {
	expiresAt, err := t.redis.Get(ctx, cooldownKey).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cooldown state: %w", err)
	}

	remaining := time.Until(time.Unix(expiresAt, 0))
	t.logger.Warn().
		Dur("remaining", remaining).
		Msg("Upstream cooldown active, blocking request")

	upstreamRateLimitBlocksTotal.Inc()
	return false, nil
}

// RecordRateLimited starts a cooldown window after the upstream returned 429.
func (t *CooldownTracker) RecordRateLimited(ctx context.Context, cooldown time.Duration) error {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	expiresAt := time.Now().Add(cooldown)
	if err := t.redis.Set(ctx, cooldownKey, expiresAt.Unix(), cooldown).Err(); err != nil {
		return fmt.Errorf("store cooldown state: %w", err)
	}

	upstreamCooldownsTotal.Inc()
	t.logger.Warn().
		Time("expires_at", expiresAt).
		Dur("cooldown", cooldown).
		Msg("Upstream cooldown started")

	return nil
}

// Clear removes any active cooldown window.
func (t *CooldownTracker) Clear(ctx context.Context) error {
	if err := t.redis.Del(ctx, cooldownKey).Err(); err != nil {
		return fmt.Errorf("clear cooldown state: %w", err)
	}
	return nil
}
