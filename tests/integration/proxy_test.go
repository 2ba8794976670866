package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quotefeed/quoteproxy/internal/testutil"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/service"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container (Docker unavailable?): %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newClientWithTracker(t *testing.T, mock *testutil.MockUpstream, tracker *upstream.CooldownTracker) *upstream.Client {
	t.Helper()
	cfg := upstream.DefaultConfig(mock.URL())
	cfg.Limiter = tracker
	client, err := upstream.New(cfg)
	if err != nil {
		t.Fatalf("upstream.New() error = %v", err)
	}
	return client
}

// TestCooldownTracker_SharedAcrossClients verifies that one client's 429
// puts every client sharing the Redis state into cooldown.
func TestCooldownTracker_SharedAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.Nop()
	tracker := upstream.NewCooldownTracker(redisClient, logger)

	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("AAPL", testutil.NewRateLimitResponse(30))

	first := newClientWithTracker(t, mock, tracker)
	second := newClientWithTracker(t, mock, tracker)

	ctx := context.Background()

	// The 429 starts a cooldown window.
	if _, err := first.Quote(ctx, "AAPL"); fetch.ClassOf(err) != fetch.ClassTransient {
		t.Fatalf("ClassOf = %q, want transient", fetch.ClassOf(err))
	}

	allowed, err := tracker.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("expected cooldown to be active")
	}

	// A second client sharing the tracker never reaches the upstream.
	before := mock.GetRequestCount()
	if _, err := second.Quote(ctx, "AAPL"); fetch.ClassOf(err) != fetch.ClassTransient {
		t.Fatalf("ClassOf = %q, want transient during cooldown", fetch.ClassOf(err))
	}
	if mock.GetRequestCount() != before {
		t.Error("request during cooldown must be short-circuited")
	}
}

// TestCooldownTracker_WindowExpires verifies requests resume after the
// cooldown's Redis TTL elapses.
func TestCooldownTracker_WindowExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := upstream.NewCooldownTracker(redisClient, zerolog.Nop())
	ctx := context.Background()

	if err := tracker.RecordRateLimited(ctx, time.Second); err != nil {
		t.Fatalf("RecordRateLimited() error = %v", err)
	}
	if allowed, _ := tracker.Allow(ctx); allowed {
		t.Fatal("expected cooldown immediately after 429")
	}

	time.Sleep(1500 * time.Millisecond)

	allowed, err := tracker.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() after expiry error = %v", err)
	}
	if !allowed {
		t.Error("cooldown should have expired")
	}
}

// TestCooldownTracker_Clear verifies manual cooldown removal.
func TestCooldownTracker_Clear(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := upstream.NewCooldownTracker(redisClient, zerolog.Nop())
	ctx := context.Background()

	if err := tracker.RecordRateLimited(ctx, time.Minute); err != nil {
		t.Fatalf("RecordRateLimited() error = %v", err)
	}
	if err := tracker.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if allowed, _ := tracker.Allow(ctx); !allowed {
		t.Error("cooldown should be gone after Clear")
	}
}

// TestFullRequestFlow exercises cooldown, retry, and caching together:
// a rate-limited upstream blocks requests, then after recovery the quote is
// fetched once and served from cache.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := upstream.NewCooldownTracker(redisClient, zerolog.Nop())

	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetInfoResponse("AAPL", testutil.NewRateLimitResponse(1))

	client := newClientWithTracker(t, mock, tracker)
	retrier := fetch.NewRetrier(fetch.Config{
		MaxRetries:  1,
		BackoffBase: 10 * time.Millisecond,
		BackoffMax:  20 * time.Millisecond,
		Timeout:     5 * time.Second,
	})
	quotes := service.NewQuotes(client, retrier, 16, time.Minute, 4)

	ctx := context.Background()

	// Rate limited: the request fails and starts a cooldown.
	if _, err := quotes.Get(ctx, "AAPL"); fetch.ClassOf(err) != fetch.ClassTransient {
		t.Fatalf("ClassOf = %q, want transient", fetch.ClassOf(err))
	}

	// Upstream recovers and the cooldown expires.
	mock.SetInfoResponse("AAPL", testutil.NewQuoteResponse(189.5, 187.2))
	time.Sleep(1500 * time.Millisecond)
	mock.Reset()

	quote, err := quotes.Get(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Get() after recovery error = %v", err)
	}
	if quote.CurrentPrice == nil || *quote.CurrentPrice != 189.5 {
		t.Errorf("CurrentPrice = %v, want 189.5", quote.CurrentPrice)
	}

	// Second read is a cache hit.
	if _, err := quotes.Get(ctx, "AAPL"); err != nil {
		t.Fatalf("cached Get() error = %v", err)
	}
	if n := mock.GetPathCount("/v1/info/AAPL"); n != 1 {
		t.Errorf("upstream calls after recovery = %d, want 1", n)
	}
}
