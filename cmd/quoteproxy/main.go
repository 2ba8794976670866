package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/quotefeed/quoteproxy/config"
	"github.com/quotefeed/quoteproxy/internal/httpapi"
	"github.com/quotefeed/quoteproxy/pkg/fetch"
	"github.com/quotefeed/quoteproxy/pkg/logging"
	"github.com/quotefeed/quoteproxy/pkg/service"
	"github.com/quotefeed/quoteproxy/pkg/upstream"
)

func main() {
	cfg := config.Load()

	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	// Optional Redis-backed cooldown tracker. Without Redis the proxy still
	// runs, it just cannot share 429 cooldowns across instances.
	var tracker *upstream.CooldownTracker
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		cancel()
		defer redisClient.Close()

		tracker = upstream.NewCooldownTracker(redisClient, log.With().Str("component", "cooldown").Logger())
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	client, err := upstream.New(upstream.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
		Limiter:   tracker,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	retrier := fetch.NewRetrier(fetch.Config{
		MaxRetries:  cfg.Retry.MaxRetries,
		BackoffBase: cfg.Retry.BackoffBase,
		BackoffMax:  cfg.Retry.BackoffMax,
		Timeout:     cfg.Retry.Timeout,
	})

	quotes := service.NewQuotes(client, retrier, cfg.Cache.QuoteSize, cfg.Cache.QuoteTTL, cfg.Upstream.MaxBulkConcurrency)
	news := service.NewNews(client, retrier, cfg.Cache.NewsSize, cfg.Cache.NewsTTL, cfg.Upstream.NewsMaxItems)
	info := service.NewInfo(client, retrier, cfg.Cache.InfoSize, cfg.Cache.InfoTTL)
	history := service.NewHistory(client, retrier, cfg.Cache.HistorySize, cfg.Cache.HistoryTTL)
	earnings := service.NewEarnings(client, retrier, cfg.Cache.EarningsSize, cfg.Cache.EarningsTTL)
	splits := service.NewSplits(client, retrier, cfg.Cache.SplitsSize, cfg.Cache.SplitsTTL)
	snapshot := service.NewSnapshot(info, quotes)

	handler := httpapi.NewHandler(quotes, news, info, history, earnings, splits, snapshot, client)

	apiKey := ""
	if cfg.Server.APIKeyEnabled {
		apiKey = cfg.Server.APIKey
		if apiKey == "" {
			log.Fatal().Msg("API_KEY_ENABLED is set but API_KEY is empty")
		}
	}

	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		CORSEnabled:        cfg.Server.CORSEnabled,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		APIKey:             apiKey,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting quote proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
