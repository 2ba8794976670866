// Package config provides configuration management for the quote proxy.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Retry    RetryConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string
	CORSEnabled        bool
	CORSAllowedOrigins []string
	APIKeyEnabled      bool
	APIKey             string
}

// UpstreamConfig holds the upstream API configuration.
type UpstreamConfig struct {
	BaseURL            string
	UserAgent          string
	Timeout            time.Duration
	MaxBulkConcurrency int
	NewsMaxItems       int
}

// RetryConfig holds retry behavior for upstream fetches.
type RetryConfig struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Timeout     time.Duration
}

// CacheConfig holds the per-resource cache bounds.
type CacheConfig struct {
	QuoteTTL     time.Duration
	QuoteSize    int
	InfoTTL      time.Duration
	InfoSize     int
	NewsTTL      time.Duration
	NewsSize     int
	EarningsTTL  time.Duration
	EarningsSize int
	SplitsTTL    time.Duration
	SplitsSize   int
	HistoryTTL   time.Duration
	HistorySize  int
}

// RedisConfig holds the cooldown tracker's Redis connection.
type RedisConfig struct {
	Enabled bool
	Addr    string
	DB      int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load creates a Config from environment variables.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			CORSEnabled:        getEnvBool("CORS_ENABLED", false),
			CORSAllowedOrigins: parseList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			APIKeyEnabled:      getEnvBool("API_KEY_ENABLED", false),
			APIKey:             getEnv("API_KEY", ""),
		},
		Upstream: UpstreamConfig{
			BaseURL:            getEnv("UPSTREAM_BASE_URL", "https://query1.finance.example.com"),
			UserAgent:          getEnv("UPSTREAM_USER_AGENT", "quoteproxy/1.0"),
			Timeout:            getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			MaxBulkConcurrency: getEnvInt("MAX_BULK_CONCURRENCY", 10),
			NewsMaxItems:       getEnvInt("NEWS_MAX_ITEMS", 100),
		},
		Retry: RetryConfig{
			MaxRetries:  getEnvInt("MAX_RETRIES", 3),
			BackoffBase: getEnvDuration("RETRY_BACKOFF_BASE", time.Second),
			BackoffMax:  getEnvDuration("RETRY_BACKOFF_MAX", 32*time.Second),
			Timeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			QuoteTTL:     getEnvDuration("QUOTE_CACHE_TTL", 60*time.Second),
			QuoteSize:    getEnvInt("QUOTE_CACHE_MAXSIZE", 512),
			InfoTTL:      getEnvDuration("INFO_CACHE_TTL", 5*time.Minute),
			InfoSize:     getEnvInt("INFO_CACHE_MAXSIZE", 256),
			NewsTTL:      getEnvDuration("NEWS_CACHE_TTL", 5*time.Minute),
			NewsSize:     getEnvInt("NEWS_CACHE_MAXSIZE", 256),
			EarningsTTL:  getEnvDuration("EARNINGS_CACHE_TTL", time.Hour),
			EarningsSize: getEnvInt("EARNINGS_CACHE_MAXSIZE", 128),
			SplitsTTL:    getEnvDuration("SPLITS_CACHE_TTL", time.Hour),
			SplitsSize:   getEnvInt("SPLITS_CACHE_MAXSIZE", 256),
			HistoryTTL:   getEnvDuration("HISTORY_CACHE_TTL", time.Hour),
			HistorySize:  getEnvInt("HISTORY_CACHE_MAXSIZE", 256),
		},
		Redis: RedisConfig{
			Enabled: getEnvBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			DB:      getEnvInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare integers are treated as seconds.
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// parseList splits a comma-separated env value, dropping blanks.
func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
