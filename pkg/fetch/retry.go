package fetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetch_duration_seconds",
		Help:    "Upstream fetch attempt duration by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	fetchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_outcomes_total",
		Help: "Fetch outcomes by operation and outcome class",
	}, []string{"operation", "outcome"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_retries_total",
		Help: "Total number of retry attempts by operation",
	}, []string{"operation"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetch_retry_backoff_seconds",
		Help:    "Backoff duration before retries by operation",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"operation"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by operation",
	}, []string{"operation"})
)

// Outcome counter values.
const (
	outcomeSuccess     = "success"
	outcomeTransient   = "transient_error"
	outcomeCancelled   = "cancelled"
	outcomeFatal       = "fatal_error"
	outcomePassThrough = "pass_through"
)

// Config holds the retry/backoff configuration.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt, so a
	// call makes at most MaxRetries+1 attempts.
	MaxRetries int

	// BackoffBase is the backoff before the first retry. Subsequent
	// backoffs double, capped at BackoffMax.
	BackoffBase time.Duration

	// BackoffMax is the backoff ceiling.
	BackoffMax time.Duration

	// Timeout is the hard per-attempt deadline. Zero disables it.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BackoffBase: 1 * time.Second,
		BackoffMax:  32 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Retrier executes upstream calls with per-attempt timeouts, error
// classification, and jittered exponential backoff on transient failures.
type Retrier struct {
	cfg    Config
	logger zerolog.Logger

	// sleep and jitter are injectable for deterministic tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewRetrier creates a Retrier with the given configuration.
func NewRetrier(cfg Config) *Retrier {
	return &Retrier{
		cfg:    cfg,
		logger: log.With().Str("component", "fetch").Logger(),
		sleep:  sleepCtx,
		jitter: rand.Float64,
	}
}

// Do runs fn with the retrier's policy and returns its result.
//
// Transient failures are retried up to MaxRetries times with backoff
// min(base<<attempt, max) plus a uniformly random jitter in [0, backoff].
// The jitter exists to avoid synchronized retry storms when many keys fail
// at once. Cancelled, fatal, and pass-through failures are returned after a
// single attempt; pass-through errors are never rewrapped.
func Do[V any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (V, error)) (V, error) {
	var zero V
	var lastErr error

	attempts := r.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := runAttempt(ctx, r, op, fn)
		if err == nil {
			fetchOutcomes.WithLabelValues(op, outcomeSuccess).Inc()
			if attempt > 0 {
				r.logger.Info().
					Str("operation", op).
					Int("attempt", attempt+1).
					Msg("Fetch succeeded after retry")
			}
			return v, nil
		}

		// A cancelled parent context wins over whatever the attempt
		// reported: the caller withdrew.
		if ctx.Err() != nil {
			fetchOutcomes.WithLabelValues(op, outcomeCancelled).Inc()
			r.logger.Warn().Str("operation", op).Msg("Fetch cancelled by caller")
			return zero, Cancelled("request cancelled", ctx.Err())
		}

		class := ClassOf(err)
		if !shouldRetry(class) {
			switch class {
			case ClassPassThrough:
				// A classified domain answer; reaches the caller verbatim.
				fetchOutcomes.WithLabelValues(op, outcomePassThrough).Inc()
				return zero, err
			case ClassCancelled:
				fetchOutcomes.WithLabelValues(op, outcomeCancelled).Inc()
				return zero, err
			default:
				fetchOutcomes.WithLabelValues(op, outcomeFatal).Inc()
				r.logger.Error().
					Err(err).
					Str("operation", op).
					Msg("Fetch failed with non-retryable error")
				return zero, asFatal(err)
			}
		}

		lastErr = err
		if attempt >= attempts-1 {
			continue
		}

		backoff := r.backoffFor(attempt)
		retriesTotal.WithLabelValues(op).Inc()
		retryBackoffSeconds.WithLabelValues(op).Observe(backoff.Seconds())

		r.logger.Debug().
			Str("operation", op).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying fetch after backoff")

		if err := r.sleep(ctx, backoff); err != nil {
			fetchOutcomes.WithLabelValues(op, outcomeCancelled).Inc()
			return zero, Cancelled("cancelled during retry backoff", err)
		}
	}

	// All retries exhausted.
	fetchOutcomes.WithLabelValues(op, outcomeTransient).Inc()
	retryExhaustedTotal.WithLabelValues(op).Inc()
	r.logger.Warn().
		Err(lastErr).
		Str("operation", op).
		Int("attempts", attempts).
		Msg("Fetch retries exhausted")

	return zero, Transient("upstream temporarily unavailable",
		fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempts, lastErr))
}

// runAttempt runs fn once under the per-attempt timeout and records latency.
func runAttempt[V any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (V, error)) (V, error) {
	attemptCtx := ctx
	cancel := func() {}
	if r.cfg.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
	}
	defer cancel()

	start := time.Now()
	v, err := fn(attemptCtx)
	fetchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return v, err
}

// backoffFor computes the jittered backoff before retry number attempt+1.
func (r *Retrier) backoffFor(attempt int) time.Duration {
	backoff := r.cfg.BackoffBase << attempt
	if backoff > r.cfg.BackoffMax || backoff <= 0 {
		backoff = r.cfg.BackoffMax
	}
	return backoff + time.Duration(r.jitter()*float64(backoff))
}

// asFatal wraps an unclassified error as fatal; already-classified errors
// pass unchanged.
func asFatal(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return Fatal("unexpected error fetching data", err)
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
