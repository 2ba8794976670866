// Package fanout dispatches one fetch per requested key under a fixed
// concurrency bound, isolating per-key failures so one failing key never
// fails the batch.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/quotefeed/quoteproxy/pkg/fetch"
)

// Prometheus metrics for fan-out batches.
var (
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_batches_total",
		Help: "Total number of fan-out batches dispatched",
	})

	batchKeys = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanout_batch_keys",
		Help:    "Number of keys per fan-out batch",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})

	keyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanout_key_failures_total",
		Help: "Total number of per-key failures inside fan-out batches",
	})
)

// ErrNoKeys is returned when a batch is requested with no usable keys.
// An empty batch is a caller error, not an empty successful result.
var ErrNoKeys = errors.New("no keys requested")

// Result is the outcome for a single key: a value or a classified error.
type Result[V any] struct {
	Value V
	Err   error
}

// Map runs fn for every non-blank key with at most limit invocations in
// flight at once. The caller is expected to have deduplicated and
// case-normalized the keys.
//
// Every key gets exactly one entry in the returned map, success or error;
// completion order is unspecified. The batch itself only fails on invalid
// input, never because an individual key failed.
func Map[V any](ctx context.Context, keys []string, limit int, fn func(ctx context.Context, key string) (V, error)) (map[string]Result[V], error) {
	usable := keys[:0:0]
	for _, key := range keys {
		if strings.TrimSpace(key) != "" {
			usable = append(usable, key)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoKeys
	}
	if limit <= 0 {
		limit = 1
	}

	batchesTotal.Inc()
	batchKeys.Observe(float64(len(usable)))

	sem := semaphore.NewWeighted(int64(limit))
	results := make(map[string]Result[V], len(usable))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, key := range usable {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			res := runKey(ctx, sem, key, fn)
			if res.Err != nil {
				keyFailuresTotal.Inc()
				log.Debug().
					Str("key", key).
					Err(res.Err).
					Msg("Fan-out key failed")
			}

			mu.Lock()
			results[key] = res
			mu.Unlock()
		}(key)
	}
	wg.Wait()

	return results, nil
}

// runKey executes fn for one key under the admission gate, converting any
// panic into a per-key fatal error so it cannot escape the batch.
func runKey[V any](ctx context.Context, sem *semaphore.Weighted, key string, fn func(ctx context.Context, key string) (V, error)) (res Result[V]) {
	defer func() {
		if r := recover(); r != nil {
			res.Err = fetch.Fatal("panic during fetch", fmt.Errorf("key %s: %v", key, r))
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		res.Err = fetch.Cancelled("cancelled waiting for fan-out slot", err)
		return res
	}
	defer sem.Release(1)

	res.Value, res.Err = fn(ctx, key)
	return res
}
