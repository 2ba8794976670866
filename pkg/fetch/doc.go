// Package fetch wraps upstream calls with timeout enforcement, error
// classification, and jittered exponential backoff.
//
// Failures fall into four classes: transient (retryable), cancelled (the
// caller withdrew), fatal (malformed data or logic errors), and pass-through
// (pre-classified caller-facing errors such as "not found" that propagate
// unchanged). Only transient failures are retried, up to MaxRetries extra
// attempts, after which the call surfaces a "temporarily unavailable"
// transient error wrapping ErrRetryExhausted.
//
//	r := fetch.NewRetrier(fetch.DefaultConfig())
//	quote, err := fetch.Do(ctx, r, "quote", func(ctx context.Context) (*Quote, error) {
//		return client.Quote(ctx, symbol)
//	})
//	switch fetch.ClassOf(err) {
//	case fetch.ClassPassThrough:
//		// e.g. symbol not found; status via fetch.StatusOf(err)
//	case fetch.ClassTransient:
//		// upstream temporarily unavailable
//	}
//
// The retry layer never caches, and a failed call never produces a value:
// its collaborators pattern-match on the error class instead of catching
// broad error types.
package fetch
