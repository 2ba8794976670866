package cache

import (
	"context"
)

// GetOrLoad returns the cached value for key, or invokes loader to produce
// it. Under concurrent callers for the same cold key the loader runs exactly
// once; the winner stores the result and every waiter re-reads it from the
// cache after the per-key lock is released (double-checked pattern).
//
// The loader runs detached from the caller's context: if the initiating
// caller goes away while the load is in flight, the load continues to
// completion and its result is cached for other interested callers. Only the
// abandoned caller gets its context error back.
//
// A loader failure propagates to the caller that triggered the load. Nothing
// is cached on failure and the lock is released, so the next caller retries.
func (c *TTLCache[K, V]) GetOrLoad(ctx context.Context, key K, loader func(context.Context) (V, error)) (V, error) {
	var zero V

	if v, ok := c.Get(key); ok {
		return v, nil
	}

	l := c.acquireLock(key)

	// Another waiter may have populated the entry while we were blocked.
	if v, ok := c.Get(key); ok {
		c.releaseLock(key, l)
		return v, nil
	}

	type outcome struct {
		value V
		err   error
	}
	done := make(chan outcome, 1)

	// The goroutine owns the lock from here on, so an abandoned wait cannot
	// release it while the load is still in flight. The lock is released
	// before done is signaled: a caller returning from GetOrLoad must never
	// observe its own key still locked.
	go func() {
		v, err := loader(context.WithoutCancel(ctx))
		if err == nil {
			c.Set(key, v)
		}
		c.releaseLock(key, l)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		// Abandon the wait; the load keeps running for other callers.
		return zero, ctx.Err()
	}
}
