package cache

import (
	"sync"
	"time"
)

// entry is a cached value with its expiry deadline.
// Owned exclusively by the cache that stores it.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// keyLock is a per-key mutual-exclusion handle used by GetOrLoad.
// refs counts pending operations so the lock table can be pruned as soon
// as the last holder releases a lock for a key that no longer has an entry.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// TTLCache is an in-memory cache with TTL expiry and FIFO eviction.
//
// When the configured capacity is reached, the oldest-inserted entry is
// evicted regardless of access recency. This is a deliberate predictability
// trade-off, not an LRU policy: overwriting an existing key refreshes its
// TTL but keeps its original position in the eviction order.
//
// A TTL of zero writes entries that are already expired, effectively
// disabling caching for the instance. A capacity of zero retains nothing.
type TTLCache[K comparable, V any] struct {
	size int
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[K]entry[V]
	order   []K // insertion order, oldest first
	locks   map[K]*keyLock

	metrics instrumentation
}

// New creates a TTLCache with the given capacity and TTL.
func New[K comparable, V any](size int, ttl time.Duration, opts ...Option) *TTLCache[K, V] {
	o := applyOptions("ttl_cache", "generic", opts)
	return &TTLCache[K, V]{
		size:    size,
		ttl:     ttl,
		now:     o.now,
		entries: make(map[K]entry[V]),
		locks:   make(map[K]*keyLock),
		metrics: newInstrumentation(o.cacheName, o.resource),
	}
}

// Get returns the value for key if present and unexpired.
// An expired entry is removed on the spot and reported as a miss.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.misses.Inc()
		return zero, false
	}
	if e.expiresAt.After(c.now()) {
		c.metrics.hits.Inc()
		return e.value, true
	}

	// Expired: remove entry, order slot and idle lock in one step.
	c.removeLocked(key)
	c.metrics.expirations.Inc()
	c.metrics.misses.Inc()
	return zero, false
}

// Set inserts or overwrites the value for key with a fresh expiry.
// If the cache is at capacity and key is new, the oldest-inserted entry is
// evicted first, so the key being written is never the eviction victim.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size <= 0 {
		return
	}

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.size {
			oldest := c.order[0]
			c.removeLocked(oldest)
			c.metrics.evictions.Inc()
		}
		c.order = append(c.order, key)
	}

	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.metrics.length.Set(float64(len(c.entries)))
	c.metrics.puts.Inc()
}

// Delete removes the entry for key, if any.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return
	}
	c.removeLocked(key)
}

// Clear removes all entries and prunes every idle lock.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]entry[V])
	c.order = c.order[:0]
	for key, l := range c.locks {
		if l.refs == 0 {
			delete(c.locks, key)
		}
	}
	c.metrics.length.Set(0)
}

// Len returns the current number of entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// removeLocked deletes the entry, its FIFO slot and, when no operation is
// pending on it, its lock. Callers must hold c.mu.
func (c *TTLCache[K, V]) removeLocked(key K) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if l, ok := c.locks[key]; ok && l.refs == 0 {
		delete(c.locks, key)
	}
	c.metrics.length.Set(float64(len(c.entries)))
}

// acquireLock blocks until the caller holds the per-key lock.
// The lock is created lazily on first use.
func (c *TTLCache[K, V]) acquireLock(key K) *keyLock {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return l
}

// releaseLock releases the per-key lock and prunes it from the table when it
// was the last pending operation and no cache entry keeps the key alive.
func (c *TTLCache[K, V]) releaseLock(key K, l *keyLock) {
	l.mu.Unlock()

	c.mu.Lock()
	l.refs--
	if l.refs == 0 {
		if _, ok := c.entries[key]; !ok {
			delete(c.locks, key)
		}
	}
	c.mu.Unlock()
}

// lockTableLen reports the number of live per-key locks. Test hook for the
// boundedness guarantee.
func (c *TTLCache[K, V]) lockTableLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
