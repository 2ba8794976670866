package cache

import (
	"sync"
	"time"
)

// Key identifies one slice of a paginated resource: a symbol plus a
// sub-category (e.g. "AAPL" + "news").
type Key struct {
	Symbol   string
	Category string
}

// PagedCache caches list-shaped resources fetched in varying page sizes.
//
// Storage is split in two: an index mapping a Key to the ordered identifiers
// of its items (most recent first), and a shared item store mapping
// identifiers to the items themselves. Items are immutable once stored and
// may be referenced by several index entries.
//
// A lookup for count n is a hit only if the index resolves at least n items;
// a shorter result is never returned silently. Index identifiers are weak
// references: an item purged from the item store turns the lookup into a
// miss, never a fault.
type PagedCache[V any] struct {
	mu      sync.Mutex
	index   *TTLCache[Key, []string]
	items   *TTLCache[string, V]
	idOf    func(V) string
	virtual map[string][]string

	metrics instrumentation
}

// PagedOption configures a PagedCache.
type PagedOption func(*pagedOptions)

type pagedOptions struct {
	cacheName string
	resource  string
	now       func() time.Time
	virtual   map[string][]string
}

// WithPagedName sets the metric labels for the paged cache itself.
func WithPagedName(cacheName, resource string) PagedOption {
	return func(o *pagedOptions) {
		o.cacheName = cacheName
		o.resource = resource
	}
}

// WithPagedClock overrides the clock of the underlying stores. For tests.
func WithPagedClock(now func() time.Time) PagedOption {
	return func(o *pagedOptions) {
		o.now = now
	}
}

// WithVirtualCategory declares a read-only merged view: a Get for the
// virtual category concatenates the concrete categories' indices in the
// order given. Writes never target a virtual category; Set on one is a no-op
// so concrete indices stay the single source of truth.
func WithVirtualCategory(name string, concrete ...string) PagedOption {
	return func(o *pagedOptions) {
		if o.virtual == nil {
			o.virtual = make(map[string][]string)
		}
		o.virtual[name] = concrete
	}
}

// NewPaged creates a PagedCache. size and ttl bound both the index and the
// item store; idOf extracts the stable identifier of an item.
func NewPaged[V any](size int, ttl time.Duration, idOf func(V) string, opts ...PagedOption) *PagedCache[V] {
	o := pagedOptions{
		cacheName: "paged_cache",
		resource:  "generic",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &PagedCache[V]{
		index: New[Key, []string](size, ttl,
			WithName("ttl_cache", o.resource), WithClock(o.now)),
		items: New[string, V](size*maxItemsPerIndex, ttl,
			WithName("item_store", o.resource), WithClock(o.now)),
		idOf:    idOf,
		virtual: o.virtual,
		metrics: newInstrumentation(o.cacheName, o.resource),
	}
}

// maxItemsPerIndex sizes the item store relative to the index so a full
// index of typical pages fits without churning.
const maxItemsPerIndex = 100

// Get returns the first count items for key, or a miss if fewer than count
// items are resolvable. Holding more than requested is still a hit: the
// prefix is returned.
func (p *PagedCache[V]) Get(key Key, count int) ([]V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.resolveIndex(key)
	if len(ids) < count || count <= 0 {
		p.metrics.misses.Inc()
		return nil, false
	}

	out := make([]V, 0, count)
	for _, id := range ids {
		v, ok := p.items.Get(id)
		if !ok {
			// Referenced item was purged; the index is stale.
			p.metrics.misses.Inc()
			return nil, false
		}
		out = append(out, v)
		if len(out) == count {
			p.metrics.hits.Inc()
			return out, true
		}
	}

	p.metrics.misses.Inc()
	return nil, false
}

// Set replaces the index for key and merges the items into the shared item
// store. Writes to a virtual category are ignored: virtual views are
// computed read-only from their concrete categories.
func (p *PagedCache[V]) Set(key Key, items []V) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, isVirtual := p.virtual[key.Category]; isVirtual {
		return
	}

	ids := make([]string, len(items))
	for i, item := range items {
		id := p.idOf(item)
		ids[i] = id
		p.items.Set(id, item)
	}
	p.index.Set(key, ids)
	p.metrics.puts.Inc()
}

// Delete removes the index entry for key. Orphaned items are left to age out
// of the item store; bounded staleness is acceptable there.
func (p *PagedCache[V]) Delete(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index.Delete(key)
}

// Clear drops the index and the item store.
func (p *PagedCache[V]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index.Clear()
	p.items.Clear()
}

// resolveIndex returns the ordered item identifiers for key, concatenating
// concrete indices when key names a virtual category.
func (p *PagedCache[V]) resolveIndex(key Key) []string {
	cats, isVirtual := p.virtual[key.Category]
	if !isVirtual {
		ids, _ := p.index.Get(key)
		return ids
	}

	var merged []string
	for _, cat := range cats {
		ids, _ := p.index.Get(Key{Symbol: key.Symbol, Category: cat})
		merged = append(merged, ids...)
	}
	return merged
}
