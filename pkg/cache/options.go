package cache

import "time"

// options holds optional settings shared by the cache constructors.
type options struct {
	cacheName string
	resource  string
	now       func() time.Time
}

// Option configures a cache instance.
type Option func(*options)

// WithName sets the cache and resource labels used on Prometheus metrics.
// Defaults are "ttl_cache" and "generic".
func WithName(cacheName, resource string) Option {
	return func(o *options) {
		o.cacheName = cacheName
		o.resource = resource
	}
}

// WithClock overrides the clock used for expiry decisions. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(defaultName, defaultResource string, opts []Option) options {
	o := options{
		cacheName: defaultName,
		resource:  defaultResource,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
