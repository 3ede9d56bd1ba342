package auth

import (
	"context"
	"time"

	"github.com/cuemby/podcore/pkg/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a size-bounded, TTL-expiring cache fronted by a singleflight
// group so concurrent misses for the same key collapse into one Fetch call
// — used for both the JWKS cache and the WebID-profile cache, since both
// are "look up a remote document, keep it briefly, don't stampede on a
// cold key" jobs.
type TTLCache[V any] struct {
	name  string
	ttl   time.Duration
	lru   *lru.Cache[string, entry[V]]
	group singleflight.Group
}

// NewTTLCache builds a cache holding at most size entries, each valid for
// ttl after being fetched.
func NewTTLCache[V any](name string, size int, ttl time.Duration) (*TTLCache[V], error) {
	c, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{name: name, ttl: ttl, lru: c}, nil
}

// GetOrFetch returns the cached value for key if present and unexpired;
// otherwise it calls fetch (collapsing concurrent callers for the same key
// into a single call) and caches the result.
func (c *TTLCache[V]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok && time.Now().Before(v.expiresAt) {
		metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
		return v.value, nil
	}
	metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()

	result, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, entry[V]{value: v, expiresAt: time.Now().Add(c.ttl)})
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}
