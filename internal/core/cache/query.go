package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// LoadFunc fetches the value for a normalized query
type LoadFunc[V any] func(ctx context.Context, query string) (V, error)

// QueryCache caches lookup results (photo search, nutrition lookup) by
// normalized query text for a short TTL. Aggregates are never cached here.
type QueryCache[V any] struct {
	name  string
	cache *ttlcache.Cache[string, V]
	once  sync.Once
}

// NewQueryCache creates a new QueryCache instance. Zero ttl or capacity use the defaults.
func NewQueryCache[V any](name string, ttl time.Duration, capacity uint64) *QueryCache[V] {
	if ttl <= 0 {
		ttl = constants.QueryCacheTTL
	}
	if capacity == 0 {
		capacity = constants.QueryCacheCapacity
	}

	cache := ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithCapacity[string, V](capacity),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, V]) {
		util.LogDebugf("QueryCache %s: evicted %q (reason=%d)", name, item.Key(), reason)
	})
	go cache.Start()

	return &QueryCache[V]{name: name, cache: cache}
}

// NormalizeQuery lowercases q and collapses whitespace
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Get returns the cached value for query
func (qc *QueryCache[V]) Get(query string) (V, bool) {
	item := qc.cache.Get(NormalizeQuery(query))
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Set stores value for query with the default TTL
func (qc *QueryCache[V]) Set(query string, value V) {
	qc.cache.Set(NormalizeQuery(query), value, ttlcache.DefaultTTL)
}

// GetOrLoad returns the cached value for query or loads and caches it.
// Failed loads are not cached.
func (qc *QueryCache[V]) GetOrLoad(ctx context.Context, query string, load LoadFunc[V]) (V, error) {
	key := NormalizeQuery(query)
	if item := qc.cache.Get(key); item != nil {
		util.LogDebugf("QueryCache %s: hit %q", qc.name, key)
		return item.Value(), nil
	}

	value, err := load(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	qc.cache.Set(key, value, ttlcache.DefaultTTL)
	return value, nil
}

// Len returns the number of cached queries
func (qc *QueryCache[V]) Len() int {
	return qc.cache.Len()
}

// Clear drops every cached query
func (qc *QueryCache[V]) Clear() {
	qc.cache.DeleteAll()
}

// Close stops the expiration loop
func (qc *QueryCache[V]) Close() {
	qc.once.Do(qc.cache.Stop)
}
