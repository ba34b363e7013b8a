// Package lrusync serializes access to an lrucache.Cache so it can be
// shared between goroutines.
//
// Every call holds one mutex for the whole underlying operation; the index
// and recency list of the wrapped cache are never observed mid-update.
package lrusync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"gitlab.com/slon/memcached/lrucache"
)

// ErrNilLoader is returned by GetOrLoad when no loader is given.
var ErrNilLoader = errors.New("lrusync: nil loader")

// Loader produces the value for a key missing from the cache.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache is an lrucache.Cache safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	cache *lrucache.Cache[K, V]

	loads singleflight.Group
}

// New creates a shared cache holding at most capacity entries.
func New[K comparable, V any](capacity int, opts ...lrucache.Option) (*Cache[K, V], error) {
	c, err := lrucache.New[K, V](capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{cache: c}, nil
}

// Get is lrucache.Cache.Get under the lock.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(key)
}

// Peek reads key without touching it.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Peek(key)
}

// Put is lrucache.Cache.Put under the lock.
func (c *Cache[K, V]) Put(key K, value V) (evictedKey K, evictedValue V, evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Put(key, value)
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Cap returns the fixed capacity; it needs no lock.
func (c *Cache[K, V]) Cap() int {
	return c.cache.Cap()
}

// Keys returns live keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Keys()
}

// Stats returns the event counters.
func (c *Cache[K, V]) Stats() lrucache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Stats()
}

// Snapshot reads counters and size under one lock.
func (c *Cache[K, V]) Snapshot() lrucache.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Snapshot()
}

// loaded is the result of a shared load, tagged with the key it was
// loaded for.
type loaded[K comparable, V any] struct {
	key   K
	value V
}

// GetOrLoad returns the cached value for key, calling load on a miss.
//
// Concurrent misses for the same key share a single load. Different keys
// that format alike under fmt.Sprint may meet in one flight; a caller that
// receives a result for another key retries. A failed load stores nothing.
// The load itself is not cancelled when ctx is done, only the wait for it is.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load Loader[K, V]) (V, error) {
	var zero V
	if load == nil {
		return zero, ErrNilLoader
	}

	loadCtx := context.WithoutCancel(ctx)
	for {
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		ch := c.loads.DoChan(fmt.Sprint(key), func() (interface{}, error) {
			// A previous flight may have stored the key after our miss.
			if v, ok := c.Peek(key); ok {
				return loaded[K, V]{key: key, value: v}, nil
			}

			v, err := load(loadCtx, key)
			if err != nil {
				return loaded[K, V]{key: key}, fmt.Errorf("lrusync: load %v: %w", key, err)
			}

			c.Put(key, v)
			return loaded[K, V]{key: key, value: v}, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			l := res.Val.(loaded[K, V])
			if l.key != key {
				continue
			}
			if res.Err != nil {
				return zero, res.Err
			}
			return l.value, nil
		}
	}
}
