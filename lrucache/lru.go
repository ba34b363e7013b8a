package lrucache

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrInvalidCapacity is returned by New for a capacity below 1.
var ErrInvalidCapacity = errors.New("lrucache: invalid capacity")

// Arena and index are allocated lazily past this many entries.
const maxPrealloc = 1 << 10

// Cache is a fixed capacity LRU cache.
type Cache[K comparable, V any] struct {
	capacity int

	index index[K]
	list  recencyList[K, V]

	clock  clockwork.Clock
	logger *zap.Logger
	stats  Stats
}

// New creates an empty cache holding at most capacity entries.
func New[K comparable, V any](capacity int, opts ...Option) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	hint := min(capacity, maxPrealloc)

	return &Cache[K, V]{
		capacity: capacity,
		index:    newIndex[K](hint),
		list:     newRecencyList[K, V](hint),
		clock:    o.clock,
		logger:   o.logger,
	}, nil
}

// Put stores value under key and makes it the most recently used entry.
//
// When a new key enters a full cache the least recently used entry is
// evicted and returned.
func (c *Cache[K, V]) Put(key K, value V) (evictedKey K, evictedValue V, evicted bool) {
	defer c.checkInvariants()

	now := c.clock.Now()

	if h, ok := c.index.lookup(key); ok {
		e := c.list.at(h)
		e.value = value
		c.list.moveToFront(h)
		e.touch(now)
		c.stats.Updates++
		return
	}

	if len(c.index) == c.capacity {
		evictedKey, evictedValue = c.evict()
		evicted = true
	}

	h := c.list.alloc(key, value, now)
	c.list.pushFront(h)
	c.index.insert(key, h)
	c.stats.Inserts++
	return
}

func (c *Cache[K, V]) evict() (K, V) {
	h := c.list.popBack()
	e := c.list.at(h)
	key, value := e.key, e.value

	c.index.remove(key)
	c.list.release(h)
	c.stats.Evictions++

	c.logger.Debug("evicted least recently used entry",
		zap.Any("key", key),
		zap.Int("capacity", c.capacity))

	return key, value
}

// Get returns the value stored under key and makes it the most recently
// used entry. A miss leaves the cache untouched.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	h, ok := c.index.lookup(key)
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	defer c.checkInvariants()

	c.list.moveToFront(h)
	e := c.list.at(h)
	e.touch(c.clock.Now())
	c.stats.Hits++
	return e.value, true
}

// Peek returns the value stored under key without counting as an access.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	h, ok := c.index.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return c.list.at(h).value, true
}

// LastAccess reports when key was last read or written.
func (c *Cache[K, V]) LastAccess(key K) (time.Time, bool) {
	h, ok := c.index.lookup(key)
	if !ok {
		return time.Time{}, false
	}
	return c.list.at(h).lastAccess, true
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	return len(c.index)
}

// Cap returns the capacity the cache was created with.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Stats returns a snapshot of the event counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats
}

// Snapshot returns counters, size and capacity read together.
func (c *Cache[K, V]) Snapshot() Snapshot {
	return Snapshot{Stats: c.stats, Len: c.Len(), Cap: c.capacity}
}

// Range calls f for every entry from most to least recently used until f
// returns false. f must not modify the cache.
func (c *Cache[K, V]) Range(f func(key K, value V) bool) {
	for h := c.list.head; h != nilHandle; {
		e := c.list.at(h)
		next := e.next
		if !f(e.key, e.value) {
			return
		}
		h = next
	}
}

// Keys returns live keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.Len())
	c.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
