package lrucache

import "time"

// handle addresses an entry slot in the arena.
type handle int

const nilHandle handle = -1

type entry[K comparable, V any] struct {
	key   K
	value V

	// lastAccess is diagnostic only, eviction never looks at it.
	lastAccess time.Time

	prev handle // towards MRU
	next handle // towards LRU
}

func (e *entry[K, V]) touch(now time.Time) {
	e.lastAccess = now
}
