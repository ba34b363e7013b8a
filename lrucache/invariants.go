package lrucache

import "fmt"

// validate walks the whole structure and reports the first broken
// invariant. It is O(n).
func (c *Cache[K, V]) validate() error {
	l := &c.list

	if len(c.index) != l.len {
		return fmt.Errorf("index holds %d keys, recency list holds %d entries", len(c.index), l.len)
	}
	if l.len > c.capacity {
		return fmt.Errorf("%d entries exceed capacity %d", l.len, c.capacity)
	}
	if len(l.arena)-len(l.free) != l.len {
		return fmt.Errorf("arena has %d used slots, recency list holds %d entries", len(l.arena)-len(l.free), l.len)
	}

	seen := 0
	prev := nilHandle
	for h := l.head; h != nilHandle; h = l.at(h).next {
		if seen == l.len {
			return fmt.Errorf("recency list is longer than %d, probably cyclic", l.len)
		}
		e := l.at(h)
		if e.prev != prev {
			return fmt.Errorf("entry %v: prev link %d, want %d", e.key, e.prev, prev)
		}
		if ih, ok := c.index[e.key]; !ok || ih != h {
			return fmt.Errorf("entry %v at slot %d is not indexed there", e.key, h)
		}
		prev = h
		seen++
	}

	if seen != l.len {
		return fmt.Errorf("walked %d entries, recency list claims %d", seen, l.len)
	}
	if l.tail != prev {
		return fmt.Errorf("tail is slot %d, last walked slot is %d", l.tail, prev)
	}
	return nil
}
