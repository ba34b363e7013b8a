package lrucache

import "time"

// recencyList orders arena entries from MRU (head) to LRU (tail).
//
// The list owns the arena. Slots freed by release are reused by alloc, so
// the arena never grows past the largest number of simultaneously live
// entries.
type recencyList[K comparable, V any] struct {
	arena []entry[K, V]
	free  []handle

	head handle
	tail handle
	len  int
}

func newRecencyList[K comparable, V any](sizeHint int) recencyList[K, V] {
	return recencyList[K, V]{
		arena: make([]entry[K, V], 0, sizeHint),
		head:  nilHandle,
		tail:  nilHandle,
	}
}

func (l *recencyList[K, V]) at(h handle) *entry[K, V] {
	return &l.arena[h]
}

// alloc stores a detached entry and returns its handle.
func (l *recencyList[K, V]) alloc(key K, value V, now time.Time) handle {
	e := entry[K, V]{key: key, value: value, lastAccess: now, prev: nilHandle, next: nilHandle}

	if n := len(l.free); n > 0 {
		h := l.free[n-1]
		l.free = l.free[:n-1]
		l.arena[h] = e
		return h
	}

	l.arena = append(l.arena, e)
	return handle(len(l.arena) - 1)
}

// release returns a detached slot to the free list and drops its contents.
func (l *recencyList[K, V]) release(h handle) {
	l.mustBeDetached(h)
	l.arena[h] = entry[K, V]{prev: nilHandle, next: nilHandle}
	l.free = append(l.free, h)
}

func (l *recencyList[K, V]) pushFront(h handle) {
	l.mustBeDetached(h)

	e := l.at(h)
	e.prev = nilHandle
	e.next = l.head
	if l.head != nilHandle {
		l.at(l.head).prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.len++
}

// remove unlinks h. Both neighbours (or head/tail) are fixed before the
// entry's own links are cleared.
func (l *recencyList[K, V]) remove(h handle) {
	if !l.linked(h) {
		panic("lrucache: remove of an entry that is not in the recency list")
	}

	e := l.at(h)
	if e.prev != nilHandle {
		l.at(e.prev).next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nilHandle {
		l.at(e.next).prev = e.prev
	} else {
		l.tail = e.prev
	}

	e.prev = nilHandle
	e.next = nilHandle
	l.len--
}

// moveToFront is the only path that reorders live entries.
func (l *recencyList[K, V]) moveToFront(h handle) {
	if l.head == h {
		return
	}
	l.remove(h)
	l.pushFront(h)
}

// popBack unlinks the LRU entry and returns its handle. The slot stays
// allocated until release.
func (l *recencyList[K, V]) popBack() handle {
	if l.tail == nilHandle {
		panic("lrucache: popBack on empty recency list")
	}

	h := l.tail
	l.remove(h)
	return h
}

func (l *recencyList[K, V]) linked(h handle) bool {
	e := l.at(h)
	return e.prev != nilHandle || e.next != nilHandle || l.head == h
}

func (l *recencyList[K, V]) mustBeDetached(h handle) {
	if l.linked(h) {
		panic("lrucache: entry is already linked into the recency list")
	}
}
