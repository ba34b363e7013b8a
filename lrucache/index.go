package lrucache

// index maps keys to arena handles. It never owns entries.
type index[K comparable] map[K]handle

func newIndex[K comparable](sizeHint int) index[K] {
	return make(index[K], sizeHint)
}

func (ix index[K]) lookup(key K) (handle, bool) {
	h, ok := ix[key]
	return h, ok
}

func (ix index[K]) insert(key K, h handle) {
	if _, ok := ix[key]; ok {
		panic("lrucache: index insert of a present key")
	}
	ix[key] = h
}

func (ix index[K]) remove(key K) {
	if _, ok := ix[key]; !ok {
		panic("lrucache: index remove of an absent key")
	}
	delete(ix, key)
}
