//go:build lrudebug

package lrucache

func (c *Cache[K, V]) checkInvariants() {
	if err := c.validate(); err != nil {
		panic("lrucache: " + err.Error())
	}
}
