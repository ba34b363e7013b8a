package lrucache_test

import (
	"fmt"

	"gitlab.com/slon/memcached/lrucache"
)

func ExampleCache() {
	c, err := lrucache.New[int, string](2)
	if err != nil {
		panic(err)
	}

	c.Put(1, "one")
	c.Put(2, "two")
	c.Get(1)

	if key, _, evicted := c.Put(3, "three"); evicted {
		fmt.Println("evicted", key)
	}
	fmt.Println(c.Keys())

	// Output:
	// evicted 2
	// [3 1]
}
