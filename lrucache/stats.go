package lrucache

// Stats counts cache events since construction.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Updates   uint64
	Evictions uint64
}

// Snapshot is a consistent view of a cache's counters and size.
type Snapshot struct {
	Stats
	Len int
	Cap int
}
