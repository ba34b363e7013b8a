// Package lrucache implements a bounded least-recently-used cache.
//
// A Cache keeps a hash index and a recency list over the same set of
// entries. Entries live in a single arena owned by the recency list; both
// the index and the list links refer to them by handle, so there is only
// one copy of each entry's state.
//
// Cache is not safe for concurrent use. Callers that share a cache between
// goroutines must serialize every call, see package lrusync.
package lrucache
