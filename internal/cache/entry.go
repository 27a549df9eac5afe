package cache

import "time"

// entry is a single cached value together with its bookkeeping.
// Entries live inside the LRU list; the index map points at their list elements.
type entry struct {
	key         string
	value       any
	createdAt   time.Time
	ttl         time.Duration
	accessCount uint64
	lastAccess  time.Time
}

// expired reports whether the entry's TTL has elapsed at now.
func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.createdAt.Add(e.ttl))
}
