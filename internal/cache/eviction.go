package cache

import "container/list"

// evictOldest removes the least recently used entry. Entries that were never
// read keep their insertion position, so ties fall to the oldest insert.
func (s *Store) evictOldest() {
	if elem := s.lru.Back(); elem != nil {
		s.evict(elem)
	}
}

// evict removes elem and counts it as an eviction.
func (s *Store) evict(elem *list.Element) {
	s.remove(elem)
	s.counters.evictions++
	s.metrics.evictions.Inc()
}

func (s *Store) remove(elem *list.Element) {
	s.lru.Remove(elem)
	delete(s.index, elem.Value.(*entry).key)
	s.metrics.entries.Set(float64(s.lru.Len()))
}

// purgeExpired removes every expired entry, walking from the LRU end.
// Caller must hold s.mu.
func (s *Store) purgeExpired() int {
	now := s.now()
	n := 0
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).expired(now) {
			s.evict(elem)
			n++
		}
		elem = prev
	}
	return n
}
