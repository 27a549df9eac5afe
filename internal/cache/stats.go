package cache

import (
	"encoding/json"
	"time"
)

// Stats is a point-in-time view of the store.
type Stats struct {
	Size           int           `json:"size"`
	MaxSize        int           `json:"max_size"`
	Hits           uint64        `json:"hits"`
	Misses         uint64        `json:"misses"`
	Sets           uint64        `json:"sets"`
	Deletes        uint64        `json:"deletes"`
	Evictions      uint64        `json:"evictions"`
	HitRate        float64       `json:"hit_rate"`
	OldestEntryAge time.Duration `json:"oldest_entry_age"`
	NewestEntryAge time.Duration `json:"newest_entry_age"`
	MemoryBytes    int64         `json:"memory_bytes"`
}

// Stats purges expired entries and then reports counters, entry ages and an
// estimate of the memory held by keys and JSON-encoded values. Values that
// cannot be encoded contribute only their key length.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	st := Stats{
		Size:      s.lru.Len(),
		MaxSize:   s.maxSize,
		Hits:      s.counters.hits,
		Misses:    s.counters.misses,
		Sets:      s.counters.sets,
		Deletes:   s.counters.deletes,
		Evictions: s.counters.evictions,
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}

	now := s.now()
	var oldest, newest time.Time
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if oldest.IsZero() || e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
		if newest.IsZero() || e.createdAt.After(newest) {
			newest = e.createdAt
		}
		st.MemoryBytes += int64(len(e.key)) + estimateSize(e.value)
	}
	if !oldest.IsZero() {
		st.OldestEntryAge = now.Sub(oldest)
		st.NewestEntryAge = now.Sub(newest)
	}
	return st
}

func estimateSize(v any) int64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
