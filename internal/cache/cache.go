// Package cache implements the in-process query cache: a bounded key/value
// store with least-recently-used eviction, per-entry TTL and hit/miss metrics.
//
// The store is volatile and lives for the lifetime of the process. It is safe
// for concurrent use; every operation runs under a single mutex.
package cache

import (
	"container/list"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store is an LRU + TTL cache.
//
// Recency is tracked with a doubly linked list: the front holds the most
// recently used entry, the back the least recently used one. The index map
// gives O(1) access to list elements by key.
type Store struct {
	mu    sync.Mutex
	index map[string]*list.Element
	lru   *list.List

	maxSize    int
	defaultTTL time.Duration
	interval   time.Duration

	counters counters
	metrics  *metrics
	reg      prometheus.Registerer
	now      func() time.Time

	stopCh    chan struct{}
	closeOnce sync.Once
}

type counters struct {
	hits      uint64
	misses    uint64
	sets      uint64
	deletes   uint64
	evictions uint64
}

// New creates a store and starts its janitor when cfg.CleanupInterval > 0.
// Call Close to stop the janitor.
func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		index:      make(map[string]*list.Element),
		lru:        list.New(),
		maxSize:    max(cfg.MaxSize, 0),
		defaultTTL: max(cfg.DefaultTTL, 0),
		interval:   cfg.CleanupInterval,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.reg)
	s.startJanitor()
	return s
}

// Close stops the background janitor. The store remains usable afterwards.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
}

// Enabled reports whether Set can ever materialise an entry.
func (s *Store) Enabled() bool {
	return s.maxSize > 0 && s.defaultTTL > 0
}

// Get returns the cached value for key. A hit moves the entry to the
// most-recently-used end and bumps its access counter. An expired entry is
// removed and counted as both a miss and an eviction.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		s.miss()
		return nil, false
	}

	e := elem.Value.(*entry)
	now := s.now()
	if e.expired(now) {
		s.evict(elem)
		s.miss()
		return nil, false
	}

	e.accessCount++
	e.lastAccess = now
	s.lru.MoveToFront(elem)
	s.counters.hits++
	s.metrics.hits.Inc()
	return e.value, true
}

// Set stores value under key using the default TTL.
func (s *Store) Set(key string, value any) {
	s.SetWithTTL(key, value, s.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
//
// When the store is sized to zero or ttl <= 0 the call only counts as a set:
// nothing is stored and an existing entry for key is left untouched.
func (s *Store) SetWithTTL(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.sets++

	if s.maxSize == 0 || ttl <= 0 {
		return
	}

	now := s.now()
	if elem, ok := s.index[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.createdAt = now
		e.ttl = ttl
		e.lastAccess = now
		s.lru.MoveToFront(elem)
		return
	}

	elem := s.lru.PushFront(&entry{
		key:        key,
		value:      value,
		createdAt:  now,
		ttl:        ttl,
		lastAccess: now,
	})
	s.index[key] = elem

	for s.lru.Len() > s.maxSize {
		s.evictOldest()
	}
	s.metrics.entries.Set(float64(s.lru.Len()))
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		return false
	}
	s.remove(elem)
	s.counters.deletes++
	return true
}

// Has reports whether key holds a live entry. It does not touch recency,
// but an expired entry found here is purged.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.index[key]
	if !ok {
		return false
	}
	if elem.Value.(*entry).expired(s.now()) {
		s.evict(elem)
		return false
	}
	return true
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Clear drops every entry. Counters are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.deletes += uint64(s.lru.Len())
	s.index = make(map[string]*list.Element)
	s.lru.Init()
	s.metrics.entries.Set(0)
}

// InvalidatePattern deletes every key matching pattern, where '*' matches any
// run of characters and everything else is literal. It returns the number of
// entries removed.
func (s *Store) InvalidatePattern(pattern string) int {
	re := compileGlob(pattern)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, elem := range s.index {
		if re.MatchString(key) {
			s.remove(elem)
			n++
		}
	}
	s.counters.deletes += uint64(n)
	return n
}

// Keys returns the live keys ordered from most to least recently used.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	keys := make([]string, 0, s.lru.Len())
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if !e.expired(now) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

func (s *Store) miss() {
	s.counters.misses++
	s.metrics.misses.Inc()
}

func compileGlob(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	return regexp.MustCompile("^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
}
