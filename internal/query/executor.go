package query

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/sift/internal/cache"
	"github.com/starford/sift/internal/monitor"
)

// Executor is the cache-through gateway to the backing store.
type Executor struct {
	cache  *cache.Store
	mon    *monitor.Monitor
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
}

// NewExecutor creates an executor that caches successful reads for ttl.
// A non-positive ttl defers to the store's default TTL.
func NewExecutor(store *cache.Store, mon *monitor.Monitor, ttl time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cache:  store,
		mon:    mon,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Cache exposes the underlying store for stats and manual invalidation.
func (e *Executor) Cache() *cache.Store { return e.cache }

// Monitor exposes the performance monitor.
func (e *Executor) Monitor() *monitor.Monitor { return e.mon }

// Read runs load through the cache.
//
// On a hit the cached value is returned. On a miss load runs once per key
// even under concurrent callers; its result is cached unless it failed.
// The load is detached from ctx: a caller that gives up early gets ctx.Err()
// while the load still completes and populates the cache for later callers.
// Cached values are shared and must be treated as read-only.
//
// Shapes that are not KindRead bypass the cache entirely.
func Read[T any](ctx context.Context, e *Executor, shape Shape, params []any, load func(context.Context) (T, error)) (T, error) {
	start := e.now()
	var zero T

	if shape.Kind != KindRead {
		v, err := load(ctx)
		e.record(shape, start, v, false)
		return v, err
	}

	key := Key(shape, params...)
	if cached, ok := e.cache.Get(key); ok {
		if v, ok := cached.(T); ok {
			e.record(shape, start, v, true)
			return v, nil
		}
	}

	ch := e.group.DoChan(key, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if e.ttl > 0 {
			e.cache.SetWithTTL(key, v, e.ttl)
		} else {
			e.cache.Set(key, v)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			e.record(shape, start, nil, false)
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			e.record(shape, start, nil, false)
			return zero, fmt.Errorf("query: %s: unexpected result type %T", shape.Operation(), res.Val)
		}
		e.record(shape, start, v, false)
		return v, nil
	case <-ctx.Done():
		e.record(shape, start, nil, false)
		return zero, ctx.Err()
	}
}

// Write runs a mutation and, when it succeeds, invalidates every cached read
// of shape.Entity and of the extra entities. It returns the number of cache
// entries removed.
func (e *Executor) Write(ctx context.Context, shape Shape, fn func(context.Context) error, entities ...string) (int, error) {
	start := e.now()
	err := fn(ctx)
	e.record(shape, start, nil, false)
	if err != nil {
		return 0, err
	}
	return e.Invalidate(append([]string{shape.Entity}, entities...)...), nil
}

// Invalidate drops cached reads for each entity and returns how many
// entries were removed.
func (e *Executor) Invalidate(entities ...string) int {
	n := 0
	for _, entity := range entities {
		if entity == "" {
			continue
		}
		n += e.cache.InvalidatePattern(Pattern(entity))
	}
	if n > 0 {
		e.logger.Debug("cache: invalidated", slog.Any("entities", entities), slog.Int("entries", n))
	}
	return n
}

// InvalidateAll clears the cache.
func (e *Executor) InvalidateAll() {
	e.cache.Clear()
}

func (e *Executor) record(shape Shape, start time.Time, v any, hit bool) {
	if e.mon == nil {
		return
	}
	e.mon.Record(monitor.Sample{
		Operation: shape.Operation(),
		Duration:  e.now().Sub(start),
		Timestamp: start,
		Rows:      rowCount(v),
		CacheHit:  hit,
		Write:     shape.Kind != KindRead,
	})
}

// rowCount reports the cardinality of a result: the length of slices and
// maps, 0 for nil and 1 for any other value.
func rowCount(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
	}
	return 1
}
