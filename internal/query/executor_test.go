package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/sift/internal/cache"
	"github.com/starford/sift/internal/monitor"
)

var notesByTag = Shape{
	Name:      "notes.by_tag",
	Kind:      KindRead,
	Entity:    EntityNotes,
	Statement: "SELECT path FROM notes WHERE tags LIKE ?",
}

func testExecutor(t *testing.T) (*Executor, *monitor.Monitor) {
	t.Helper()
	store := cache.New(cache.Config{MaxSize: 100, DefaultTTL: time.Minute})
	t.Cleanup(store.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mon := monitor.New(monitor.Config{}, monitor.WithLogger(logger))
	return NewExecutor(store, mon, 30*time.Second, logger), mon
}

func TestKeyDeterministic(t *testing.T) {
	a := Key(notesByTag, "go", 10)
	b := Key(Shape{Kind: KindRead, Entity: EntityNotes, Statement: "select  path\n FROM notes WHERE tags like ?"}, "go", 10)
	if a != b {
		t.Errorf("equivalent statements produced different keys:\n%s\n%s", a, b)
	}
	if Key(notesByTag, "go", 10) == Key(notesByTag, "go", 11) {
		t.Error("different params must not collide")
	}
	if Key(notesByTag, "10") == Key(notesByTag, 10) {
		t.Error("string and number params must not collide")
	}
	if !strings.HasPrefix(a, "read:notes:") {
		t.Errorf("key prefix = %q", a)
	}
}

func TestReadCachesResult(t *testing.T) {
	ex, mon := testExecutor(t)
	ctx := context.Background()
	var calls int
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a.md", "b.md"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Read(ctx, ex, notesByTag, []any{"go"}, load)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("rows = %d", len(got))
		}
	}
	if calls != 1 {
		t.Errorf("load calls = %d, want 1", calls)
	}

	r := mon.Report(time.Time{})
	if r.Summary.TotalQueries != 3 {
		t.Errorf("samples = %d, want 3", r.Summary.TotalQueries)
	}
	if want := 2.0 / 3.0; r.Summary.CacheHitRate != want {
		t.Errorf("hit rate = %v, want %v", r.Summary.CacheHitRate, want)
	}
}

func TestReadDoesNotCacheErrors(t *testing.T) {
	ex, mon := testExecutor(t)
	ctx := context.Background()
	boom := errors.New("disk on fire")
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []string{"x"}, nil
	}

	if _, err := Read(ctx, ex, notesByTag, nil, load); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	got, err := Read(ctx, ex, notesByTag, nil, load)
	if err != nil || len(got) != 1 {
		t.Fatalf("second read = %v, %v", got, err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if r := mon.Report(time.Time{}); r.Summary.TotalQueries != 2 {
		t.Errorf("samples = %d, want 2", r.Summary.TotalQueries)
	}
}

func TestNonReadShapeBypassesCache(t *testing.T) {
	ex, _ := testExecutor(t)
	shape := Shape{Kind: KindWrite, Entity: EntityNotes, Statement: "UPDATE notes SET title = ?"}
	calls := 0
	for i := 0; i < 2; i++ {
		_, _ = Read(context.Background(), ex, shape, nil, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if ex.Cache().Len() != 0 {
		t.Error("write shapes must not be cached")
	}
}

func TestWritesDoNotLowerHitRate(t *testing.T) {
	ex, mon := testExecutor(t)
	ctx := context.Background()
	load := func(context.Context) ([]string, error) { return []string{"a.md"}, nil }

	// One miss and four hits.
	for i := 0; i < 5; i++ {
		if _, err := Read(ctx, ex, notesByTag, []any{"go"}, load); err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	write := Shape{Kind: KindWrite, Entity: EntityTags, Statement: "UPDATE notes SET tags = ?"}
	for i := 0; i < 3; i++ {
		if _, err := ex.Write(ctx, write, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	r := mon.Report(time.Time{})
	if r.Summary.TotalQueries != 8 || r.Summary.Reads != 5 {
		t.Fatalf("total=%d reads=%d, want 8 and 5", r.Summary.TotalQueries, r.Summary.Reads)
	}
	if r.Summary.CacheHitRate != 0.8 {
		t.Errorf("hit rate = %v, want 0.8", r.Summary.CacheHitRate)
	}
	for _, rec := range r.Recommendations {
		if strings.Contains(rec, "cache hit rate") {
			t.Errorf("unexpected hit rate advice: %s", rec)
		}
	}
}

func TestWriteInvalidatesEntity(t *testing.T) {
	ex, _ := testExecutor(t)
	ctx := context.Background()
	tagsShape := Shape{Kind: KindRead, Entity: EntityTags, Statement: "SELECT tags FROM notes"}

	_, _ = Read(ctx, ex, notesByTag, []any{"go"}, func(context.Context) ([]string, error) { return []string{"a"}, nil })
	_, _ = Read(ctx, ex, tagsShape, nil, func(context.Context) ([]string, error) { return []string{"go"}, nil })

	write := Shape{Kind: KindWrite, Entity: EntityNotes, Statement: "INSERT INTO notes"}
	n, err := ex.Write(ctx, write, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if ex.Cache().Has(Key(notesByTag, "go")) {
		t.Error("notes read should be invalidated")
	}
	if !ex.Cache().Has(Key(tagsShape)) {
		t.Error("tags read should survive a notes-only write")
	}

	_, _ = ex.Write(ctx, write, func(context.Context) error { return nil }, EntityTags)
	if ex.Cache().Has(Key(tagsShape)) {
		t.Error("tags read should be invalidated when listed")
	}
}

func TestFailedWriteKeepsCache(t *testing.T) {
	ex, _ := testExecutor(t)
	ctx := context.Background()
	_, _ = Read(ctx, ex, notesByTag, nil, func(context.Context) ([]string, error) { return []string{"a"}, nil })

	_, err := ex.Write(ctx, Shape{Kind: KindWrite, Entity: EntityNotes}, func(context.Context) error {
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !ex.Cache().Has(Key(notesByTag)) {
		t.Error("failed write must not invalidate")
	}
}

func TestConcurrentMissesCollapse(t *testing.T) {
	ex, _ := testExecutor(t)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"a"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Read(context.Background(), ex, notesByTag, []any{"same"}, load)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("load ran %d times, want 1", n)
	}
}

func TestAbandonedReadStillPopulates(t *testing.T) {
	ex, _ := testExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := Read(ctx, ex, notesByTag, []any{"slow"}, func(context.Context) ([]string, error) {
			<-release
			return []string{"late"}, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done
	close(release)

	key := Key(notesByTag, "slow")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ex.Cache().Has(key) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("abandoned read did not populate the cache")
}

func TestRowCount(t *testing.T) {
	var nilSlice []string
	cases := []struct {
		v    any
		want int
	}{
		{nil, 0},
		{nilSlice, 0},
		{[]int{1, 2, 3}, 3},
		{map[string]int{"a": 1}, 1},
		{"scalar", 1},
	}
	for _, c := range cases {
		if got := rowCount(c.v); got != c.want {
			t.Errorf("rowCount(%#v) = %d, want %d", c.v, got, c.want)
		}
	}
}
