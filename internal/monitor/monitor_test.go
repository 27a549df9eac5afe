package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testMonitor(t *testing.T, cfg Config, heap float64) *Monitor {
	t.Helper()
	return New(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return base }),
		WithHeapRatio(func() float64 { return heap }),
	)
}

func sample(op string, d time.Duration, at time.Duration, hit bool) Sample {
	return Sample{Operation: op, Duration: d, Timestamp: base.Add(at), Rows: 1, CacheHit: hit}
}

func TestRingDropsOldest(t *testing.T) {
	m := testMonitor(t, Config{HistorySize: 3}, 0)
	for i := 0; i < 5; i++ {
		m.Record(sample(fmt.Sprintf("op%d", i), time.Millisecond, time.Duration(i)*time.Second, true))
	}

	got := m.samplesSince(time.Time{})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"op2", "op3", "op4"} {
		if got[i].Operation != want {
			t.Errorf("sample[%d] = %q, want %q", i, got[i].Operation, want)
		}
	}
}

func TestRecordDropsMalformed(t *testing.T) {
	m := testMonitor(t, Config{}, 0)
	m.Record(Sample{Duration: time.Millisecond})
	m.Record(Sample{Operation: "x", Duration: -time.Millisecond})
	m.Record(Sample{Operation: "ok", Duration: time.Millisecond})

	recorded, dropped := m.Totals()
	if recorded != 1 || dropped != 2 {
		t.Errorf("recorded=%d dropped=%d, want 1 and 2", recorded, dropped)
	}
	if s := m.samplesSince(time.Time{}); s[0].Timestamp != base {
		t.Errorf("missing timestamp should default to clock, got %v", s[0].Timestamp)
	}
}

func TestReportSummaryAndWindow(t *testing.T) {
	m := testMonitor(t, Config{SlowThreshold: 50 * time.Millisecond}, 0.1)
	m.Record(sample("old", 900*time.Millisecond, -time.Hour, false))
	m.Record(sample("a", 10*time.Millisecond, time.Second, true))
	m.Record(sample("b", 30*time.Millisecond, 2*time.Second, true))
	m.Record(sample("c", 80*time.Millisecond, 3*time.Second, false))

	r := m.Report(base)
	if r.Summary.TotalQueries != 3 {
		t.Fatalf("total = %d, want 3", r.Summary.TotalQueries)
	}
	if r.Summary.AverageDuration != 40*time.Millisecond {
		t.Errorf("average = %v, want 40ms", r.Summary.AverageDuration)
	}
	if r.Summary.SlowQueries != 1 {
		t.Errorf("slow = %d, want 1", r.Summary.SlowQueries)
	}
	if r.SlowOperations[0].Operation != "c" {
		t.Errorf("slowest = %q, want c", r.SlowOperations[0].Operation)
	}
	if want := 2.0 / 3.0; r.Summary.CacheHitRate != want {
		t.Errorf("hit rate = %v, want %v", r.Summary.CacheHitRate, want)
	}
}

func TestReportTopTenSlowest(t *testing.T) {
	m := testMonitor(t, Config{}, 0)
	for i := 1; i <= 15; i++ {
		m.Record(sample(fmt.Sprintf("op%d", i), time.Duration(i)*time.Millisecond, 0, true))
	}
	r := m.Report(time.Time{})
	if len(r.SlowOperations) != 10 {
		t.Fatalf("slow ops = %d, want 10", len(r.SlowOperations))
	}
	if r.SlowOperations[0].Operation != "op15" || r.SlowOperations[9].Operation != "op6" {
		t.Errorf("unexpected ordering: first=%s last=%s", r.SlowOperations[0].Operation, r.SlowOperations[9].Operation)
	}
}

func TestRecommendations(t *testing.T) {
	m := testMonitor(t, Config{}, 0.95)
	m.Record(sample("slow", 700*time.Millisecond, 0, false))
	m.Record(sample("slow", 600*time.Millisecond, 0, false))

	r := m.Report(time.Time{})
	joined := strings.Join(r.Recommendations, "\n")
	for _, want := range []string{"indexes", "TTL", "reducing the cache size"} {
		if !strings.Contains(joined, want) {
			t.Errorf("recommendations missing %q: %v", want, r.Recommendations)
		}
	}
}

func TestNoRecommendationsWhenHealthy(t *testing.T) {
	m := testMonitor(t, Config{}, 0.2)
	for i := 0; i < 10; i++ {
		m.Record(sample("fast", time.Millisecond, 0, true))
	}
	if r := m.Report(time.Time{}); len(r.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", r.Recommendations)
	}
}

func TestHitRateIgnoresWrites(t *testing.T) {
	m := testMonitor(t, Config{}, 0)
	m.Record(sample("read:notes:list", time.Millisecond, 0, false))
	for i := 0; i < 4; i++ {
		m.Record(sample("read:notes:list", time.Millisecond, 0, true))
	}
	for i := 0; i < 3; i++ {
		w := sample("write:notes:update", time.Millisecond, 0, false)
		w.Write = true
		m.Record(w)
	}

	r := m.Report(time.Time{})
	if r.Summary.TotalQueries != 8 || r.Summary.Reads != 5 {
		t.Fatalf("total=%d reads=%d, want 8 and 5", r.Summary.TotalQueries, r.Summary.Reads)
	}
	if r.Summary.CacheHitRate != 0.8 {
		t.Errorf("hit rate = %v, want 0.8", r.Summary.CacheHitRate)
	}
	if len(r.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", r.Recommendations)
	}
}

func TestWriteOnlyWindowHasNoHitRateAdvice(t *testing.T) {
	m := testMonitor(t, Config{}, 0)
	w := sample("write:notes:create", time.Millisecond, 0, false)
	w.Write = true
	m.Record(w)

	r := m.Report(time.Time{})
	if r.Summary.CacheHitRate != 0 || len(r.Recommendations) != 0 {
		t.Errorf("report = %+v", r)
	}
}

func TestNegativeMinHitRateDisablesAdvice(t *testing.T) {
	m := testMonitor(t, Config{MinHitRate: -1}, 0)
	m.Record(sample("read:notes:list", time.Millisecond, 0, false))
	if r := m.Report(time.Time{}); len(r.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", r.Recommendations)
	}
	if d := testMonitor(t, Config{}, 0); d.cfg.MinHitRate != 0.7 {
		t.Errorf("zero MinHitRate = %v, want default 0.7", d.cfg.MinHitRate)
	}
}

func TestEmptyWindowHasNoHitRateAdvice(t *testing.T) {
	m := testMonitor(t, Config{}, 0)
	r := m.Report(base)
	if r.Summary.TotalQueries != 0 || len(r.Recommendations) != 0 {
		t.Errorf("empty report = %+v", r)
	}
}

func TestHistogramRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(Config{}, WithRegisterer(reg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	m.Record(Sample{Operation: "read:notes", Duration: time.Millisecond})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "sift_query_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("histogram not registered")
	}
}
