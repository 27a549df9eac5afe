// Package monitor records execution-time samples for executor operations and
// derives slow-operation lists and tuning recommendations from them.
package monitor

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// Sample is one observation of an executor operation. Write marks
// operations that never consult the cache; they count towards durations
// but not towards the cache hit rate.
type Sample struct {
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Rows      int           `json:"rows"`
	CacheHit  bool          `json:"cache_hit"`
	Write     bool          `json:"write,omitempty"`
}

// Config holds history size and recommendation thresholds. Zero fields take
// the DefaultConfig value.
type Config struct {
	HistorySize      int
	SlowThreshold    time.Duration
	AvgDurationAlert time.Duration
	// MinHitRate below which the cache advice is given. A negative value
	// turns the advice off.
	MinHitRate   float64
	MaxHeapRatio float64
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		HistorySize:      1000,
		SlowThreshold:    100 * time.Millisecond,
		AvgDurationAlert: 500 * time.Millisecond,
		MinHitRate:       0.7,
		MaxHeapRatio:     0.8,
	}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger used for slow-operation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithRegisterer registers the duration histogram on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Monitor) { m.reg = reg }
}

// WithClock replaces time.Now for report windows.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithHeapRatio replaces the runtime heap usage reading.
func WithHeapRatio(fn func() float64) Option {
	return func(m *Monitor) { m.heapRatio = fn }
}

// Monitor keeps a bounded ring of samples. Once the ring is full the oldest
// sample is overwritten.
type Monitor struct {
	cfg Config

	mu   sync.Mutex
	ring []Sample
	next int
	full bool

	recorded atomic.Int64
	dropped  atomic.Int64

	logger    *slog.Logger
	reg       prometheus.Registerer
	durations *prometheus.HistogramVec
	now       func() time.Time
	heapRatio func() float64
}

// New creates a Monitor. Zero-valued fields of cfg fall back to DefaultConfig;
// a negative MinHitRate is kept as is.
func New(cfg Config, opts ...Option) *Monitor {
	def := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = def.SlowThreshold
	}
	if cfg.AvgDurationAlert <= 0 {
		cfg.AvgDurationAlert = def.AvgDurationAlert
	}
	if cfg.MinHitRate == 0 {
		cfg.MinHitRate = def.MinHitRate
	}
	if cfg.MaxHeapRatio <= 0 {
		cfg.MaxHeapRatio = def.MaxHeapRatio
	}

	m := &Monitor{
		cfg:       cfg,
		ring:      make([]Sample, cfg.HistorySize),
		logger:    slog.Default(),
		now:       time.Now,
		heapRatio: runtimeHeapRatio,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sift_query_duration_seconds",
		Help:    "Duration of operations served by the query executor. Writes carry cache=\"none\".",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"operation", "cache"})
	if m.reg != nil {
		if err := m.reg.Register(m.durations); err != nil {
			m.logger.Warn("monitor: register histogram failed", slog.String("error", err.Error()))
		}
	}
	return m
}

// Record appends s to the history. Samples without an operation or with a
// negative duration are dropped.
func (m *Monitor) Record(s Sample) {
	if s.Operation == "" || s.Duration < 0 {
		m.dropped.Inc()
		return
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = m.now()
	}

	m.mu.Lock()
	m.ring[m.next] = s
	m.next = (m.next + 1) % len(m.ring)
	if m.next == 0 {
		m.full = true
	}
	m.mu.Unlock()

	m.recorded.Inc()

	cacheLabel := "miss"
	switch {
	case s.Write:
		cacheLabel = "none"
	case s.CacheHit:
		cacheLabel = "hit"
	}
	m.durations.WithLabelValues(s.Operation, cacheLabel).Observe(s.Duration.Seconds())

	if s.Duration > m.cfg.SlowThreshold {
		m.logger.Warn("monitor: slow operation",
			slog.String("operation", s.Operation),
			slog.Duration("duration", s.Duration),
			slog.Int("rows", s.Rows),
			slog.Bool("cache_hit", s.CacheHit),
			slog.Bool("write", s.Write))
	}
}

// Totals returns the lifetime recorded and dropped sample counts.
func (m *Monitor) Totals() (recorded, dropped int64) {
	return m.recorded.Load(), m.dropped.Load()
}

// samplesSince copies the samples at or after since, oldest first.
func (m *Monitor) samplesSince(since time.Time) []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ordered []Sample
	if m.full {
		ordered = append(ordered, m.ring[m.next:]...)
	}
	ordered = append(ordered, m.ring[:m.next]...)

	out := ordered[:0:0]
	for _, s := range ordered {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out
}

func runtimeHeapRatio() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.HeapSys == 0 {
		return 0
	}
	return float64(ms.HeapAlloc) / float64(ms.HeapSys)
}

func sortByDurationDesc(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Duration > samples[j].Duration
	})
}
