package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

// newMetrics builds the collectors. A nil registerer yields unregistered
// collectors, which keeps multiple stores in one test binary from colliding.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Name: "sift_cache_hits_total",
			Help: "Number of cache lookups served from memory.",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "sift_cache_misses_total",
			Help: "Number of cache lookups that found no live entry.",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "sift_cache_evictions_total",
			Help: "Number of entries removed by TTL expiry or LRU capacity pressure.",
		}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "sift_cache_entries",
			Help: "Current number of entries held by the cache.",
		}),
	}
}
