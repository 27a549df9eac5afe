package monitor

import (
	"fmt"
	"time"
)

const maxSlowOperations = 10

// Summary aggregates the samples inside a report window.
type Summary struct {
	WindowStart     time.Time     `json:"window_start"`
	TotalQueries    int           `json:"total_queries"`
	Reads           int           `json:"reads"`
	AverageDuration time.Duration `json:"average_duration"`
	// CacheHitRate is hits over reads; writes are left out.
	CacheHitRate    float64       `json:"cache_hit_rate"`
	SlowQueries     int           `json:"slow_queries"`
	HeapUsageRatio  float64       `json:"heap_usage_ratio"`
}

// Report is the output of Monitor.Report. Recommendations are advisory.
type Report struct {
	Summary         Summary  `json:"summary"`
	SlowOperations  []Sample `json:"slow_operations"`
	Recommendations []string `json:"recommendations"`
}

// Report summarises samples recorded at or after since.
func (m *Monitor) Report(since time.Time) Report {
	samples := m.samplesSince(since)

	sum := Summary{
		WindowStart:    since,
		TotalQueries:   len(samples),
		HeapUsageRatio: m.heapRatio(),
	}

	var total time.Duration
	hits := 0
	for _, s := range samples {
		total += s.Duration
		if !s.Write {
			sum.Reads++
			if s.CacheHit {
				hits++
			}
		}
		if s.Duration > m.cfg.SlowThreshold {
			sum.SlowQueries++
		}
	}
	if n := len(samples); n > 0 {
		sum.AverageDuration = total / time.Duration(n)
	}
	if sum.Reads > 0 {
		sum.CacheHitRate = float64(hits) / float64(sum.Reads)
	}

	slow := append([]Sample(nil), samples...)
	sortByDurationDesc(slow)
	if len(slow) > maxSlowOperations {
		slow = slow[:maxSlowOperations]
	}

	return Report{
		Summary:         sum,
		SlowOperations:  slow,
		Recommendations: m.recommend(sum),
	}
}

func (m *Monitor) recommend(sum Summary) []string {
	recs := []string{}
	if sum.TotalQueries > 0 && sum.AverageDuration > m.cfg.AvgDurationAlert {
		recs = append(recs, fmt.Sprintf(
			"average operation time %s exceeds %s: consider adding indexes for the slowest operations",
			sum.AverageDuration, m.cfg.AvgDurationAlert))
	}
	if sum.Reads > 0 && sum.CacheHitRate < m.cfg.MinHitRate {
		recs = append(recs, fmt.Sprintf(
			"cache hit rate %.2f is below %.2f: consider increasing the cache TTL or size",
			sum.CacheHitRate, m.cfg.MinHitRate))
	}
	if sum.HeapUsageRatio > m.cfg.MaxHeapRatio {
		recs = append(recs, fmt.Sprintf(
			"heap usage ratio %.2f exceeds %.2f: consider reducing the cache size",
			sum.HeapUsageRatio, m.cfg.MaxHeapRatio))
	}
	return recs
}
