package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the store limits.
//
// MaxSize == 0 or DefaultTTL == 0 disables caching: Set becomes a no-op.
// CleanupInterval <= 0 disables the background janitor; expired entries are
// then only removed lazily.
type Config struct {
	MaxSize         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRegisterer registers the store's Prometheus collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.reg = reg
	}
}
