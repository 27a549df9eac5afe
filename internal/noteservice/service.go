// Package noteservice coordinates the vault, the index and the query cache.
// Reads go through the query executor; writes hit storage and the index and
// then invalidate the cached reads they affect.
package noteservice

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/sift/internal/cache"
	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/monitor"
	"github.com/starford/sift/internal/query"
	"github.com/starford/sift/internal/search"
	"github.com/starford/sift/internal/storage"
)

// EventSink receives change notifications. *sse.Broker implements it.
type EventSink interface {
	PublishNoteEvent(kind, path string)
	PublishCacheInvalidated(entities []string, removed int)
}

type discardEvents struct{}

func (discardEvents) PublishNoteEvent(string, string)       {}
func (discardEvents) PublishCacheInvalidated([]string, int) {}

// Defaults applied to requests that leave a field unset.
type Defaults struct {
	SearchLimit     int
	MinSimilarity   float64
	SuggestionLimit int
	RelatedLimit    int
}

// Service coordinates storage, index and cache operations.
type Service struct {
	store    storage.Provider
	idx      index.NoteIndex
	exec     *query.Executor
	engine   *search.Engine
	events   EventSink
	limiter  *rate.Limiter
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time

	// writeMu makes read-check-write sequences (If-Match, append) atomic
	// within the process.
	writeMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEngine sets the search engine.
func WithEngine(e *search.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithEvents sets the change notification sink.
func WithEvents(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.events = sink
		}
	}
}

// WithWriteLimit throttles writes to perSecond with the given burst.
// A non-positive rate disables throttling.
func WithWriteLimit(perSecond float64, burst int) Option {
	return func(s *Service) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithDefaults sets request defaults. Zero fields keep the built-in values.
func WithDefaults(d Defaults) Option {
	return func(s *Service) {
		if d.SearchLimit > 0 {
			s.defaults.SearchLimit = d.SearchLimit
		}
		if d.MinSimilarity > 0 {
			s.defaults.MinSimilarity = d.MinSimilarity
		}
		if d.SuggestionLimit > 0 {
			s.defaults.SuggestionLimit = d.SuggestionLimit
		}
		if d.RelatedLimit > 0 {
			s.defaults.RelatedLimit = d.RelatedLimit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a note service.
func New(store storage.Provider, idx index.NoteIndex, exec *query.Executor, opts ...Option) *Service {
	s := &Service{
		store:   store,
		idx:     idx,
		exec:    exec,
		engine:  search.NewEngine(),
		events:  discardEvents{},
		limiter: rate.NewLimiter(rate.Inf, 0),
		defaults: Defaults{
			SearchLimit:     20,
			MinSimilarity:   search.DefaultMinSimilarity,
			SuggestionLimit: search.DefaultSuggestionLimit,
			RelatedLimit:    10,
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleExternalChange reacts to a watcher-driven index change: cached reads
// are dropped and the change is published.
func (s *Service) HandleExternalChange(kind, path string) {
	s.invalidate()
	s.events.PublishNoteEvent(kind, path)
}

// CacheStats returns the query cache statistics.
func (s *Service) CacheStats() cache.Stats {
	return s.exec.Cache().Stats()
}

// PerformanceReport summarises samples recorded since the given time.
func (s *Service) PerformanceReport(since time.Time) monitor.Report {
	return s.exec.Monitor().Report(since)
}

// ClearCache drops every cached read and returns how many were removed.
func (s *Service) ClearCache() int {
	n := s.exec.Cache().Len()
	s.exec.InvalidateAll()
	s.events.PublishCacheInvalidated(allEntities, n)
	s.logger.Info("cache: cleared", slog.Int("entries", n))
	return n
}

var allEntities = []string{query.EntityNotes, query.EntityTags, query.EntityLinks}

func (s *Service) invalidate() {
	if n := s.exec.Invalidate(allEntities...); n > 0 {
		s.events.PublishCacheInvalidated(allEntities, n)
	}
}
