package search

import (
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/sift/internal/models"
)

// Relevance weights.
// TODO: tune against a labelled query set from a real vault.
const (
	TitleMatchWeight   = 10.0
	ContentMatchWeight = 2.0
	TitlePhraseBonus   = 20.0
	ContentPhraseBonus = 5.0
	TagMatchWeight     = 15.0
)

// SearchOptions controls a single Search call.
type SearchOptions struct {
	FuzzyMatch      bool `json:"fuzzy_match"`
	CaseSensitive   bool `json:"case_sensitive"`
	IncludeSnippets bool `json:"include_snippets"`
	// Limit truncates the ranked list; zero keeps every candidate.
	Limit int `json:"limit"`
}

// SearchResult is a note with its relevance score and match details.
type SearchResult struct {
	models.NoteRecord
	Score             float64  `json:"score"`
	MatchedTerms      []string `json:"matched_terms"`
	Snippets          []string `json:"snippets,omitempty"`
	TitleMatchCount   int      `json:"title_match_count"`
	ContentMatchCount int      `json:"content_match_count"`
}

// Engine holds the pluggable parts of ranking and similarity scoring.
type Engine struct {
	fuzzy       FuzzyStrategy
	maxKeywords int
	keywords    *lru.Cache[string, []string]
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFuzzyStrategy replaces the one-deletion fuzzy strategy.
func WithFuzzyStrategy(f FuzzyStrategy) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.fuzzy = f
		}
	}
}

// WithMaxKeywords sets how many keywords are extracted per text.
func WithMaxKeywords(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxKeywords = n
		}
	}
}

// WithKeywordCacheSize sets the capacity of the per-note keyword memo.
func WithKeywordCacheSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.keywords, _ = lru.New[string, []string](n)
		}
	}
}

// NewEngine creates a search engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		fuzzy:       defaultFuzzy,
		maxKeywords: DefaultMaxKeywords,
	}
	e.keywords, _ = lru.New[string, []string](512)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Terms returns the terms Search would match for query under opts,
// including fuzzy variants.
func (e *Engine) Terms(query string, opts SearchOptions) []string {
	return e.terms(query, opts).All
}

func (e *Engine) terms(query string, opts SearchOptions) queryTerms {
	var fuzzy FuzzyStrategy
	if opts.FuzzyMatch {
		fuzzy = e.fuzzy
	}
	return extractTerms(query, opts.CaseSensitive, fuzzy)
}

// Search scores every candidate against query and returns them ordered by
// descending score. Candidates with equal scores keep their input order.
func (e *Engine) Search(query string, notes []models.NoteRecord, opts SearchOptions) []SearchResult {
	terms := e.terms(query, opts)

	results := make([]SearchResult, 0, len(notes))
	for _, n := range notes {
		results = append(results, score(n, terms, opts))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func score(n models.NoteRecord, terms queryTerms, opts SearchOptions) SearchResult {
	fold := strings.ToLower
	if opts.CaseSensitive {
		fold = func(s string) string { return s }
	}
	title := fold(n.Title)
	content := fold(n.Body)

	res := SearchResult{NoteRecord: n, MatchedTerms: []string{}}
	for _, t := range terms.All {
		inTitle := strings.Count(title, t)
		inContent := strings.Count(content, t)
		res.TitleMatchCount += inTitle
		res.ContentMatchCount += inContent
		if inTitle > 0 || inContent > 0 {
			res.MatchedTerms = append(res.MatchedTerms, t)
		}
	}

	s := TitleMatchWeight*float64(res.TitleMatchCount) + ContentMatchWeight*float64(res.ContentMatchCount)
	if terms.Phrase != "" {
		if strings.Contains(title, terms.Phrase) {
			s += TitlePhraseBonus
		}
		if strings.Contains(content, terms.Phrase) {
			s += ContentPhraseBonus
		}
	}
	s += TagMatchWeight * float64(tagMatches(n.Tags, terms.All, fold))

	if length := n.ContentLength(); length > 0 {
		s /= math.Log(float64(length) + 1)
	}
	res.Score = s

	if opts.IncludeSnippets {
		res.Snippets = extractSnippets(n.Body, res.MatchedTerms, opts.CaseSensitive)
	}
	return res
}

// tagMatches counts the tags that contain at least one term.
func tagMatches(tags, terms []string, fold func(string) string) int {
	n := 0
	for _, tag := range tags {
		tag = fold(tag)
		for _, t := range terms {
			if strings.Contains(tag, t) {
				n++
				break
			}
		}
	}
	return n
}
