package search

import (
	"sort"

	"github.com/starford/sift/internal/models"
)

// DefaultMinSimilarity is the score below which candidates are discarded.
const DefaultMinSimilarity = 0.1

// SimilarOptions controls FindSimilar.
type SimilarOptions struct {
	// MinSimilarity discards weaker candidates. Zero means
	// DefaultMinSimilarity; a negative value keeps every candidate.
	MinSimilarity float64 `json:"min_similarity"`
	Limit         int     `json:"limit"`
	// ExcludePath skips the note the reference text came from.
	ExcludePath string `json:"exclude_path,omitempty"`
}

// SimilarityResult is a note with its keyword-overlap score.
type SimilarityResult struct {
	models.NoteRecord
	Similarity     float64  `json:"similarity"`
	SharedKeywords []string `json:"shared_keywords"`
}

// Similarity scores the overlap of two keyword sets as
// matched / max(|a|, |b|), where matched is the size of a maximum
// one-to-one pairing of matching keywords. The score is symmetric, lies in
// [0,1], is 0 when either set is empty and 1 for identical sets.
func Similarity(a, b []string) float64 {
	matched, _ := overlap(a, b)
	denom := max(len(a), len(b))
	if denom == 0 {
		return 0
	}
	return float64(matched) / float64(denom)
}

// overlap computes a maximum bipartite matching between a and b using
// augmenting paths and returns its size and the matched keywords of a.
func overlap(a, b []string) (int, []string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	ownerOf := make([]int, len(b))
	for i := range ownerOf {
		ownerOf[i] = -1
	}

	var augment func(i int, visited []bool) bool
	augment = func(i int, visited []bool) bool {
		for j := range b {
			if visited[j] || !keywordsMatch(a[i], b[j]) {
				continue
			}
			visited[j] = true
			if ownerOf[j] < 0 || augment(ownerOf[j], visited) {
				ownerOf[j] = i
				return true
			}
		}
		return false
	}

	n := 0
	for i := range a {
		if augment(i, make([]bool, len(b))) {
			n++
		}
	}

	paired := make([]bool, len(a))
	for _, i := range ownerOf {
		if i >= 0 {
			paired[i] = true
		}
	}
	shared := make([]string, 0, n)
	for i, ok := range paired {
		if ok {
			shared = append(shared, a[i])
		}
	}
	return n, shared
}

// Keywords returns the keyword set of a note body, memoized by checksum.
func (e *Engine) Keywords(n models.NoteRecord) []string {
	memoKey := n.Checksum
	if memoKey == "" {
		return ExtractKeywords(n.Body, e.maxKeywords)
	}
	if kw, ok := e.keywords.Get(memoKey); ok {
		return kw
	}
	kw := ExtractKeywords(n.Body, e.maxKeywords)
	e.keywords.Add(memoKey, kw)
	return kw
}

// FindSimilar ranks candidates by keyword overlap with reference. Results
// under the minimum similarity are dropped; the rest are ordered by
// descending score and truncated to opts.Limit when positive.
func (e *Engine) FindSimilar(reference string, notes []models.NoteRecord, opts SimilarOptions) []SimilarityResult {
	minSim := opts.MinSimilarity
	if minSim == 0 {
		minSim = DefaultMinSimilarity
	}

	refKeywords := ExtractKeywords(reference, e.maxKeywords)
	if len(refKeywords) == 0 {
		return []SimilarityResult{}
	}

	results := []SimilarityResult{}
	for _, n := range notes {
		if opts.ExcludePath != "" && n.Path == opts.ExcludePath {
			continue
		}
		kw := e.Keywords(n)
		matched, shared := overlap(refKeywords, kw)
		denom := max(len(refKeywords), len(kw))
		sim := 0.0
		if denom > 0 {
			sim = float64(matched) / float64(denom)
		}
		if sim < minSim {
			continue
		}
		if shared == nil {
			shared = []string{}
		}
		results = append(results, SimilarityResult{
			NoteRecord:     n,
			Similarity:     sim,
			SharedKeywords: shared,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}
