package search

import (
	"context"
	"sort"
	"strings"
)

// DefaultSuggestionLimit caps each suggestion list when no limit is given.
const DefaultSuggestionLimit = 5

// SuggestionSource performs the three lookups behind Suggest. Implementations
// read through the query executor.
type SuggestionSource interface {
	// FrequentTerms returns whole words starting with prefix, most frequent first.
	FrequentTerms(ctx context.Context, prefix string, limit int) ([]string, error)
	// TitlesContaining returns note titles containing fragment.
	TitlesContaining(ctx context.Context, fragment string, limit int) ([]string, error)
	// TagsWithPrefix returns tag names starting with prefix.
	TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Suggestions holds three independent candidate lists; there is no ranking
// across lists.
type Suggestions struct {
	Terms  []string `json:"terms"`
	Titles []string `json:"titles"`
	Tags   []string `json:"tags"`
}

// Suggest returns auto-complete candidates for partial. Each list is capped
// at limit and filtered to entries matching its field's rule: terms and tags
// must start with the normalized prefix, titles must contain it.
func Suggest(ctx context.Context, src SuggestionSource, partial string, limit int) (Suggestions, error) {
	out := Suggestions{Terms: []string{}, Titles: []string{}, Tags: []string{}}
	prefix := strings.ToLower(strings.TrimSpace(partial))
	if prefix == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	terms, err := src.FrequentTerms(ctx, prefix, limit)
	if err != nil {
		return out, err
	}
	titles, err := src.TitlesContaining(ctx, prefix, limit)
	if err != nil {
		return out, err
	}
	tags, err := src.TagsWithPrefix(ctx, prefix, limit)
	if err != nil {
		return out, err
	}

	out.Terms = keep(terms, limit, func(s string) bool { return strings.HasPrefix(strings.ToLower(s), prefix) })
	out.Titles = keep(titles, limit, func(s string) bool { return strings.Contains(strings.ToLower(s), prefix) })
	out.Tags = keep(tags, limit, func(s string) bool { return strings.HasPrefix(strings.ToLower(s), prefix) })
	return out, nil
}

func keep(in []string, limit int, ok func(string) bool) []string {
	out := make([]string, 0, min(len(in), limit))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if len(out) == limit {
			break
		}
		if _, dup := seen[s]; dup || !ok(s) {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FrequentTerms counts whole words across texts and returns those starting
// with prefix, most frequent first, ties broken alphabetically.
func FrequentTerms(texts []string, prefix string, limit int) []string {
	prefix = strings.ToLower(prefix)
	freq := make(map[string]int)
	for _, text := range texts {
		for _, w := range tokenize(strings.ToLower(text)) {
			if strings.HasPrefix(w, prefix) {
				freq[w]++
			}
		}
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}
