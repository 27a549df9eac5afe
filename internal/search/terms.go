// Package search ranks notes against free-text queries, scores keyword
// similarity between notes and produces auto-complete suggestions.
//
// Matching is literal substring matching; there is no tokenizer-based index
// and no stemming.
package search

import (
	"strings"
	"unicode"
)

// FuzzyStrategy expands a search term into additional variants that should
// also count as matches.
type FuzzyStrategy interface {
	Variants(term string) []string
}

// DeletionVariants generates every single-character deletion of terms longer
// than MinLength characters. It is a cheap stand-in for edit-distance matching.
type DeletionVariants struct {
	MinLength int
}

// Variants implements FuzzyStrategy.
func (d DeletionVariants) Variants(term string) []string {
	runes := []rune(term)
	if len(runes) <= d.MinLength {
		return nil
	}
	out := make([]string, 0, len(runes))
	for i := range runes {
		v := string(runes[:i]) + string(runes[i+1:])
		out = append(out, v)
	}
	return out
}

// defaultFuzzy matches terms longer than three characters.
var defaultFuzzy FuzzyStrategy = DeletionVariants{MinLength: 3}

// tokenize replaces non-word characters with spaces and splits on
// whitespace, keeping tokens longer than one character. Word characters are
// letters, digits and underscore.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, text)

	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) > 1 {
			out = append(out, tok)
		}
	}
	return out
}

// queryTerms holds the terms extracted from a query. Base keeps the
// tokens in query order; All adds fuzzy variants. Phrase is every base token
// joined by a space. Quotes carry no meaning.
type queryTerms struct {
	Base   []string
	All    []string
	Phrase string
}

// ExtractTerms returns the deduplicated search terms of query. Unless
// caseSensitive is set the query is lower-cased first. A nil fuzzy strategy
// disables variant generation.
func ExtractTerms(query string, caseSensitive bool, fuzzy FuzzyStrategy) []string {
	return extractTerms(query, caseSensitive, fuzzy).All
}

func extractTerms(query string, caseSensitive bool, fuzzy FuzzyStrategy) queryTerms {
	if !caseSensitive {
		query = strings.ToLower(query)
	}
	base := tokenize(query)

	all := make([]string, 0, len(base))
	seen := make(map[string]struct{}, len(base))
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		all = append(all, t)
	}
	for _, t := range base {
		add(t)
	}
	if fuzzy != nil {
		for _, t := range base {
			for _, v := range fuzzy.Variants(t) {
				add(v)
			}
		}
	}

	return queryTerms{
		Base:   base,
		All:    all,
		Phrase: strings.Join(base, " "),
	}
}
