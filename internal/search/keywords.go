package search

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxKeywords bounds the keyword set extracted from one text.
const DefaultMaxKeywords = 10

// minKeywordLength is the shortest token kept as a keyword.
const minKeywordLength = 4

var stopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "against": true,
	"also": true, "been": true, "before": true, "being": true, "below": true,
	"between": true, "both": true, "cannot": true, "could": true, "does": true,
	"doing": true, "done": true, "down": true, "during": true, "each": true,
	"every": true, "from": true, "further": true, "have": true, "having": true,
	"here": true, "hers": true, "herself": true, "himself": true, "into": true,
	"itself": true, "just": true, "like": true, "made": true, "make": true,
	"many": true, "more": true, "most": true, "much": true, "must": true,
	"myself": true, "never": true, "none": true, "once": true, "only": true,
	"other": true, "ought": true, "ours": true, "ourselves": true, "over": true,
	"same": true, "shall": true, "should": true, "some": true, "such": true,
	"than": true, "that": true, "their": true, "theirs": true, "them": true,
	"themselves": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "under": true, "until": true,
	"very": true, "want": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "whom": true, "will": true,
	"with": true, "would": true, "your": true, "yours": true, "yourself": true,
	"yourselves": true,
}

// ExtractKeywords returns up to limit distinct keywords from text, most
// frequent first with ties kept in order of first appearance. Text is
// lower-cased and stripped of punctuation; tokens of three characters or
// fewer and stop words are discarded. A non-positive limit means
// DefaultMaxKeywords.
func ExtractKeywords(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return -1
	}, text)

	counts := make(map[string]int)
	var order []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) < minKeywordLength || stopWords[tok] {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// keywordsMatch reports whether two keywords match: equal, or one contains
// the other ("note" and "notes").
func keywordsMatch(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
