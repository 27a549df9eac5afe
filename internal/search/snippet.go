package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxSnippets     = 3
	snippetLength   = 150
	snippetLeadIn   = 50
	snippetEllipsis = "..."
)

// extractSnippets returns up to three windows of content, one per matched
// term, each starting 50 characters before the term's first occurrence and
// spanning about 150 characters. Windows are clipped to the content.
func extractSnippets(content string, terms []string, caseSensitive bool) []string {
	if content == "" || len(terms) == 0 {
		return nil
	}

	runes := []rune(content)
	haystack := content
	if !caseSensitive {
		lowered := make([]rune, len(runes))
		for i, r := range runes {
			lowered[i] = unicode.ToLower(r)
		}
		haystack = string(lowered)
	}

	var out []string
	seen := make(map[string]struct{})
	for _, t := range terms {
		if len(out) == maxSnippets {
			break
		}
		byteIdx := strings.Index(haystack, t)
		if byteIdx < 0 {
			continue
		}
		pos := utf8.RuneCountInString(haystack[:byteIdx])
		start := max(pos-snippetLeadIn, 0)
		end := min(start+snippetLength, len(runes))

		snip := strings.TrimSpace(string(runes[start:end]))
		if start > 0 {
			snip = snippetEllipsis + snip
		}
		if end < len(runes) {
			snip += snippetEllipsis
		}
		if _, dup := seen[snip]; dup {
			continue
		}
		seen[snip] = struct{}{}
		out = append(out, snip)
	}
	return out
}
