package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Header is the frontmatter written for notes created through sift.
type Header struct {
	ID      string   `yaml:"id,omitempty"`
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags,omitempty"`
	Created string   `yaml:"created,omitempty"`
}

// NewHeader returns a header stamped with the creation date.
func NewHeader(id, title string, tags []string, created time.Time) Header {
	return Header{ID: id, Title: title, Tags: tags, Created: created.UTC().Format(time.DateOnly)}
}

// Render serialises frontmatter (a Header, a map or any YAML-marshalable
// value) and body into a Markdown document with a trailing newline.
func Render(frontmatter any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(frontmatter); err != nil {
		return nil, fmt.Errorf("parser: render frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: render frontmatter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimRight(body, "\n"))
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MergeTags adds tags to the frontmatter of an existing document, keeping
// its other keys and the body. Tags already present (in frontmatter or
// inline) are not repeated.
func MergeTags(data []byte, tags []string) ([]byte, error) {
	fm, body := splitFrontmatter(data)
	if fm == nil {
		fm = make(map[string]any)
	}

	existing := extractTags(body, fm)
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t] = struct{}{}
	}

	var fmTags []any
	switch v := fm["tags"].(type) {
	case []any:
		fmTags = v
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				fmTags = append(fmTags, s)
			}
		}
	}
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		fmTags = append(fmTags, t)
	}
	fm["tags"] = fmTags

	return Render(fm, body)
}

// Slug converts a title into a file stem: lower-case letters and digits
// joined by single hyphens.
func Slug(title string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	return b.String()
}
