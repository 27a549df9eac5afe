package parser

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nid: abc-123\ntitle: Hello\ntags:\n  - go\n  - sift\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.ID != "abc-123" {
		t.Errorf("id = %q", r.ID)
	}
	if !slices.Equal(r.Tags, []string{"go", "sift"}) {
		t.Errorf("tags = %v, want [go sift]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.PlainText != r.Body {
		t.Errorf("plain text of html-free body should be unchanged: %q", r.PlainText)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestExtractLinks_Basic(t *testing.T) {
	body := "See [[Note A]] and [[Note B|alias]].\nAlso [[Note A]] again and [[Note C#Heading]]."
	links := extractLinks(body)
	if !slices.Equal(links, []string{"Note A", "Note B", "Note C"}) {
		t.Errorf("links = %v", links)
	}
}

func TestExtractLinks_EmptyTarget(t *testing.T) {
	if links := extractLinks("see [[ ]] and [[|alias]]"); len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{"tags": []any{"alpha"}}
	tags := extractTags("Some text #beta and #alpha again, #заметки too.", fm)
	if !slices.Equal(tags, []string{"alpha", "beta", "заметки"}) {
		t.Errorf("tags = %v, want [alpha beta заметки]", tags)
	}
}

func TestExtractTags_CommaString(t *testing.T) {
	fm := map[string]any{"tags": "one, #two ,"}
	if tags := extractTags("", fm); !slices.Equal(tags, []string{"one", "two"}) {
		t.Errorf("tags = %v", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	if title := deriveTitle(fm, "# H1 Title\ntext"); title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	if title := deriveTitle(nil, "some text\n# My Heading\nmore"); title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestPlainText_StripsHTML(t *testing.T) {
	body := "Intro <b>bold</b> &amp; more<script>alert(1)</script><!-- hidden -->\n<div>block</div>"
	got, err := PlainText(body)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if got != "Intro bold & more\nblock" {
		t.Errorf("plain = %q", got)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Render(NewHeader("id-1", "Project Plan", []string{"work"}, created), "Body with [[link]].\n\n\n")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\nid: id-1\ntitle: Project Plan\n") {
		t.Errorf("unexpected header:\n%s", data)
	}
	if !strings.HasSuffix(string(data), "Body with [[link]].\n") {
		t.Errorf("body not normalised:\n%q", data)
	}

	r, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.ID != "id-1" || r.Title != "Project Plan" || !slices.Equal(r.Tags, []string{"work"}) {
		t.Errorf("round trip = %+v", r)
	}
	if r.Frontmatter["created"] != "2025-03-01" {
		t.Errorf("created = %v", r.Frontmatter["created"])
	}
}

func TestMergeTags(t *testing.T) {
	data := []byte("---\ntitle: T\ntags: [a]\n---\nText #b\n")
	out, err := MergeTags(data, []string{"b", "#c", "a", " "})
	if err != nil {
		t.Fatalf("MergeTags: %v", err)
	}
	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Title != "T" {
		t.Errorf("title lost: %q", r.Title)
	}
	if !slices.Equal(r.Tags, []string{"a", "c", "b"}) {
		t.Errorf("tags = %v", r.Tags)
	}
	if strings.TrimSpace(r.Body) != "Text #b" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestMergeTags_NoFrontmatter(t *testing.T) {
	out, err := MergeTags([]byte("plain body\n"), []string{"x"})
	if err != nil {
		t.Fatalf("MergeTags: %v", err)
	}
	r, _ := Parse(out)
	if !slices.Equal(r.Tags, []string{"x"}) || strings.TrimSpace(r.Body) != "plain body" {
		t.Errorf("result = %+v", r)
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Project Plan", "project-plan"},
		{"  Q3 -- Review!! ", "q3-review"},
		{"Заметка о встрече", "заметка-о-встрече"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
