package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// skipElements are dropped together with their content.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// PlainText strips inline HTML from a Markdown body, keeping text content
// and Markdown syntax as-is. Entities are decoded.
func PlainText(body string) (string, error) {
	if !strings.ContainsAny(body, "<&") {
		return body, nil
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(body))
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipElements[n.Data] {
				return
			}
			if n.Data == "br" {
				b.WriteByte('\n')
			}
		case html.TextNode:
			b.WriteString(n.Data)
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}
