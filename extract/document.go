// Package extract turns chat page DOM into ordered conversation turns. It
// supports three paths: site templates, ad-hoc CSS selectors, and automatic
// structure detection for unknown pages.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseHTML parses raw HTML into a queryable document.
func ParseHTML(raw string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// blockTags are elements that visually separate their content from what
// surrounds them. The text walker writes newlines around them so a message
// keeps its paragraph structure.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// skipTags never contribute visible text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// sourceSpace flattens the whitespace HTML treats as insignificant: source
// newlines and tabs inside a text node render as spaces, not line breaks.
var sourceSpace = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// Text renders the visible text of a selection with layout-aware breaks:
// <br> becomes a newline and block elements get newlines around them, while
// source-formatting whitespace collapses the way a browser renders it.
// goquery's own Text() concatenates node text with no separators, which runs
// adjacent messages together into one unsplittable string.
func Text(s *goquery.Selection) string {
	var b strings.Builder
	for _, node := range s.Nodes {
		appendNodeText(&b, node, false)
	}
	return tidyText(b.String())
}

func appendNodeText(b *strings.Builder, n *html.Node, inPre bool) {
	switch n.Type {
	case html.TextNode:
		if inPre {
			b.WriteString(n.Data)
		} else {
			b.WriteString(sourceSpace.Replace(n.Data))
		}
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
		block := blockTags[n.Data]
		if block {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			appendNodeText(b, c, inPre || n.Data == "pre")
		}
		if block {
			b.WriteString("\n")
		}
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			appendNodeText(b, c, inPre)
		}
	}
}

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// tidyText normalizes walker output: collapse runs of whitespace within each
// line, limit consecutive blank lines to one, trim the ends.
func tidyText(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := strings.Join(lines, "\n")
	out = extraBlankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
