package extract

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownOutline collects the heading hierarchy of a Markdown document,
// in document order. Used for native documents exported as Markdown so
// callers get a cheap structural overview alongside the full text.
func markdownOutline(src []byte) []Heading {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var outline []Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := string(headingText(h, src))
		if title == "" {
			continue
		}
		outline = append(outline, Heading{Level: h.Level, Text: title})
	}
	return outline
}

func headingText(n ast.Node, src []byte) []byte {
	var buf []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf = append(buf, t.Segment.Value(src)...)
		} else {
			buf = append(buf, headingText(c, src)...)
		}
	}
	return buf
}
