package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/drivescope/internal/fault"
)

// decodeHTML strips an HTML document down to its visible text, skipping
// script, style, and navigation chrome.
func decodeHTML(res *Result, data []byte) error {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return fault.Wrap(fault.CodeParse, err, "parse html %s", res.Name)
	}

	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "pre":
				if t := nodeText(n); t != "" {
					blocks = append(blocks, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(blocks) == 0 {
		// No block structure at all: fall back to every text node.
		if t := nodeText(doc); t != "" {
			blocks = append(blocks, t)
		}
	}

	res.Text = strings.Join(blocks, "\n\n")
	return nil
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}
