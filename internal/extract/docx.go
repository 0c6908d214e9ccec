package extract

import (
	"bytes"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/drivescope/internal/fault"
)

// decodeDocx extracts paragraph text from a DOCX document, one paragraph
// per line, skipping empty runs.
func decodeDocx(res *Result, data []byte) error {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fault.Wrap(fault.CodeParse, err, "parse docx %s", res.Name)
	}

	var text strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		t := paragraphText(para)
		if t == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(t)
	}

	res.Text = text.String()
	return nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
