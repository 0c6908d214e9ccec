package extract

import (
	"bytes"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/drivescope/internal/fault"
	"github.com/dgallion1/drivescope/internal/tabular"
)

// decodePDF extracts plain text, trailer metadata, and table geometry.
// A document that parses but yields no text at all is reported as scanned
// (image-only) rather than an empty success.
func (e *Extractor) decodePDF(res *Result, data []byte) (err error) {
	// The underlying parser panics on some malformed cross-reference
	// tables; surface those as parse errors instead of crashing.
	defer func() {
		if r := recover(); r != nil {
			err = fault.New(fault.CodeParse, "pdf parser failed on %s: %v", res.Name, r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return classifyPDFError(res.Name, err)
	}

	numPages := reader.NumPage()
	info := &PDFInfo{Pages: numPages}
	fillTrailerInfo(reader, info)

	var text strings.Builder
	pages := make([][]tabular.Fragment, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err == nil {
			if text.Len() > 0 {
				text.WriteString("\f")
			}
			text.WriteString(pageText)
		}

		content := page.Content()
		frags := make([]tabular.Fragment, 0, len(content.Text))
		for _, t := range content.Text {
			frags = append(frags, tabular.Fragment{
				Text: t.S,
				X:    t.X,
				// PDF user space runs bottom-up; negate so rows sort
				// top to bottom.
				Y:    -t.Y,
				Page: i - 1,
			})
		}
		pages = append(pages, frags)
	}

	if strings.TrimSpace(text.String()) == "" {
		return fault.New(fault.CodeScanned, "%s contains no extractable text", res.Name)
	}

	res.Text = text.String()
	res.PDF = info
	res.Tables = tabular.Extract(pages, e.cfg.Tabular)
	return nil
}

// classifyPDFError distinguishes password protection from corruption.
func classifyPDFError(name string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "encrypt") || strings.Contains(msg, "password") {
		return fault.Wrap(fault.CodeEncrypted, err, "%s is password protected", name)
	}
	return fault.Wrap(fault.CodeParse, err, "parse pdf %s", name)
}

// fillTrailerInfo copies the document information dictionary, if present.
func fillTrailerInfo(reader *pdflib.Reader, info *PDFInfo) {
	// Malformed info dictionaries are not worth failing extraction over.
	defer func() { _ = recover() }()

	dict := reader.Trailer().Key("Info")
	if dict.IsNull() {
		return
	}
	info.Title = dict.Key("Title").Text()
	info.Author = dict.Key("Author").Text()
	info.Creator = dict.Key("Creator").Text()
	info.Subject = dict.Key("Subject").Text()
	info.Created = dict.Key("CreationDate").Text()
	info.Modified = dict.Key("ModDate").Text()
}
