package extract

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/drivescope/internal/tabular"
)

// Format enumerates the decoders the extractor can dispatch to. The set is
// closed: adding a format means adding a case everywhere the compiler
// points, not another string comparison.
type Format int

const (
	FormatBinary Format = iota // opaque passthrough, the fallback
	FormatText
	FormatPDF
	FormatWorkbook
	FormatDocx
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatPDF:
		return "pdf"
	case FormatWorkbook:
		return "workbook"
	case FormatDocx:
		return "docx"
	case FormatHTML:
		return "html"
	default:
		return "binary"
	}
}

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// formatFor maps a media type (with extension fallback for generic types)
// onto a decoder.
func formatFor(mimeType, name string) Format {
	switch mimeType {
	case mimePDF:
		return FormatPDF
	case mimeXLSX:
		return FormatWorkbook
	case mimeDocx:
		return FormatDocx
	case "text/html":
		return FormatHTML
	case "application/json", "application/xml", "application/javascript":
		return FormatText
	}
	if strings.HasPrefix(mimeType, "text/") {
		return FormatText
	}

	// Stores sometimes report application/octet-stream for well-known
	// extensions; fall back on the filename.
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".xlsx", ".xlsm":
		return FormatWorkbook
	case ".docx":
		return FormatDocx
	case ".html", ".htm":
		return FormatHTML
	case ".txt", ".md", ".markdown", ".csv", ".json", ".xml", ".log":
		return FormatText
	}
	return FormatBinary
}

// PDFInfo is document metadata pulled from the PDF trailer.
type PDFInfo struct {
	Pages    int
	Title    string
	Author   string
	Creator  string
	Subject  string
	Created  string
	Modified string
}

// Sheet is one parsed workbook sheet. The first row supplies the headers;
// every following row becomes a header-keyed record.
type Sheet struct {
	Name        string
	Headers     []string
	Records     []map[string]string
	RowCount    int
	ColumnCount int
	CSV         string
}

// Heading is one entry of a document outline.
type Heading struct {
	Level int
	Text  string
}

// Result is the structured content extracted from a node. It is owned by
// the cache entry holding it (when cached) and must not be mutated after
// Extract returns.
type Result struct {
	ID       string
	Name     string
	MimeType string
	Format   Format
	Size     int64 // raw byte length of the fetched content

	Text   string
	Binary []byte

	PDF     *PDFInfo
	Tables  []tabular.Table
	Sheets  []Sheet
	Outline []Heading

	// Exported is set for native documents converted via the store's
	// export endpoint; such results are never cached.
	Exported   bool
	ExportMime string
}

// Fingerprint derives the cache key for a node snapshot. Any edit changes
// the modification time and therefore the key.
func Fingerprint(id, modifiedTime string) string {
	return id + ":" + modifiedTime
}
