package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/extract"
	"github.com/dgallion1/drivescope/internal/fault"
	"github.com/dgallion1/drivescope/internal/stream"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// faultResult renders a classified error as a tool error result, keeping
// the stable code and the remediation hint visible to the caller.
func faultResult(err error) *mcp.CallToolResult {
	var f *fault.Fault
	if !errors.As(err, &f) {
		return errorResult(fmt.Sprintf("%s: %v", fault.CodeUnknown, err))
	}
	text := fmt.Sprintf("%s: %s", f.Code, f.Message)
	if f.Hint != "" {
		text += "\nSuggestion: " + f.Hint
	}
	return errorResult(text)
}

// renderResult formats an extraction result as a readable report: a
// metadata header, the document info block for PDFs, the content, then any
// reconstructed tables and sheet summaries.
func renderResult(res *extract.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File: %s\n", res.Name)
	fmt.Fprintf(&b, "MIME Type: %s\n", res.MimeType)
	if res.Exported {
		fmt.Fprintf(&b, "Exported as: %s\n", res.ExportMime)
	}

	if res.PDF != nil {
		b.WriteString("\n## Document Info\n")
		fmt.Fprintf(&b, "- Pages: %d\n", res.PDF.Pages)
		fmt.Fprintf(&b, "- Size: %.2f MB\n", float64(res.Size)/(1<<20))
		writeIf(&b, "Title", res.PDF.Title)
		writeIf(&b, "Author", res.PDF.Author)
		writeIf(&b, "Creator", res.PDF.Creator)
		writeIf(&b, "Subject", res.PDF.Subject)
		writeIf(&b, "Created", res.PDF.Created)
		writeIf(&b, "Modified", res.PDF.Modified)
	}

	if len(res.Outline) > 0 {
		b.WriteString("\n## Outline\n")
		for _, h := range res.Outline {
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", h.Level-1), h.Text)
		}
	}

	if res.Format == extract.FormatBinary {
		fmt.Fprintf(&b, "\nBinary content (%d bytes). Use drive_read_large_file to page through raw bytes.\n", len(res.Binary))
	} else {
		b.WriteString("\n## Content\n")
		b.WriteString(res.Text)
		if !strings.HasSuffix(res.Text, "\n") {
			b.WriteString("\n")
		}
	}

	for i, table := range res.Tables {
		fmt.Fprintf(&b, "\n## Table %d (page %d)\n", i+1, table.Page)
		b.WriteString(table.Markdown())
	}

	if len(res.Sheets) > 0 {
		b.WriteString("\n## Sheets\n")
		for _, sheet := range res.Sheets {
			fmt.Fprintf(&b, "- %s: %d rows, %d columns\n", sheet.Name, sheet.RowCount, sheet.ColumnCount)
		}
	}

	return b.String()
}

func writeIf(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}

// renderSheetRange formats sheet data as indented JSON, keeping per-cell
// locations addressable by the caller.
func renderSheetRange(sr *extract.SheetRange) string {
	out, err := json.MarshalIndent(sr, "", "  ")
	if err != nil {
		return fmt.Sprintf("failed to render sheet data: %v", err)
	}
	return string(out)
}

// renderChunk formats one byte window, ending with the continuation hint
// when more bytes remain.
func renderChunk(c *stream.Chunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File: %s\n", c.Name)
	fmt.Fprintf(&b, "Size: %d bytes\n", c.TotalSize)
	fmt.Fprintf(&b, "Read: bytes %d-%d (%d bytes)\n", c.StartByte, c.EndByte, len(c.Data))
	fmt.Fprintf(&b, "MIME Type: %s\n\n", c.MimeType)

	if c.IsText {
		b.WriteString("Content:\n")
		b.Write(c.Data)
		if c.HasMore {
			fmt.Fprintf(&b, "\n\n[More content available. Next chunk: start_byte=%d]", c.NextStartByte)
		}
	} else {
		fmt.Fprintf(&b, "Binary content (%d bytes). Save to a file or decode externally.", len(c.Data))
		if c.HasMore {
			fmt.Fprintf(&b, "\n\n[More content available. Next chunk: start_byte=%d]", c.NextStartByte)
		}
	}

	return b.String()
}

// renderStructure formats the folder tree with the root on its own line
// and a trailing summary.
func renderStructure(rootName string, tree []*treeNode, includeFiles bool, maxDepth int) string {
	var b strings.Builder

	b.WriteString("Folder Structure:\n\n")
	fmt.Fprintf(&b, "📁 %s\n", rootName)
	renderTree(&b, tree, nil)

	folders := countTree(tree, true) + 1 // the root counts
	fmt.Fprintf(&b, "\nSummary: %d folders", folders)
	if includeFiles {
		fmt.Fprintf(&b, ", %d files", countTree(tree, false))
	}
	fmt.Fprintf(&b, "\n(Max depth: %d)\n", maxDepth)

	return b.String()
}

func renderTree(b *strings.Builder, nodes []*treeNode, ancestorLast []bool) {
	for i, n := range nodes {
		last := i == len(nodes)-1

		for _, al := range ancestorLast {
			if al {
				b.WriteString("    ")
			} else {
				b.WriteString("│   ")
			}
		}
		if last {
			b.WriteString("└── ")
		} else {
			b.WriteString("├── ")
		}
		fmt.Fprintf(b, "%s %s\n", icon(n.node.MimeType), n.node.Name)

		if len(n.children) > 0 {
			renderTree(b, n.children, append(ancestorLast, last))
		}
	}
}

func icon(mimeType string) string {
	switch mimeType {
	case drive.MimeFolder:
		return "📁"
	case drive.MimeSpreadsheet:
		return "📊"
	case drive.MimeDocument:
		return "📝"
	}
	return "📄"
}

func renderMatches(matches []drive.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d files:\n", len(matches))
	for _, n := range matches {
		fmt.Fprintf(&b, "%s %s (%s)\n", n.ID, n.Name, n.MimeType)
	}
	return b.String()
}
