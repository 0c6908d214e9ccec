package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/drivescope/internal/cache"
	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/extract"
	"github.com/dgallion1/drivescope/internal/fault"
	"github.com/dgallion1/drivescope/internal/scope"
	"github.com/dgallion1/drivescope/internal/stream"
)

// fakeStore backs every component interface the tools layer touches.
type fakeStore struct {
	nodes    map[string]drive.Node
	children map[string][]drive.Node
	content  map[string][]byte
}

func (s *fakeStore) GetMetadata(_ context.Context, id string) (drive.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return drive.Node{}, fault.New(fault.CodeNotFound, "no node %s", id)
	}
	return n, nil
}

func (s *fakeStore) ListChildren(_ context.Context, folderID string, foldersOnly bool, _ int) ([]drive.Node, error) {
	var out []drive.Node
	for _, child := range s.children[folderID] {
		if foldersOnly && !child.IsFolder() {
			continue
		}
		out = append(out, child)
	}
	return out, nil
}

func (s *fakeStore) Download(_ context.Context, id string) ([]byte, error) {
	data, ok := s.content[id]
	if !ok {
		return nil, fault.New(fault.CodeNotFound, "no content %s", id)
	}
	return data, nil
}

func (s *fakeStore) Export(_ context.Context, id, _ string) (string, error) {
	return string(s.content[id]), nil
}

func (s *fakeStore) DownloadRange(_ context.Context, id string, start, end int64) (io.ReadCloser, error) {
	data, ok := s.content[id]
	if !ok {
		return nil, fault.New(fault.CodeNotFound, "no content %s", id)
	}
	if end > int64(len(data))-1 {
		end = int64(len(data)) - 1
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

// Hierarchy: root -> docs/ -> notes.txt; root -> readme.md, Plan (native
// doc). An unrelated file lives outside the root entirely.
func newFixture() *fakeStore {
	s := &fakeStore{
		nodes:    map[string]drive.Node{},
		children: map[string][]drive.Node{},
		content:  map[string][]byte{},
	}
	add := func(n drive.Node, parent string, content []byte) {
		if parent != "" {
			n.Parents = []string{parent}
			s.children[parent] = append(s.children[parent], n)
		}
		s.nodes[n.ID] = n
		if content != nil {
			s.content[n.ID] = content
			n.Size = int64(len(content))
			s.nodes[n.ID] = n
			kids := s.children[parent]
			kids[len(kids)-1] = n
			s.children[parent] = kids
		}
	}

	add(drive.Node{ID: "root", Name: "Workspace", MimeType: drive.MimeFolder}, "", nil)
	add(drive.Node{ID: "docs", Name: "docs", MimeType: drive.MimeFolder}, "root", nil)
	add(drive.Node{ID: "notes", Name: "notes.txt", MimeType: "text/plain", ModifiedTime: "t1"}, "docs", []byte("meeting notes here"))
	add(drive.Node{ID: "readme", Name: "readme.md", MimeType: "text/markdown", ModifiedTime: "t1"}, "root", []byte("# Readme\n\nchunked content for ranged reads"))
	add(drive.Node{ID: "plan", Name: "Plan", MimeType: drive.MimeDocument, ModifiedTime: "t1"}, "root", []byte("# Plan\n\nbody"))

	// Lives under an unrelated folder, never reachable from the root.
	s.nodes["outsider"] = drive.Node{ID: "outsider", Name: "secret.txt", MimeType: "text/plain", ModifiedTime: "t1", Parents: []string{"elsewhere"}, Size: 6}
	s.content["outsider"] = []byte("secret")
	return s
}

func newTestServer(s *fakeStore) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := scope.NewResolver(s, "root", 3, 100, log)
	c := cache.New[*extract.Result](10<<20, time.Minute, log)
	extractor := extract.New(s, c, extract.Config{}, log)
	reader := stream.NewReader(s, 16, log)
	return NewServer(resolver, extractor, reader, s, "root", "test", log)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestReadFileInScope(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readFile(context.Background(), nil, readFileInput{FileID: "notes"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "File: notes.txt")
	assert.Contains(t, text, "meeting notes here")
}

func TestReadFileOutOfScope(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readFile(context.Background(), nil, readFileInput{FileID: "outsider"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "OUT_OF_SCOPE")
	assert.Contains(t, text, "Suggestion:")
	assert.NotContains(t, text, "secret")
}

func TestReadFileRequiresID(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readFile(context.Background(), nil, readFileInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestReadFileNativeDocument(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readFile(context.Background(), nil, readFileInput{FileID: "plan"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Exported as: text/markdown")
	assert.Contains(t, text, "## Outline")
	assert.Contains(t, text, "- Plan")
}

func TestReadLargeFileContinuation(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readLargeFile(context.Background(), nil, readLargeFileInput{FileID: "readme"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "File: readme.md")
	assert.Contains(t, text, "Read: bytes 0-15 (16 bytes)")
	assert.Contains(t, text, "[More content available. Next chunk: start_byte=16]")
}

func TestReadLargeFileExplicitZeroEndByte(t *testing.T) {
	srv := newTestServer(newFixture())

	zero := int64(0)
	res, _, err := srv.readLargeFile(context.Background(), nil, readLargeFileInput{FileID: "readme", EndByte: &zero})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Read: bytes 0-0 (1 bytes)")
	assert.Contains(t, text, "[More content available. Next chunk: start_byte=1]")
}

func TestReadLargeFileNativeRejected(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readLargeFile(context.Background(), nil, readLargeFileInput{FileID: "plan"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "NOT_STREAMABLE")
}

func TestReadLargeFileOutOfScope(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.readLargeFile(context.Background(), nil, readLargeFileInput{FileID: "outsider"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "OUT_OF_SCOPE")
}

// withBudgetSheet adds a native spreadsheet under the root whose XLSX
// export holds an Item/Cost grid.
func withBudgetSheet(t *testing.T, s *fakeStore) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range map[string]any{"A1": "Item", "B1": "Cost", "A2": "Pens", "B2": 12} {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	n := drive.Node{ID: "budget", Name: "Budget", MimeType: drive.MimeSpreadsheet, ModifiedTime: "t1", Parents: []string{"root"}}
	s.nodes["budget"] = n
	s.children["root"] = append(s.children["root"], n)
	s.content["budget"] = buf.Bytes()
}

func TestSheetsRead(t *testing.T) {
	s := newFixture()
	withBudgetSheet(t, s)
	srv := newTestServer(s)

	res, _, err := srv.sheetsRead(context.Background(), nil, sheetsReadInput{SpreadsheetID: "budget"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, `"sheetName": "Sheet1"`)
	assert.Contains(t, text, `"location": "Sheet1!B2"`)
	assert.Contains(t, text, `"value": "12"`)
}

func TestSheetsReadWindow(t *testing.T) {
	s := newFixture()
	withBudgetSheet(t, s)
	srv := newTestServer(s)

	res, _, err := srv.sheetsRead(context.Background(), nil, sheetsReadInput{SpreadsheetID: "budget", Range: "Sheet1!A1:A2"})
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, `"value": "Pens"`)
	assert.NotContains(t, text, `"value": "12"`, "cells outside the window are excluded")
}

func TestSheetsReadOutOfScope(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.sheetsRead(context.Background(), nil, sheetsReadInput{SpreadsheetID: "outsider"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "OUT_OF_SCOPE")
}

func TestSheetsReadRequiresID(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.sheetsRead(context.Background(), nil, sheetsReadInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSheetsReadNotASpreadsheet(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.sheetsRead(context.Background(), nil, sheetsReadInput{SpreadsheetID: "notes"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "NOT_EXPORTABLE")
}

func TestFolderStructureTree(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.folderStructure(context.Background(), nil, folderStructureInput{IncludeFiles: true})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "📁 Workspace")
	assert.Contains(t, text, "├── 📁 docs")
	assert.Contains(t, text, "│   └── 📄 notes.txt")
	assert.Contains(t, text, "└── 📝 Plan")
	assert.Contains(t, text, "Summary: 2 folders, 3 files")
}

func TestFolderStructureFoldersOnly(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.folderStructure(context.Background(), nil, folderStructureInput{})
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "📁 docs")
	assert.NotContains(t, text, "notes.txt")
	assert.Contains(t, text, "Summary: 2 folders\n")
}

func TestFolderStructureDepthClamped(t *testing.T) {
	s := &fakeStore{
		nodes:    map[string]drive.Node{"root": {ID: "root", Name: "Workspace", MimeType: drive.MimeFolder}},
		children: map[string][]drive.Node{},
		content:  map[string][]byte{},
	}
	parent := "root"
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("d%d", i)
		n := drive.Node{ID: id, Name: id, MimeType: drive.MimeFolder, Parents: []string{parent}}
		s.nodes[id] = n
		s.children[parent] = []drive.Node{n}
		parent = id
	}
	srv := newTestServer(s)

	res, _, err := srv.folderStructure(context.Background(), nil, folderStructureInput{MaxDepth: 100})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "d10")
	assert.NotContains(t, text, "d11", "requested depth is clamped to the ceiling")
	assert.Contains(t, text, "(Max depth: 10)")
}

func TestFolderStructureCycleTerminates(t *testing.T) {
	loop := drive.Node{ID: "loop", Name: "loop", MimeType: drive.MimeFolder, Parents: []string{"root"}}
	s := &fakeStore{
		nodes: map[string]drive.Node{
			"root": {ID: "root", Name: "Workspace", MimeType: drive.MimeFolder},
			"loop": loop,
		},
		children: map[string][]drive.Node{
			"root": {loop},
			"loop": {loop},
		},
		content: map[string][]byte{},
	}
	srv := newTestServer(s)

	res, _, err := srv.folderStructure(context.Background(), nil, folderStructureInput{})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "loop")
}

func TestSearchFindsByNameSubstring(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.search(context.Background(), nil, searchInput{Query: "NOTES"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Found 1 files:")
	assert.Contains(t, text, "notes notes.txt (text/plain)")
	assert.NotContains(t, text, "secret.txt", "nodes outside the root never appear")
}

func TestSearchRespectsPageSize(t *testing.T) {
	s := newFixture()
	srv := newTestServer(s)

	res, _, err := srv.search(context.Background(), nil, searchInput{Query: "e", PageSize: 2})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Found 2 files:")
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(newFixture())

	res, _, err := srv.search(context.Background(), nil, searchInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCPRegistersAllTools(t *testing.T) {
	srv := newTestServer(newFixture())
	assert.NotNil(t, srv.MCP())
}
