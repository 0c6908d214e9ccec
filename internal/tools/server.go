// Package tools exposes the read-only drive surface as MCP tools. Every
// handler authorizes the target against the scope resolver before touching
// content, and renders faults as error results instead of protocol errors.
package tools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/extract"
	"github.com/dgallion1/drivescope/internal/fault"
	"github.com/dgallion1/drivescope/internal/scope"
	"github.com/dgallion1/drivescope/internal/stream"
)

// Store is the slice of the remote store the tree and search tools consume.
type Store interface {
	GetMetadata(ctx context.Context, id string) (drive.Node, error)
	ListChildren(ctx context.Context, folderID string, foldersOnly bool, pageSize int) ([]drive.Node, error)
}

// Server wires the core components behind the tool handlers.
type Server struct {
	resolver  *scope.Resolver
	extractor *extract.Extractor
	reader    *stream.Reader
	store     Store
	rootID    string
	version   string
	log       *slog.Logger
}

func NewServer(resolver *scope.Resolver, extractor *extract.Extractor, reader *stream.Reader, store Store, rootID, version string, log *slog.Logger) *Server {
	return &Server{
		resolver:  resolver,
		extractor: extractor,
		reader:    reader,
		store:     store,
		rootID:    rootID,
		version:   version,
		log:       log,
	}
}

// MCP builds the MCP server with all tools registered.
func (s *Server) MCP() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "drivescope", Version: s.version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_read_file",
		Description: "Read a file's content with format-aware extraction (PDF, XLSX, DOCX, HTML, text)",
	}, s.readFile)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_read_large_file",
		Description: "Read a byte range of a large file, with a continuation offset for the next chunk",
	}, s.readLargeFile)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_sheets_read",
		Description: "Read spreadsheet data with per-cell locations, optionally scoped to an A1 notation range",
	}, s.sheetsRead)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_folder_structure",
		Description: "Display the folder structure under the authorized root in a tree format",
	}, s.folderStructure)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "drive_search",
		Description: "Search files by name inside the authorized folder hierarchy",
	}, s.search)

	return srv
}

type readFileInput struct {
	FileID string `json:"file_id" jsonschema:"ID of the file to read"`
}

type readLargeFileInput struct {
	FileID    string `json:"file_id" jsonschema:"ID of the file to read"`
	StartByte int64  `json:"start_byte,omitempty" jsonschema:"starting byte position (0-based)"`
	// Pointer so an explicit 0 is distinguishable from an omitted field.
	EndByte  *int64 `json:"end_byte,omitempty" jsonschema:"ending byte position (inclusive)"`
	MaxBytes int64  `json:"max_bytes,omitempty" jsonschema:"maximum bytes to read"`
}

type sheetsReadInput struct {
	SpreadsheetID string `json:"spreadsheet_id" jsonschema:"ID of the spreadsheet to read"`
	Range         string `json:"range,omitempty" jsonschema:"optional A1 notation range like Sheet1!A1:B10; reads the first sheet when omitted"`
}

type folderStructureInput struct {
	FolderID     string `json:"folder_id,omitempty" jsonschema:"folder to start from (defaults to the authorized root)"`
	MaxDepth     int    `json:"max_depth,omitempty" jsonschema:"maximum depth to traverse (default 5)"`
	IncludeFiles bool   `json:"include_files,omitempty" jsonschema:"include files, not just folders"`
	MaxItems     int    `json:"max_items,omitempty" jsonschema:"maximum items per folder (default 50)"`
}

type searchInput struct {
	Query    string `json:"query" jsonschema:"name substring to search for"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"maximum results to return (default 10)"`
}

func (s *Server) readFile(ctx context.Context, _ *mcp.CallToolRequest, in readFileInput) (*mcp.CallToolResult, any, error) {
	if in.FileID == "" {
		return errorResult("file_id is required"), nil, nil
	}
	if err := s.authorize(ctx, in.FileID); err != nil {
		return faultResult(err), nil, nil
	}

	res, err := s.extractor.Extract(ctx, in.FileID)
	if err != nil {
		s.log.Warn("read_file failed", "file", in.FileID, "error", err)
		return faultResult(err), nil, nil
	}
	return textResult(renderResult(res)), nil, nil
}

func (s *Server) readLargeFile(ctx context.Context, _ *mcp.CallToolRequest, in readLargeFileInput) (*mcp.CallToolResult, any, error) {
	if in.FileID == "" {
		return errorResult("file_id is required"), nil, nil
	}
	if err := s.authorize(ctx, in.FileID); err != nil {
		return faultResult(err), nil, nil
	}

	chunk, err := s.reader.Read(ctx, stream.Request{
		FileID:    in.FileID,
		StartByte: in.StartByte,
		EndByte:   in.EndByte,
		MaxBytes:  in.MaxBytes,
	})
	if err != nil {
		s.log.Warn("read_large_file failed", "file", in.FileID, "error", err)
		return faultResult(err), nil, nil
	}
	return textResult(renderChunk(chunk)), nil, nil
}

func (s *Server) sheetsRead(ctx context.Context, _ *mcp.CallToolRequest, in sheetsReadInput) (*mcp.CallToolResult, any, error) {
	if in.SpreadsheetID == "" {
		return errorResult("spreadsheet_id is required"), nil, nil
	}
	if err := s.authorize(ctx, in.SpreadsheetID); err != nil {
		return faultResult(err), nil, nil
	}

	sr, err := s.extractor.ReadSheet(ctx, in.SpreadsheetID, in.Range)
	if err != nil {
		s.log.Warn("sheets_read failed", "spreadsheet", in.SpreadsheetID, "range", in.Range, "error", err)
		return faultResult(err), nil, nil
	}
	return textResult(renderSheetRange(sr)), nil, nil
}

func (s *Server) folderStructure(ctx context.Context, _ *mcp.CallToolRequest, in folderStructureInput) (*mcp.CallToolResult, any, error) {
	folderID := in.FolderID
	if folderID == "" {
		folderID = s.rootID
	}
	if err := s.authorize(ctx, folderID); err != nil {
		return faultResult(err), nil, nil
	}

	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if maxDepth > maxTreeDepth {
		maxDepth = maxTreeDepth
	}
	maxItems := in.MaxItems
	if maxItems <= 0 {
		maxItems = 50
	}

	root, err := s.store.GetMetadata(ctx, folderID)
	if err != nil {
		return faultResult(err), nil, nil
	}

	tree := s.buildTree(ctx, folderID, maxDepth, in.IncludeFiles, maxItems)
	return textResult(renderStructure(root.Name, tree, in.IncludeFiles, maxDepth)), nil, nil
}

func (s *Server) search(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
	if in.Query == "" {
		return errorResult("query is required"), nil, nil
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	// The walk starts at the authorized root, so every hit is in scope.
	matches := s.searchSubtree(ctx, in.Query, pageSize)
	return textResult(renderMatches(matches)), nil, nil
}

// authorize maps a denied check onto an OUT_OF_SCOPE fault. Resolver
// errors (the node does not exist, the store is down) pass through with
// their own classification.
func (s *Server) authorize(ctx context.Context, id string) error {
	ok, err := s.resolver.IsAuthorized(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fault.New(fault.CodeOutOfScope, "file %s is outside the authorized folder scope", id)
	}
	return nil
}
