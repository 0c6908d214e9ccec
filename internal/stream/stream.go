// Package stream serves large files in bounded byte windows, with a
// continuation offset so callers can walk a file chunk by chunk without
// ever holding the whole thing.
package stream

import (
	"context"
	"io"
	"log/slog"

	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/fault"
)

// Store is the slice of the remote store the reader consumes.
type Store interface {
	GetMetadata(ctx context.Context, id string) (drive.Node, error)
	DownloadRange(ctx context.Context, id string, start, end int64) (io.ReadCloser, error)
}

// Request selects one byte window of a file. MaxBytes caps the window
// size; zero means the reader's configured default. EndByte, when set, is
// an explicit inclusive upper bound: it is clamped only to the end of the
// file and overrides the MaxBytes window, so end byte 0 reads exactly one
// byte.
type Request struct {
	FileID    string
	StartByte int64
	EndByte   *int64
	MaxBytes  int64
}

// Chunk is one byte window plus the bookkeeping needed to continue.
type Chunk struct {
	Name      string
	MimeType  string
	Data      []byte
	StartByte int64
	EndByte   int64 // inclusive, StartByte-1 for an empty window
	TotalSize int64
	IsText    bool

	// HasMore reports that bytes remain past EndByte; NextStartByte is
	// where the following request should start.
	HasMore       bool
	NextStartByte int64
}

// Reader fetches byte windows of regular files. Native documents have no
// stable byte representation and are rejected.
type Reader struct {
	store    Store
	maxBytes int64
	log      *slog.Logger
}

func NewReader(store Store, maxBytes int64, log *slog.Logger) *Reader {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Reader{store: store, maxBytes: maxBytes, log: log}
}

// Read fetches the requested window. The window is clamped to the end of
// the file; a start offset outside the file is an INVALID_RANGE fault.
func (r *Reader) Read(ctx context.Context, req Request) (*Chunk, error) {
	node, err := r.store.GetMetadata(ctx, req.FileID)
	if err != nil {
		return nil, err
	}

	if drive.IsNative(node.MimeType) {
		return nil, fault.New(fault.CodeNotStream,
			"%s is a native document with no byte representation", node.Name)
	}

	if req.StartByte < 0 || (node.Size > 0 && req.StartByte >= node.Size) {
		return nil, fault.New(fault.CodeInvalidRange,
			"start byte %d outside file of %d bytes", req.StartByte, node.Size)
	}

	chunk := &Chunk{
		Name:      node.Name,
		MimeType:  node.MimeType,
		StartByte: req.StartByte,
		EndByte:   req.StartByte - 1,
		TotalSize: node.Size,
		IsText:    textMime(node.MimeType),
	}
	if node.Size == 0 {
		return chunk, nil
	}

	var end int64
	if req.EndByte != nil {
		if *req.EndByte < req.StartByte {
			return nil, fault.New(fault.CodeInvalidRange,
				"end byte %d before start byte %d", *req.EndByte, req.StartByte)
		}
		end = *req.EndByte
		if end > node.Size-1 {
			end = node.Size - 1
		}
	} else {
		max := req.MaxBytes
		if max <= 0 || max > r.maxBytes {
			max = r.maxBytes
		}
		end = req.StartByte + max - 1
		if end > node.Size-1 {
			end = node.Size - 1
		}
	}

	body, err := r.store.DownloadRange(ctx, req.FileID, req.StartByte, end)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// The server may ignore the range request and send the whole file;
	// never read past the window either way.
	want := end - req.StartByte + 1
	data, err := io.ReadAll(io.LimitReader(body, want))
	if err != nil {
		return nil, fault.Wrap(fault.CodeNetwork, err, "read range of %s", node.Name)
	}

	chunk.Data = data
	chunk.EndByte = req.StartByte + int64(len(data)) - 1
	chunk.HasMore = chunk.EndByte < node.Size-1
	if chunk.HasMore {
		chunk.NextStartByte = chunk.EndByte + 1
	}

	r.log.Debug("chunk read",
		"file", req.FileID,
		"start", chunk.StartByte,
		"end", chunk.EndByte,
		"total", chunk.TotalSize,
		"more", chunk.HasMore)
	return chunk, nil
}

func textMime(mimeType string) bool {
	switch mimeType {
	case "application/json", "application/xml", "application/javascript":
		return true
	}
	return len(mimeType) >= 5 && mimeType[:5] == "text/"
}
