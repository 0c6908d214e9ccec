// Package extract turns a node's raw bytes into structured, bounded-size
// content: decoded text, exported office formats, parsed workbooks, and
// table geometry recovered from PDFs. Expensive parses are cached by
// content fingerprint and deduplicated in flight.
package extract

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/drivescope/internal/cache"
	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/fault"
	"github.com/dgallion1/drivescope/internal/tabular"
)

// Store is the slice of the remote store the extractor consumes.
type Store interface {
	GetMetadata(ctx context.Context, id string) (drive.Node, error)
	Download(ctx context.Context, id string) ([]byte, error)
	Export(ctx context.Context, id, mimeType string) (string, error)
}

// Config tunes extraction behavior.
type Config struct {
	// MaxDocumentBytes is the pre-parse ceiling for PDF and workbook
	// content. Oversized nodes fail before any bytes are fetched.
	MaxDocumentBytes int64
	Tabular          tabular.Config
}

// Extractor dispatches node content to format decoders. Safe for
// concurrent use; simultaneous requests for the same uncached fingerprint
// share a single parse.
type Extractor struct {
	store  Store
	cache  *cache.Cache[*Result]
	cfg    Config
	log    *slog.Logger
	flight singleflight.Group
}

func New(store Store, c *cache.Cache[*Result], cfg Config, log *slog.Logger) *Extractor {
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = 20 << 20
	}
	if cfg.Tabular == (tabular.Config{}) {
		cfg.Tabular = tabular.DefaultConfig()
	}
	return &Extractor{store: store, cache: c, cfg: cfg, log: log}
}

// Extract fetches the node's metadata and returns its structured content.
// Native documents go through the store's export endpoint and are never
// cached; everything else is fingerprinted by id and modification time,
// with parse results cached and errors never cached.
func (e *Extractor) Extract(ctx context.Context, id string) (*Result, error) {
	node, err := e.store.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	if drive.IsNative(node.MimeType) {
		return e.exportNative(ctx, node)
	}

	fp := Fingerprint(node.ID, node.ModifiedTime)
	if res, ok := e.cache.Get(fp); ok {
		e.log.Debug("extraction cache hit", "file", node.ID)
		return res, nil
	}

	v, err, shared := e.flight.Do(fp, func() (any, error) {
		// A late arrival may join after the winner populated the cache.
		if res, ok := e.cache.Get(fp); ok {
			return res, nil
		}
		res, cacheable, err := e.decode(ctx, node)
		if err != nil {
			return nil, err
		}
		if cacheable {
			e.cache.Set(fp, res, res.Size)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.log.Debug("joined in-flight extraction", "file", node.ID)
	}
	return v.(*Result), nil
}

// exportTarget maps a native media type to its export format.
func exportTarget(mimeType string) (string, bool) {
	switch mimeType {
	case drive.MimeDocument:
		return "text/markdown", true
	case drive.MimeSpreadsheet:
		return "text/csv", true
	case drive.MimePresentation:
		return "text/plain", true
	case drive.MimeDrawing:
		return "image/png", true
	}
	// Folders, forms, sites, shortcuts, maps: no text export exists.
	return "", false
}

func (e *Extractor) exportNative(ctx context.Context, node drive.Node) (*Result, error) {
	target, ok := exportTarget(node.MimeType)
	if !ok {
		return nil, fault.New(fault.CodeNotExport, "native type %s has no export target", node.MimeType)
	}

	content, err := e.store.Export(ctx, node.ID, target)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:         node.ID,
		Name:       node.Name,
		MimeType:   node.MimeType,
		Format:     FormatText,
		Size:       int64(len(content)),
		Exported:   true,
		ExportMime: target,
	}
	switch target {
	case "image/png":
		res.Format = FormatBinary
		res.Binary = []byte(content)
	case "text/markdown":
		res.Text = content
		res.Outline = markdownOutline([]byte(content))
	default:
		res.Text = content
	}
	return res, nil
}

// decode downloads and parses regular (non-native) content. The second
// return value reports whether the result should be cached: only parse
// paths are; text and binary passthrough is cheap enough to refetch.
func (e *Extractor) decode(ctx context.Context, node drive.Node) (*Result, bool, error) {
	format := formatFor(node.MimeType, node.Name)

	if format == FormatPDF || format == FormatWorkbook {
		if node.Size > e.cfg.MaxDocumentBytes {
			return nil, false, fault.New(fault.CodeSizeLimit,
				"%s is %.1f MB, over the %.1f MB extraction ceiling",
				node.Name, mb(node.Size), mb(e.cfg.MaxDocumentBytes))
		}
	}

	data, err := e.store.Download(ctx, node.ID)
	if err != nil {
		return nil, false, err
	}

	res := &Result{
		ID:       node.ID,
		Name:     node.Name,
		MimeType: node.MimeType,
		Format:   format,
		Size:     int64(len(data)),
	}

	switch format {
	case FormatPDF:
		if err := e.decodePDF(res, data); err != nil {
			return nil, false, err
		}
		return res, true, nil
	case FormatWorkbook:
		if err := decodeWorkbook(res, data); err != nil {
			return nil, false, err
		}
		return res, true, nil
	case FormatDocx:
		if err := decodeDocx(res, data); err != nil {
			return nil, false, err
		}
		return res, true, nil
	case FormatHTML:
		if err := decodeHTML(res, data); err != nil {
			return nil, false, err
		}
		return res, true, nil
	case FormatText:
		res.Text = string(data)
		return res, false, nil
	default:
		res.Binary = data
		return res, false, nil
	}
}

func mb(n int64) float64 {
	return float64(n) / (1 << 20)
}
