package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dgallion1/drivescope/internal/fault"
)

// Client communicates with the store's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger

	maxRetries int
	retryDelay time.Duration
}

// Options tunes client behavior; zero values pick the defaults.
type Options struct {
	MaxRetries int           // default 3
	RetryDelay time.Duration // base delay, grows linearly per attempt; default 1s
	Timeout    time.Duration // per-request; default 30s
}

func NewClient(baseURL, token string, log *slog.Logger, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        log,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

// nodeJSON is the wire shape of file metadata. Size arrives as a string.
type nodeJSON struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Size         string   `json:"size"`
	ModifiedTime string   `json:"modifiedTime"`
	Parents      []string `json:"parents"`
}

func (n nodeJSON) toNode() Node {
	size, _ := strconv.ParseInt(n.Size, 10, 64)
	return Node{
		ID:           n.ID,
		Name:         n.Name,
		MimeType:     n.MimeType,
		Size:         size,
		ModifiedTime: n.ModifiedTime,
		Parents:      n.Parents,
	}
}

// GetMetadata fetches a node's metadata snapshot.
func (c *Client) GetMetadata(ctx context.Context, id string) (Node, error) {
	var node Node
	err := c.withRetry(ctx, "get metadata", func() error {
		u := fmt.Sprintf("%s/files/%s?fields=%s&supportsAllDrives=true",
			c.baseURL, url.PathEscape(id),
			url.QueryEscape("id,name,mimeType,size,modifiedTime,parents"))
		resp, err := c.do(ctx, u, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var nj nodeJSON
		if err := json.NewDecoder(resp.Body).Decode(&nj); err != nil {
			return fault.Wrap(fault.CodeNetwork, err, "decode metadata for %s", id)
		}
		node = nj.toNode()
		return nil
	})
	return node, err
}

// Download fetches the full raw bytes of a node.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, "download", func() error {
		u := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true", c.baseURL, url.PathEscape(id))
		resp, err := c.do(ctx, u, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fault.Wrap(fault.CodeNetwork, err, "read content of %s", id)
		}
		return nil
	})
	return data, err
}

// DownloadRange fetches bytes [start, end] of a node as a stream. The
// caller owns the returned body and must close it. Range fetches are not
// retried past connection establishment: a broken stream surfaces to the
// caller, who re-requests the same window.
func (c *Client) DownloadRange(ctx context.Context, id string, start, end int64) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := c.withRetry(ctx, "download range", func() error {
		u := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true", c.baseURL, url.PathEscape(id))
		resp, err := c.do(ctx, u, map[string]string{
			"Range": fmt.Sprintf("bytes=%d-%d", start, end),
		})
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Export converts a native document to the target media type and returns
// the exported text.
func (c *Client) Export(ctx context.Context, id, mimeType string) (string, error) {
	var text string
	err := c.withRetry(ctx, "export", func() error {
		u := fmt.Sprintf("%s/files/%s/export?mimeType=%s", c.baseURL, url.PathEscape(id), url.QueryEscape(mimeType))
		resp, err := c.do(ctx, u, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fault.Wrap(fault.CodeNetwork, err, "read export of %s", id)
		}
		text = string(data)
		return nil
	})
	return text, err
}

// ListChildren lists direct children of a folder, optionally restricted to
// folders. pageSize caps the number of entries returned.
func (c *Client) ListChildren(ctx context.Context, folderID string, foldersOnly bool, pageSize int) ([]Node, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	if foldersOnly {
		q += fmt.Sprintf(" and mimeType = '%s'", MimeFolder)
	}

	var nodes []Node
	err := c.withRetry(ctx, "list children", func() error {
		u := fmt.Sprintf("%s/files?q=%s&fields=%s&pageSize=%d&supportsAllDrives=true&includeItemsFromAllDrives=true",
			c.baseURL, url.QueryEscape(q),
			url.QueryEscape("files(id,name,mimeType,size,modifiedTime,parents)"), pageSize)
		resp, err := c.do(ctx, u, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var result struct {
			Files []nodeJSON `json:"files"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fault.Wrap(fault.CodeNetwork, err, "decode children of %s", folderID)
		}
		nodes = nodes[:0]
		for _, nj := range result.Files {
			nodes = append(nodes, nj.toNode())
		}
		return nil
	})
	return nodes, err
}

// do issues an authenticated GET and classifies non-2xx statuses.
func (c *Client) do(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fault.Wrap(fault.CodeUnknown, err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.CodeNetwork, err, "request %s", req.URL.Path)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return nil, fault.FromStatus(resp.StatusCode, string(body))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
