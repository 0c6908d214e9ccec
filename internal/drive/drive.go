// Package drive is the HTTP client for the remote file store. It exposes
// the narrow read-only surface the rest of the service consumes: metadata,
// content, byte ranges, native exports, and child listings.
package drive

import "strings"

// Native media types of the store's own document family.
const (
	MimeFolder       = "application/vnd.google-apps.folder"
	MimeDocument     = "application/vnd.google-apps.document"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePresentation = "application/vnd.google-apps.presentation"
	MimeDrawing      = "application/vnd.google-apps.drawing"

	nativePrefix = "application/vnd.google-apps"
)

// IsNative reports whether the media type belongs to the store's native
// document family (not byte-addressable, read via export only).
func IsNative(mimeType string) bool {
	return strings.HasPrefix(mimeType, nativePrefix)
}

// Node is an immutable metadata snapshot of a store node. It is fetched per
// operation and never cached; only derived extraction results are.
type Node struct {
	ID           string
	Name         string
	MimeType     string
	Size         int64
	ModifiedTime string
	Parents      []string
}

// IsFolder reports whether the node is a folder.
func (n Node) IsFolder() bool { return n.MimeType == MimeFolder }
