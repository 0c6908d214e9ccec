// Package fault carries the classified error taxonomy shared by every
// drivescope component. A Fault pairs a stable code with a user-facing
// message and an optional remediation hint; the underlying cause is kept
// for wrapping.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code identifies an error class.
type Code string

const (
	CodeAuth        Code = "AUTH_ERROR"
	CodePermission  Code = "PERMISSION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeRateLimit   Code = "RATE_LIMIT"
	CodeNetwork     Code = "NETWORK_ERROR"
	CodeQuota       Code = "QUOTA_EXCEEDED"
	CodeOutOfScope  Code = "OUT_OF_SCOPE"
	CodeSizeLimit   Code = "SIZE_LIMIT_EXCEEDED"
	CodeEncrypted   Code = "ENCRYPTED_DOCUMENT"
	CodeScanned     Code = "SCANNED_DOCUMENT"
	CodeParse       Code = "PARSE_ERROR"
	CodeNotExport   Code = "NOT_EXPORTABLE"
	CodeNotStream   Code = "NOT_STREAMABLE"
	CodeInvalidRange Code = "INVALID_RANGE"
	CodeUnknown     Code = "UNKNOWN"
)

// Fault is a classified error.
type Fault struct {
	Code    Code
	Message string
	Hint    string // remediation suggestion, may be empty
	Err     error  // underlying cause, may be nil
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// New creates a Fault with no underlying cause.
func New(code Code, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...), Hint: defaultHint(code)}
}

// Wrap creates a Fault around an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...), Hint: defaultHint(code), Err: err}
}

// WithHint replaces the remediation hint.
func (f *Fault) WithHint(hint string) *Fault {
	f.Hint = hint
	return f
}

// CodeOf extracts the code from an error chain; non-Fault errors are UNKNOWN.
func CodeOf(err error) Code {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return CodeUnknown
}

// Retryable reports whether the error class is worth retrying. Only rate
// limits and transient network failures qualify.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeRateLimit, CodeNetwork:
		return true
	}
	return false
}

// FromStatus classifies a remote-store HTTP status into a Fault. The body
// excerpt is included in the message for diagnostics.
func FromStatus(status int, body string) *Fault {
	switch {
	case status == http.StatusUnauthorized:
		return New(CodeAuth, "authentication failed (status %d)", status)
	case status == http.StatusForbidden:
		if strings.Contains(strings.ToLower(body), "quota") {
			return New(CodeQuota, "storage quota exceeded (status %d)", status)
		}
		return New(CodePermission, "permission denied (status %d)", status)
	case status == http.StatusNotFound:
		return New(CodeNotFound, "resource not found (status %d)", status)
	case status == http.StatusTooManyRequests:
		return New(CodeRateLimit, "rate limit exceeded (status %d)", status)
	case status >= 500:
		return New(CodeNetwork, "remote store error (status %d): %s", status, body)
	default:
		return New(CodeUnknown, "unexpected status %d: %s", status, body)
	}
}

// defaultHint mirrors the remediation suggestions shown to users per class.
func defaultHint(code Code) string {
	switch code {
	case CodeAuth:
		return "Re-authenticate and provide a fresh access token."
	case CodePermission:
		return "Check that the file or folder is shared with your account."
	case CodeNotFound:
		return "Verify the file or folder ID is correct."
	case CodeRateLimit:
		return "Wait a few minutes before trying again."
	case CodeNetwork:
		return "Check your connection and try again."
	case CodeQuota:
		return "Free up storage space in the remote store."
	case CodeOutOfScope:
		return "Only files under the configured root folder can be read."
	case CodeSizeLimit:
		return "Reduce the file size, raise the configured ceiling, or use drive_read_large_file."
	case CodeEncrypted:
		return "Remove the document password and try again."
	case CodeScanned:
		return "The document contains no extractable text; run OCR first."
	case CodeParse:
		return "The file may be corrupted; re-download it and verify it opens locally."
	case CodeNotExport:
		return "This native file type has no text export."
	case CodeNotStream:
		return "Native documents are not byte-addressable; use drive_read_file instead."
	case CodeInvalidRange:
		return "start_byte must lie within the file."
	}
	return ""
}
