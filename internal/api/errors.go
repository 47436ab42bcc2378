package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Stable error codes assigned client-side. The backend only ships a
// human-readable message, so callers branch on these instead of matching
// strings.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeServerError       = "server_error"
	CodeNetwork           = "network"
	CodeMalformedResponse = "malformed_response"
)

// Error is a failed backend call. Message carries the backend-provided text
// when present, else a generic fallback suitable for direct display.
type Error struct {
	Status  int    // HTTP status, 0 for network failures
	Code    string // one of the Code constants
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend, meaning the
// credential must be cleared and the user sent back to login.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsForbidden reports whether err is a 403 role rejection.
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// IsConflict reports whether the backend rejected a state transition
// (already joined, already resolved, not your team). Never retried.
func IsConflict(err error) bool {
	return hasCode(err, CodeConflict)
}

// IsNotFound reports whether the target entity does not exist.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

func hasCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// codeForStatus maps an HTTP status to a stable client code.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	}
	if status >= 500 {
		return CodeServerError
	}
	return CodeBadRequest
}

// classifyNetworkError categorizes a transport-level failure.
func classifyNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Op == "dial" {
			return "connection_refused"
		}
		return "network"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	return "other"
}
