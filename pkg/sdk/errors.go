package searchgate

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by *APIError. Use errors.Is() to check.
var (
	// ErrBadQuery signals that the gateway could not read the query document.
	ErrBadQuery = errors.New("bad query")
	// ErrQueryFailed signals a transport, backend or decoding failure behind the gateway.
	ErrQueryFailed = errors.New("query failed")
	// ErrNotReady signals that the gateway cannot reach its search backend.
	ErrNotReady = errors.New("not ready")
)

// APIError is a non-success response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("searchgate: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }
