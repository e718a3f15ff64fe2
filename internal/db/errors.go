// Package db holds the error vocabulary shared by search backend stores.
package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrBackendStatus = errors.New("backend returned non-success status")
	ErrDecode        = errors.New("decode backend response")
)

// Op constants name the backend endpoint for error context.
const (
	OpSearch = "_search"
	OpPing   = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
