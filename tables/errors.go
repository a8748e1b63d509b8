package tables

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned when a row's column count or a typed
// column does not match its schema.
var ErrMalformedRecord = errors.New("malformed record")

// ErrInvalidName is returned for resource names that could escape the
// source root.
var ErrInvalidName = errors.New("invalid table name")

// ErrReadOnly is returned when a write is attempted on a source that
// cannot be written.
var ErrReadOnly = errors.New("table source is read-only")

// FetchError reports a failed retrieval of a named resource.
type FetchError struct {
	Name   string
	Status int // HTTP status, 0 when not applicable
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Name, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RowError describes one row skipped during decoding.
type RowError struct {
	Schema string
	Line   int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Schema, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
