package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a match identifier has no correlation record.
var ErrNotFound = errors.New("not found")

// IndexOpenError reports an index that is missing, corrupt or unreadable.
type IndexOpenError struct {
	Path string
	Err  error
}

func (e *IndexOpenError) Error() string {
	return fmt.Sprintf("failed to open index at %s: %v", e.Path, e.Err)
}

func (e *IndexOpenError) Unwrap() error {
	return e.Err
}

// PatternError reports a query that could not be turned into a matcher.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid search pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// IndexQueryError reports an index scan that could not be started.
type IndexQueryError struct {
	Pattern string
	Err     error
}

func (e *IndexQueryError) Error() string {
	return fmt.Sprintf("failed to query index for %q: %v", e.Pattern, e.Err)
}

func (e *IndexQueryError) Unwrap() error {
	return e.Err
}

// RecordError reports a single malformed index record. It is always
// recoverable: the record is skipped and the scan continues.
type RecordError struct {
	Row int64
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed index record %d: %v", e.Row, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
