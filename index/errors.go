package index

import (
	"errors"
	"fmt"
)

// ErrNoVectorColumns is returned when a header carries no latent_<i> columns.
var ErrNoVectorColumns = errors.New("index: header has no latent vector columns")

var errNonFinite = errors.New("non-finite value")

// HeaderError describes an unusable header row.
type HeaderError struct {
	Column string
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("index: bad header column %q: %s", e.Column, e.Reason)
}

// MalformedRowError reports a data row that cannot be loaded.
// The index is treated as corrupt; loading stops at the first such row.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type MalformedRowError struct {
	Row    int    // 1-based data row number (header excluded)
	Column string // offending column, empty for structural errors
	Value  string
	cause  error
}

func (e *MalformedRowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("index: malformed row %d: %v", e.Row, e.cause)
	}
	return fmt.Sprintf("index: malformed row %d: column %q value %q: %v", e.Row, e.Column, e.Value, e.cause)
}

func (e *MalformedRowError) Unwrap() error { return e.cause }
