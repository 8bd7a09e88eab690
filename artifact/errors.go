package artifact

import (
	"errors"
	"fmt"

	"github.com/hupe1980/songrec/blobstore"
)

// Kind classifies an artifact failure.
type Kind int

const (
	// KindMissing means the artifact could not be fetched.
	KindMissing Kind = iota
	// KindMalformed means the artifact was fetched but could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error reports an artifact that could not be loaded.
//
// The original underlying error can be accessed via errors.Unwrap, so
// errors.As(err, new(*index.MalformedRowError)) still finds a corrupt index row.
type Error struct {
	Kind Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("artifact %s: %s: %v", e.Name, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// missing wraps a fetch error; anything else from the store is still a
// missing artifact from the caller's point of view.
func missing(name string, err error) error {
	return &Error{Kind: KindMissing, Name: name, Err: err}
}

func malformed(name string, err error) error {
	return &Error{Kind: KindMalformed, Name: name, Err: err}
}

// IsNotFound reports whether err means a blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, blobstore.ErrNotFound)
}
