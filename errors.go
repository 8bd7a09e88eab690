package songrec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/songrec/artifact"
	"github.com/hupe1980/songrec/embed"
	"github.com/hupe1980/songrec/index"
	"github.com/hupe1980/songrec/internal/resource"
	"github.com/hupe1980/songrec/ranker"
)

var (
	// ErrMissingArtifact is returned when an artifact is absent or unreadable.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrMalformedIndex is returned when the latent index cannot be parsed.
	ErrMalformedIndex = errors.New("malformed index")

	// ErrEmbedding is returned when the embedding generator fails.
	ErrEmbedding = errors.New("embedding generator failed")

	// ErrInvalidRequest is returned for requests that fail validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrOverloaded is returned when a resource limit rejects the request.
	ErrOverloaded = errors.New("service overloaded")
)

// ValidationError lists the request fields that failed validation.
//
// errors.Is(err, ErrInvalidRequest) reports true for every ValidationError.
type ValidationError struct {
	Fields []FieldError
	cause  error
}

// FieldError is one failed field constraint.
type FieldError struct {
	Field string // JSON name
	Tag   string // failed constraint, e.g. "max"
	Param string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid request: %v", e.cause)
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Param != "" {
			msgs[i] = fmt.Sprintf("%s: %s=%s", f.Field, f.Tag, f.Param)
		} else {
			msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Tag)
		}
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

func (e *ValidationError) Unwrap() error { return e.cause }

func newValidationError(err error) *ValidationError {
	ve := &ValidationError{cause: err}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
		}
	}
	return ve
}

// ErrDimensionMismatch indicates a generator output that does not match the index.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Catalog failures.
	var rowErr *index.MalformedRowError
	if errors.As(err, &rowErr) {
		return fmt.Errorf("%w: %w", ErrMalformedIndex, err)
	}
	var headerErr *index.HeaderError
	if errors.As(err, &headerErr) || errors.Is(err, index.ErrNoVectorColumns) {
		return fmt.Errorf("%w: %w", ErrMalformedIndex, err)
	}
	var ae *artifact.Error
	if errors.As(err, &ae) {
		return fmt.Errorf("%w: %w", ErrMissingArtifact, err)
	}

	// Generator failures.
	var ee *embed.Error
	if errors.As(err, &ee) || errors.Is(err, embed.ErrBreakerOpen) {
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	var dm *ranker.DimensionMismatchError
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: fmt.Errorf("%w: %w", ErrEmbedding, err)}
	}

	if errors.Is(err, ranker.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, resource.ErrRateLimited) || errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrOverloaded, err)
	}
	return err
}
