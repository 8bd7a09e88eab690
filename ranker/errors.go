package ranker

import (
	"errors"
	"fmt"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("ranker: k must be positive")

// DimensionMismatchError is returned when the query dimension differs from
// the store dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("ranker: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
