package sptree

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyData is returned when the point matrix has no rows or no columns.
	ErrEmptyData = errors.New("sptree: point matrix must have at least one row and one column")

	// ErrNonFinite is returned when the point matrix contains NaN or Inf.
	ErrNonFinite = errors.New("sptree: point matrix contains non-finite coordinates")

	// ErrInvariantViolation is returned when no child cell accepts a point
	// during insertion. The build is aborted; it indicates a bug, not bad input.
	ErrInvariantViolation = errors.New("sptree: no child accepted point")

	// ErrNotVector is returned when the CSR row offsets are not one-dimensional.
	ErrNotVector = errors.New("sptree: rowP must be a vector")

	// ErrInvalidGraph is returned when the CSR neighbor arrays are inconsistent.
	ErrInvalidGraph = errors.New("sptree: invalid sparse neighbor graph")
)

// ErrDimensionMismatch indicates that a caller-supplied buffer or matrix
// does not have the expected size.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("sptree: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrIndexOutOfRange indicates a point index outside [0, N).
type ErrIndexOutOfRange struct {
	Index int
	N     int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("sptree: point index %d out of range [0, %d)", e.Index, e.N)
}
