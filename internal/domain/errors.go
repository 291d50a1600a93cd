package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidFilter signals a malformed filter value.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidPartnership signals missing mandatory creation fields.
	ErrInvalidPartnership = errors.New("razao_social and objeto are required")
	// ErrDimensionMismatch signals vectors of different embedding versions
	// entering the same comparison. Always an internal invariant violation.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorAbsent signals a record with no stored embedding of any version.
	ErrVectorAbsent = errors.New("no embedding stored for record")
)

// DimensionMismatchError wraps ErrDimensionMismatch with both dimensions.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: query has %d dims, candidate has %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}
