package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrCollectionNotFound signals a missing vector collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidConfig signals a configuration error; fatal at startup.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidArgument signals a malformed call argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrUnsupportedFormat signals a source file no parser can read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a language model provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)

// DimensionMismatchError reports a vector whose length differs from the collection dimension.
// It matches both ErrVectorDimMismatch and ErrInvalidConfig.
type DimensionMismatchError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: collection %q expects %d, got %d",
		ErrVectorDimMismatch.Error(), e.Collection, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() []error {
	return []error{ErrVectorDimMismatch, ErrInvalidConfig}
}

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(collection string, expected, actual int) error {
	return &DimensionMismatchError{Collection: collection, Expected: expected, Actual: actual}
}
