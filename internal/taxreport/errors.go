package taxreport

import (
	"errors"
	"fmt"
)

// Common tax report errors
var (
	// ErrEmptyInput is returned when there is no charge with an owner to aggregate.
	// Totals take their currency from the first charge, so an empty run has no
	// defined currency and is rejected before any arithmetic happens.
	ErrEmptyInput = errors.New("no charges with an owner to aggregate")

	// ErrMixedCurrency is returned by the pipeline in strict mode when the
	// payload contains charges settled in a different currency than the first one.
	ErrMixedCurrency = errors.New("charges settled in more than one currency")
)

// AggregationError wraps errors with additional context about a failed report run.
type AggregationError struct {
	// Op is the operation that failed (e.g., "Aggregate", "Run").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("taxreport: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("taxreport: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *AggregationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAggregationError creates a new AggregationError with the specified operation and underlying error.
func NewAggregationError(op string, err error, details string) *AggregationError {
	return &AggregationError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapAggregationError wraps an error as an AggregationError if it isn't already one.
func WrapAggregationError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var aggErr *AggregationError
	if errors.As(err, &aggErr) {
		return err
	}

	return NewAggregationError(op, err, details)
}
