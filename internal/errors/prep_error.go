// Package errors provides standardized error types for preprocessing operations.
// PrepError carries the operation, the affected column and a Kind used to
// classify failures, with error wrapping support for errors.Is / errors.As.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a PrepError.
type Kind int

const (
	// KindInternal is an unexpected failure inside the library.
	KindInternal Kind = iota
	// KindConfiguration is an invalid hyperparameter, token or key configuration.
	KindConfiguration
	// KindMissingData is raised when missing cells are found under the "error" policy.
	KindMissingData
	// KindNotFitted is raised when a transformer is used before Fit.
	KindNotFitted
	// KindEstimatorFailure wraps a per-column estimator fit or predict failure.
	KindEstimatorFailure
	// KindValidation is an input shape or content problem.
	KindValidation
	// KindColumnNotFound is raised for operations on non-existent columns.
	KindColumnNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindMissingData:
		return "missing data"
	case KindNotFitted:
		return "not fitted"
	case KindEstimatorFailure:
		return "estimator failure"
	case KindValidation:
		return "validation"
	case KindColumnNotFound:
		return "column not found"
	default:
		return "internal"
	}
}

// PrepError represents standardized errors across all preprocessing operations
type PrepError struct {
	Kind    Kind
	Op      string // Operation name (e.g., "MinHashEncoder.Fit", "InterpolationJoiner.Transform")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *PrepError) Error() string {
	var msg string
	if e.Column != "" {
		msg = fmt.Sprintf("%s failed on column '%s': %s", e.Op, e.Column, e.Message)
	} else {
		msg = fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PrepError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind matches every error of that kind.
func (e *PrepError) Is(target error) bool {
	pe, ok := target.(*PrepError)
	if !ok {
		return false
	}
	if pe.Op == "" && pe.Column == "" && pe.Message == "" && pe.Cause == nil {
		return e.Kind == pe.Kind
	}
	return e.Kind == pe.Kind && e.Op == pe.Op && e.Column == pe.Column && e.Message == pe.Message
}

// Sentinels for errors.Is checks by kind.
var (
	ErrConfiguration    = &PrepError{Kind: KindConfiguration}
	ErrMissingData      = &PrepError{Kind: KindMissingData}
	ErrNotFitted        = &PrepError{Kind: KindNotFitted}
	ErrEstimatorFailure = &PrepError{Kind: KindEstimatorFailure}
	ErrValidation       = &PrepError{Kind: KindValidation}
	ErrColumnNotFound   = &PrepError{Kind: KindColumnNotFound}
)

// NewConfigurationError creates an error for an invalid configuration.
func NewConfigurationError(op, message string) *PrepError {
	return &PrepError{
		Kind:    KindConfiguration,
		Op:      op,
		Message: message,
	}
}

// NewChoiceError creates a configuration error for a token outside the accepted set.
// The message lists the accepted values in sorted order.
func NewChoiceError(op, param, got string, accepted []string) *PrepError {
	sorted := append([]string(nil), accepted...)
	sort.Strings(sorted)
	return &PrepError{
		Kind:    KindConfiguration,
		Op:      op,
		Message: fmt.Sprintf("Got %s=%q, expected any of [%s]", param, got, strings.Join(sorted, " ")),
	}
}

// NewMissingDataError creates an error for missing cells under the "error" policy
func NewMissingDataError(op, column string) *PrepError {
	return &PrepError{
		Kind:    KindMissingData,
		Op:      op,
		Column:  column,
		Message: "Found missing values in input data; set handle_missing='zero_impute' to encode with missing values",
	}
}

// NewNotFittedError creates an error for use of an unfitted transformer
func NewNotFittedError(op string) *PrepError {
	return &PrepError{
		Kind:    KindNotFitted,
		Op:      op,
		Message: "this instance is not fitted yet; call Fit before using it",
	}
}

// NewEstimatorFailure wraps an estimator error for a single column
func NewEstimatorFailure(op, column, message string, cause error) *PrepError {
	return &PrepError{
		Kind:    KindEstimatorFailure,
		Op:      op,
		Column:  column,
		Message: message,
		Cause:   cause,
	}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *PrepError {
	return &PrepError{
		Kind:    KindColumnNotFound,
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *PrepError {
	return &PrepError{
		Kind:    KindValidation,
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *PrepError {
	return &PrepError{
		Kind:    KindInternal,
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
