// Package validation provides input validation utilities for preprocessing
// operations: column existence, length consistency and configuration tokens.
package validation

import (
	"fmt"
	"slices"

	"github.com/paveg/tabprep/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(df ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks if all columns exist in the table
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.df.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// LengthValidator validates array length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		context:  context,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		message := fmt.Sprintf("%s: expected length %d, got %d", v.context, v.expected, v.actual)
		return errors.NewValidationError(v.op, "", message)
	}
	return nil
}

// ChoiceValidator validates that a configuration token is one of the accepted values
type ChoiceValidator struct {
	param    string
	value    string
	accepted []string
	op       string
}

// NewChoiceValidator creates a validator for an enumerated configuration token
func NewChoiceValidator(op, param, value string, accepted ...string) *ChoiceValidator {
	return &ChoiceValidator{
		param:    param,
		value:    value,
		accepted: accepted,
		op:       op,
	}
}

// Validate checks the token against the accepted set
func (v *ChoiceValidator) Validate() error {
	if slices.Contains(v.accepted, v.value) {
		return nil
	}
	return errors.NewChoiceError(v.op, v.param, v.value, v.accepted)
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateColumns is a convenience function for column validation
func ValidateColumns(df ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(df, op, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateChoice is a convenience function for token validation
func ValidateChoice(op, param, value string, accepted ...string) error {
	return NewChoiceValidator(op, param, value, accepted...).Validate()
}
