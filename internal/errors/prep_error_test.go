package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/tabprep/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestPrepError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.PrepError
		expected string
	}{
		{
			name: "error with column",
			err: &errors.PrepError{
				Op:      "Transform",
				Column:  "city",
				Message: "column does not exist",
			},
			expected: "Transform failed on column 'city': column does not exist",
		},
		{
			name: "error without column",
			err: &errors.PrepError{
				Op:      "Fit",
				Message: "bad input",
			},
			expected: "Fit failed: bad input",
		},
		{
			name: "error with cause",
			err: &errors.PrepError{
				Op:      "Fit",
				Column:  "climate",
				Message: "estimator failed",
				Cause:   stderrors.New("boom"),
			},
			expected: "Fit failed on column 'climate': estimator failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestPrepError_IsByKind(t *testing.T) {
	err := errors.NewChoiceError("MinHashEncoder.Fit", "hashing", "aaa", []string{"murmur", "fast"})
	wrapped := fmt.Errorf("wrapped: %w", err)

	assert.ErrorIs(t, wrapped, errors.ErrConfiguration)
	assert.NotErrorIs(t, wrapped, errors.ErrMissingData)
	assert.Contains(t, err.Error(), `Got hashing="aaa", expected any of [fast murmur]`)
}

func TestPrepError_IsExact(t *testing.T) {
	a := errors.NewColumnNotFoundError("Select", "x")
	b := errors.NewColumnNotFoundError("Select", "x")
	c := errors.NewColumnNotFoundError("Select", "y")

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestPrepError_Unwrap(t *testing.T) {
	cause := stderrors.New("FailFit failed")
	err := errors.NewEstimatorFailure("Fit", "climate", "estimator failed to fit", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errors.ErrEstimatorFailure)
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, errors.KindMissingData, errors.NewMissingDataError("Fit", "a").Kind)
	assert.Equal(t, errors.KindNotFitted, errors.NewNotFittedError("Transform").Kind)
	assert.Equal(t, errors.KindValidation, errors.NewValidationError("Transform", "a", "m").Kind)
	assert.Equal(t, errors.KindInternal, errors.NewInternalError("op", nil).Kind)
	assert.Equal(t, "configuration", errors.KindConfiguration.String())
	assert.Contains(t, errors.NewMissingDataError("Fit", "a").Error(), "Found missing values in input data; set")
}
