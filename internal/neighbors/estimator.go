// Package neighbors provides the estimator contract used by the
// interpolation join and its default implementations: brute-force
// k-nearest-neighbour regression and classification over Euclidean
// distance, and constant-prediction dummy estimators.
package neighbors

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/errors"
)

// Regressor predicts a float target from a feature matrix.
type Regressor interface {
	Fit(X *mat.Dense, y []float64) error
	Predict(X *mat.Dense) ([]float64, error)
}

// Classifier predicts a string label from a feature matrix.
type Classifier interface {
	Fit(X *mat.Dense, y []string) error
	Predict(X *mat.Dense) ([]string, error)
}

// RegressorFactory builds a fresh, unfit Regressor.
type RegressorFactory func() Regressor

// ClassifierFactory builds a fresh, unfit Classifier.
type ClassifierFactory func() Classifier

func checkTraining(op string, X *mat.Dense, n int) error {
	if X == nil {
		return errors.NewValidationError(op, "", "feature matrix is nil")
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return errors.NewValidationError(op, "", "cannot fit on zero samples")
	}
	if rows != n {
		return errors.NewValidationError(op, "",
			fmt.Sprintf("X has %d rows but y has %d values", rows, n))
	}
	return nil
}

// checkQuery returns the row count of X; a negative width skips the feature check.
func checkQuery(op string, X *mat.Dense, width int) (int, error) {
	if X == nil {
		return 0, errors.NewValidationError(op, "", "feature matrix is nil")
	}
	rows, cols := X.Dims()
	if width >= 0 && rows > 0 && cols != width {
		return 0, errors.NewValidationError(op, "",
			fmt.Sprintf("X has %d features, expected %d", cols, width))
	}
	return rows, nil
}

func mean[T constraints.Integer | constraints.Float](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
}

// mostFrequent returns the label with the highest count; ties go to the
// lexicographically smallest label.
func mostFrequent(labels []string) string {
	counts := make(map[string]int, len(labels))
	best, bestCount := "", 0
	for _, l := range labels {
		counts[l]++
	}
	for l, c := range counts {
		if c > bestCount || c == bestCount && l < best {
			best, bestCount = l, c
		}
	}
	return best
}
