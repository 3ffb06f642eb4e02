package neighbors

import (
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/errors"
)

// DummyRegressor always predicts the training mean.
type DummyRegressor struct {
	value  float64
	fitted bool
}

// Fit records the mean of y.
func (r *DummyRegressor) Fit(X *mat.Dense, y []float64) error {
	if err := checkTraining("DummyRegressor.Fit", X, len(y)); err != nil {
		return err
	}
	r.value = mean(y)
	r.fitted = true
	return nil
}

// Predict returns the training mean for every row.
func (r *DummyRegressor) Predict(X *mat.Dense) ([]float64, error) {
	if !r.fitted {
		return nil, errors.NewNotFittedError("DummyRegressor.Predict")
	}
	rows, err := checkQuery("DummyRegressor.Predict", X, -1)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = r.value
	}
	return out, nil
}

// DummyClassifier always predicts the most frequent training label.
type DummyClassifier struct {
	label  string
	fitted bool
}

// Fit records the most frequent label of y.
func (c *DummyClassifier) Fit(X *mat.Dense, y []string) error {
	if err := checkTraining("DummyClassifier.Fit", X, len(y)); err != nil {
		return err
	}
	c.label = mostFrequent(y)
	c.fitted = true
	return nil
}

// Predict returns the most frequent training label for every row.
func (c *DummyClassifier) Predict(X *mat.Dense) ([]string, error) {
	if !c.fitted {
		return nil, errors.NewNotFittedError("DummyClassifier.Predict")
	}
	rows, err := checkQuery("DummyClassifier.Predict", X, -1)
	if err != nil {
		return nil, err
	}
	out := make([]string, rows)
	for i := range out {
		out[i] = c.label
	}
	return out, nil
}
