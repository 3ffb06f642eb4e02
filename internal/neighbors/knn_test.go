package neighbors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/neighbors"
)

// Weather stations and two buildings, keyed by (latitude, longitude).
var (
	stations  = mat.NewDense(4, 2, []float64{1.2, 0.8, 0.9, 1.1, 1.9, 1.8, 1.7, 1.8})
	buildings = mat.NewDense(2, 2, []float64{1.0, 1.0, 2.0, 2.0})
)

func TestKNNRegressor(t *testing.T) {
	r := neighbors.NewKNNRegressor(2)
	require.NoError(t, r.Fit(stations, []float64{10, 11, 15, 16}))

	got, err := r.Predict(buildings)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10.5, 15.5}, got, 1e-12)
}

func TestKNNRegressorCapsK(t *testing.T) {
	r := neighbors.NewKNNRegressor(10)
	require.NoError(t, r.Fit(stations, []float64{10, 11, 15, 16}))

	got, err := r.Predict(buildings)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{13, 13}, got, 1e-12)
}

func TestKNNTiesKeepTrainingOrder(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{-1, 1})
	r := neighbors.NewKNNRegressor(1)
	require.NoError(t, r.Fit(X, []float64{-10, 10}))

	got, err := r.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, []float64{-10}, got)
}

func TestKNNClassifier(t *testing.T) {
	c := neighbors.NewKNNClassifier(2)
	require.NoError(t, c.Fit(stations, []string{"A", "A", "B", "B"}))

	got, err := c.Predict(buildings)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)

	// A split vote goes to the smallest label
	split := neighbors.NewKNNClassifier(2)
	require.NoError(t, split.Fit(stations, []string{"Z", "A", "B", "B"}))
	got, err = split.Predict(buildings)
	require.NoError(t, err)
	assert.Equal(t, "A", got[0])
}

func TestEstimatorErrors(t *testing.T) {
	t.Run("not fitted", func(t *testing.T) {
		_, err := neighbors.NewKNNRegressor(1).Predict(buildings)
		assert.ErrorIs(t, err, errors.ErrNotFitted)
		_, err = neighbors.NewKNNClassifier(1).Predict(buildings)
		assert.ErrorIs(t, err, errors.ErrNotFitted)
		_, err = (&neighbors.DummyRegressor{}).Predict(buildings)
		assert.ErrorIs(t, err, errors.ErrNotFitted)
		_, err = (&neighbors.DummyClassifier{}).Predict(buildings)
		assert.ErrorIs(t, err, errors.ErrNotFitted)
	})

	t.Run("length mismatch", func(t *testing.T) {
		err := neighbors.NewKNNRegressor(1).Fit(stations, []float64{1})
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("no samples", func(t *testing.T) {
		err := neighbors.NewKNNClassifier(1).Fit(&mat.Dense{}, nil)
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("feature mismatch", func(t *testing.T) {
		r := neighbors.NewKNNRegressor(1)
		require.NoError(t, r.Fit(stations, []float64{1, 2, 3, 4}))
		_, err := r.Predict(mat.NewDense(1, 3, nil))
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

func TestDummyEstimators(t *testing.T) {
	r := &neighbors.DummyRegressor{}
	require.NoError(t, r.Fit(stations, []float64{10, 11, 15, 16}))
	got, err := r.Predict(buildings)
	require.NoError(t, err)
	assert.Equal(t, []float64{13, 13}, got)

	c := &neighbors.DummyClassifier{}
	require.NoError(t, c.Fit(stations, []string{"B", "A", "B", "A"}))
	labels, err := c.Predict(buildings)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A"}, labels)
}
