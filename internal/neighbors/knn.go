package neighbors

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/errors"
)

// DefaultK is the neighbour count used when K is not positive.
const DefaultK = 5

type index struct {
	X *mat.Dense
	k int
}

func (ix *index) fit(X *mat.Dense, k int) {
	if k <= 0 {
		k = DefaultK
	}
	rows, _ := X.Dims()
	ix.X = mat.DenseCopyOf(X)
	ix.k = min(k, rows)
}

// nearest returns the row indices of the k training rows closest to q.
// Equal distances keep training order.
func (ix *index) nearest(q []float64) []int {
	rows, _ := ix.X.Dims()
	type candidate struct {
		row  int
		dist float64
	}
	candidates := make([]candidate, rows)
	for i := 0; i < rows; i++ {
		candidates[i] = candidate{row: i, dist: floats.Distance(ix.X.RawRowView(i), q, 2)}
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.dist, b.dist)
	})

	out := make([]int, ix.k)
	for i := range out {
		out[i] = candidates[i].row
	}
	return out
}

func (ix *index) width() int {
	_, cols := ix.X.Dims()
	return cols
}

// KNNRegressor predicts the mean target of the K nearest training rows.
// K is capped at the number of training rows.
type KNNRegressor struct {
	K int

	ix *index
	y  []float64
}

// NewKNNRegressor creates a regressor over k neighbours.
func NewKNNRegressor(k int) *KNNRegressor {
	return &KNNRegressor{K: k}
}

// Fit stores the training data.
func (r *KNNRegressor) Fit(X *mat.Dense, y []float64) error {
	if err := checkTraining("KNNRegressor.Fit", X, len(y)); err != nil {
		return err
	}
	r.ix = &index{}
	r.ix.fit(X, r.K)
	r.y = append([]float64(nil), y...)
	return nil
}

// Predict returns one prediction per row of X.
func (r *KNNRegressor) Predict(X *mat.Dense) ([]float64, error) {
	const op = "KNNRegressor.Predict"
	if r.ix == nil {
		return nil, errors.NewNotFittedError(op)
	}
	rows, err := checkQuery(op, X, r.ix.width())
	if err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	targets := make([]float64, r.ix.k)
	for i := 0; i < rows; i++ {
		for j, row := range r.ix.nearest(X.RawRowView(i)) {
			targets[j] = r.y[row]
		}
		out[i] = mean(targets)
	}
	return out, nil
}

// KNNClassifier predicts the majority label of the K nearest training rows.
// Vote ties go to the lexicographically smallest label.
type KNNClassifier struct {
	K int

	ix *index
	y  []string
}

// NewKNNClassifier creates a classifier over k neighbours.
func NewKNNClassifier(k int) *KNNClassifier {
	return &KNNClassifier{K: k}
}

// Fit stores the training data.
func (c *KNNClassifier) Fit(X *mat.Dense, y []string) error {
	if err := checkTraining("KNNClassifier.Fit", X, len(y)); err != nil {
		return err
	}
	c.ix = &index{}
	c.ix.fit(X, c.K)
	c.y = append([]string(nil), y...)
	return nil
}

// Predict returns one label per row of X.
func (c *KNNClassifier) Predict(X *mat.Dense) ([]string, error) {
	const op = "KNNClassifier.Predict"
	if c.ix == nil {
		return nil, errors.NewNotFittedError(op)
	}
	rows, err := checkQuery(op, X, c.ix.width())
	if err != nil {
		return nil, err
	}

	out := make([]string, rows)
	labels := make([]string, c.ix.k)
	for i := 0; i < rows; i++ {
		for j, row := range c.ix.nearest(X.RawRowView(i)) {
			labels[j] = c.y[row]
		}
		out[i] = mostFrequent(labels)
	}
	return out, nil
}
