package encoder

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/hashcache"
	"github.com/paveg/tabprep/internal/minhash"
	"github.com/paveg/tabprep/internal/monitoring"
)

// MinHashEncoder encodes every column of a table with its own ColumnEncoder
// and concatenates the results in input column order.
type MinHashEncoder struct {
	opts    Options
	columns []*ColumnEncoder
	named   bool // false when fitted on unnamed input; names are then x0, x1, ...
}

// NewMinHashEncoder creates an unfit encoder.
func NewMinHashEncoder(opts Options) *MinHashEncoder {
	return &MinHashEncoder{opts: opts}
}

// Options returns the encoder options.
func (e *MinHashEncoder) Options() Options {
	return e.opts
}

// Fitted reports whether Fit has succeeded.
func (e *MinHashEncoder) Fitted() bool {
	return len(e.columns) > 0
}

// Fit fits one column encoder per column of df.
func (e *MinHashEncoder) Fit(ctx context.Context, df *dataframe.DataFrame) error {
	_, err := e.FitTransform(ctx, df)
	return err
}

// FitTransform fits on df and returns its encoding.
func (e *MinHashEncoder) FitTransform(ctx context.Context, df *dataframe.DataFrame) (*mat.Dense, error) {
	names := df.Columns()
	cells := make([]Cells, len(names))
	for i, name := range names {
		s, _ := df.Column(name)
		cells[i] = CellsFromSeries(s)
	}
	return e.fitCells(ctx, names, true, cells)
}

// FitStrings fits on unnamed columns of raw strings; empty strings are missing.
func (e *MinHashEncoder) FitStrings(ctx context.Context, columns ...[]string) error {
	_, err := e.FitTransformStrings(ctx, columns...)
	return err
}

// FitTransformStrings fits on unnamed string columns and returns their encoding.
func (e *MinHashEncoder) FitTransformStrings(ctx context.Context, columns ...[]string) (*mat.Dense, error) {
	names := make([]string, len(columns))
	cells := make([]Cells, len(columns))
	for i, col := range columns {
		names[i] = fmt.Sprintf("x%d", i)
		cells[i] = CellsFromStrings(col)
	}
	return e.fitCells(ctx, names, false, cells)
}

func (e *MinHashEncoder) fitCells(ctx context.Context, names []string, named bool, cells []Cells) (*mat.Dense, error) {
	const op = "MinHashEncoder.Fit"
	if len(cells) == 0 {
		return nil, errors.NewValidationError(op, "", "input has no columns")
	}

	columns := make([]*ColumnEncoder, len(cells))
	blocks := make([]*mat.Dense, len(cells))
	err := monitoring.RecordGlobalOperation(op, cells[0].Len(), func() error {
		for i := range cells {
			columns[i] = NewColumnEncoder(names[i], e.opts)
			block, err := columns[i].FitTransform(ctx, cells[i])
			if err != nil {
				return err
			}
			blocks[i] = block
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.columns = columns
	e.named = named
	return hstack(blocks), nil
}

// Transform encodes the fitted columns of df. Encoders fitted on named
// input select columns by name; otherwise columns are taken by position.
func (e *MinHashEncoder) Transform(ctx context.Context, df *dataframe.DataFrame) (*mat.Dense, error) {
	const op = "MinHashEncoder.Transform"
	if !e.Fitted() {
		return nil, errors.NewNotFittedError(op)
	}

	var names []string
	if e.named {
		names = e.FeatureNamesIn()
		if _, err := df.SelectStrict(op, names...); err != nil {
			return nil, err
		}
	} else {
		names = df.Columns()
		if len(names) != len(e.columns) {
			return nil, errors.NewValidationError(op, "",
				fmt.Sprintf("expected %d columns, got %d", len(e.columns), len(names)))
		}
	}

	cells := make([]Cells, len(names))
	for i, name := range names {
		s, _ := df.Column(name)
		cells[i] = CellsFromSeries(s)
	}
	return e.transformCells(ctx, op, cells)
}

// TransformStrings encodes raw string columns by position.
func (e *MinHashEncoder) TransformStrings(ctx context.Context, columns ...[]string) (*mat.Dense, error) {
	const op = "MinHashEncoder.Transform"
	if !e.Fitted() {
		return nil, errors.NewNotFittedError(op)
	}
	if len(columns) != len(e.columns) {
		return nil, errors.NewValidationError(op, "",
			fmt.Sprintf("expected %d columns, got %d", len(e.columns), len(columns)))
	}

	cells := make([]Cells, len(columns))
	for i, col := range columns {
		cells[i] = CellsFromStrings(col)
	}
	return e.transformCells(ctx, op, cells)
}

func (e *MinHashEncoder) transformCells(ctx context.Context, op string, cells []Cells) (*mat.Dense, error) {
	rows := cells[0].Len()
	for i, c := range cells {
		if c.Len() != rows {
			return nil, errors.NewValidationError(op, e.columns[i].Name(),
				fmt.Sprintf("expected length %d, got %d", rows, c.Len()))
		}
	}

	blocks := make([]*mat.Dense, len(cells))
	err := monitoring.RecordGlobalOperation(op, rows, func() error {
		for i, c := range cells {
			block, err := e.columns[i].Transform(ctx, c)
			if err != nil {
				return err
			}
			blocks[i] = block
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hstack(blocks), nil
}

// FeatureNamesIn returns the fitted column names.
func (e *MinHashEncoder) FeatureNamesIn() []string {
	names := make([]string, len(e.columns))
	for i, c := range e.columns {
		names[i] = c.Name()
	}
	return names
}

// NFeaturesIn returns the number of fitted columns.
func (e *MinHashEncoder) NFeaturesIn() int {
	return len(e.columns)
}

// FeatureNamesOut returns {column}_{i} for every output feature, or
// x{position}_{i} when the encoder was fitted on unnamed input.
func (e *MinHashEncoder) FeatureNamesOut() ([]string, error) {
	if !e.Fitted() {
		return nil, errors.NewNotFittedError("MinHashEncoder.FeatureNamesOut")
	}

	var names []string
	for _, c := range e.columns {
		for i := 0; i < c.Width(); i++ {
			names = append(names, fmt.Sprintf("%s_%d", c.Name(), i))
		}
	}
	return names, nil
}

// Capacity returns the per-column cache capacity.
func (e *MinHashEncoder) Capacity() int {
	if e.opts.Capacity <= 0 {
		return hashcache.DefaultCapacity
	}
	return e.opts.Capacity
}

// HashCache returns the union of every column's cache.
func (e *MinHashEncoder) HashCache() *hashcache.Cache {
	caches := make([]*hashcache.Cache, len(e.columns))
	for i, c := range e.columns {
		caches[i] = c.Cache()
	}
	return hashcache.Union(caches...)
}

// ColumnState is the fitted state of one column encoder.
type ColumnState struct {
	Name          string
	Params        minhash.Params
	HandleMissing string
	Capacity      int
	CacheKeys     []string
}

// State is the fitted state of a MinHashEncoder, comparable field by field.
type State struct {
	Params         minhash.Params
	HandleMissing  string
	Named          bool
	FeatureNamesIn []string
	NFeaturesIn    int
	Columns        []ColumnState
}

// State returns the encoder's fitted state.
func (e *MinHashEncoder) State() State {
	st := State{
		Params:         e.opts.params(),
		HandleMissing:  e.opts.HandleMissing,
		Named:          e.named,
		FeatureNamesIn: e.FeatureNamesIn(),
		NFeaturesIn:    e.NFeaturesIn(),
	}
	for _, c := range e.columns {
		cs := ColumnState{
			Name:          c.Name(),
			Params:        c.opts.params(),
			HandleMissing: c.opts.HandleMissing,
		}
		if cache := c.Cache(); cache != nil {
			cs.Capacity = cache.Capacity()
			cs.CacheKeys = cache.Keys()
		}
		st.Columns = append(st.Columns, cs)
	}
	return st
}

func hstack(blocks []*mat.Dense) *mat.Dense {
	rows, width := 0, 0
	for _, b := range blocks {
		r, c := b.Dims()
		rows = max(rows, r)
		width += c
	}
	if rows == 0 || width == 0 {
		return &mat.Dense{}
	}

	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}
