package join

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/logger"
	"github.com/paveg/tabprep/internal/monitoring"
	"github.com/paveg/tabprep/internal/neighbors"
	"github.com/paveg/tabprep/internal/parallel"
	"github.com/paveg/tabprep/internal/series"
	"github.com/paveg/tabprep/internal/validation"
	"github.com/paveg/tabprep/internal/vectorizer"
)

// EstimatorKind tells which estimator predicts an auxiliary column.
type EstimatorKind int

const (
	Regression EstimatorKind = iota
	Classification
)

func (k EstimatorKind) String() string {
	if k == Regression {
		return "regression"
	}
	return "classification"
}

// SelectEstimatorKind routes numeric columns to the regressor and every
// other column to the classifier.
func SelectEstimatorKind(dt arrow.DataType) EstimatorKind {
	if dataframe.KindOf(dt) == dataframe.KindNumeric {
		return Regression
	}
	return Classification
}

type model struct {
	kind       EstimatorKind
	regressor  neighbors.Regressor
	classifier neighbors.Classifier
}

type fitResult struct {
	model *model
	err   error
}

type predictResult struct {
	column dataframe.ISeries
	err    error
}

// Joiner is an interpolation join against a fixed auxiliary table.
type Joiner struct {
	aux     *dataframe.DataFrame
	opts    Options
	mainKey []string
	auxKey  []string
	targets []string
	log     *zap.Logger

	vec          vectorizer.Vectorizer
	models       map[string]*model
	fitted       bool
	fitLog       FailureLog
	transformLog FailureLog
}

// New validates the key configuration and failure policy against aux.
// Key columns are checked for existence at Fit.
func New(aux *dataframe.DataFrame, opts Options) (*Joiner, error) {
	const op = "InterpolationJoiner"
	if aux == nil {
		return nil, errors.NewValidationError(op, "", "auxiliary table is nil")
	}

	opts = opts.withDefaults()
	mainKey, auxKey, err := opts.keys(op)
	if err != nil {
		return nil, err
	}
	if err := opts.validate(op); err != nil {
		return nil, err
	}

	isKey := make(map[string]bool, len(auxKey))
	for _, k := range auxKey {
		isKey[k] = true
	}
	var targets []string
	for _, name := range aux.Columns() {
		if !isKey[name] {
			targets = append(targets, name)
		}
	}

	return &Joiner{
		aux:     aux,
		opts:    opts,
		mainKey: mainKey,
		auxKey:  auxKey,
		targets: targets,
		log:     logger.Or(opts.Logger),
	}, nil
}

// Fitted reports whether Fit completed.
func (j *Joiner) Fitted() bool {
	return j.fitted
}

// FitFailures returns the columns whose estimator failed during the last Fit.
func (j *Joiner) FitFailures() FailureLog {
	return j.fitLog
}

// TransformFailures returns the columns whose prediction failed during the
// last Transform.
func (j *Joiner) TransformFailures() FailureLog {
	return j.transformLog
}

// Fit trains the key vectorizer and one estimator per auxiliary non-key
// column. main is only checked for its key columns and may be nil.
func (j *Joiner) Fit(ctx context.Context, main *dataframe.DataFrame) error {
	const op = "InterpolationJoiner.Fit"
	if err := validation.ValidateColumns(j.aux, op, j.auxKey...); err != nil {
		return err
	}
	if main != nil {
		if err := validation.ValidateColumns(main, op, j.mainKey...); err != nil {
			return err
		}
	}

	return monitoring.RecordGlobalOperation(op, j.aux.Len(), func() error {
		keys := j.aux.Select(j.auxKey...)
		vec := j.opts.Vectorizer()
		if err := vec.Fit(ctx, keys); err != nil {
			return err
		}
		X, err := vec.Transform(ctx, keys)
		if err != nil {
			return err
		}

		wp := parallel.NewWorkerPool(parallel.Workers(j.opts.NJobs))
		defer wp.Close()
		results := parallel.ProcessIndexed(wp, j.targets, func(_ int, name string) fitResult {
			m, err := j.fitColumn(X, name)
			return fitResult{model: m, err: err}
		})

		models := make(map[string]*model, len(j.targets))
		log := FailureLog{Stage: StageFit}
		for i, r := range results {
			name := j.targets[i]
			if r.err != nil {
				log.Failures = append(log.Failures, ColumnFailure{
					Column: name,
					Err:    errors.NewEstimatorFailure(op, name, "estimator failed to fit", r.err),
				})
				continue
			}
			models[name] = r.model
		}
		if err := j.handleFailures(log, "Estimators failed to fit"); err != nil {
			return err
		}

		j.vec = vec
		j.models = models
		j.fitLog = log
		j.fitted = true
		j.log.Debug("fitted interpolation join",
			zap.Int("rows", j.aux.Len()),
			zap.Int("columns", len(models)),
			zap.Int("failed", len(log.Failures)),
		)
		return nil
	})
}

// fitColumn trains the estimator of one auxiliary column on the rows where
// the column is not null.
func (j *Joiner) fitColumn(X *mat.Dense, name string) (_ *model, err error) {
	defer recoverColumn(name, &err)
	s, _ := j.aux.Column(name)
	m := &model{kind: SelectEstimatorKind(s.DataType())}

	rows := make([]int, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if m.kind == Regression {
			if _, ok := s.Float64At(i); !ok {
				continue
			}
		} else if s.IsNull(i) {
			continue
		}
		rows = append(rows, i)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("column %q has no non-null values to fit on", name)
	}
	Xs := selectRows(X, rows)

	switch m.kind {
	case Regression:
		y := make([]float64, len(rows))
		for i, r := range rows {
			y[i], _ = s.Float64At(r)
		}
		m.regressor = j.opts.Regressor()
		if err := m.regressor.Fit(Xs, y); err != nil {
			return nil, err
		}
	default:
		y := make([]string, len(rows))
		for i, r := range rows {
			y[i] = s.GetAsString(r)
		}
		m.classifier = j.opts.Classifier()
		if err := m.classifier.Fit(Xs, y); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func selectRows(X *mat.Dense, rows []int) *mat.Dense {
	n, cols := X.Dims()
	if len(rows) == n {
		return X
	}
	out := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

// Transform returns main followed by one predicted column per auxiliary
// non-key column, in auxiliary column order. Columns whose estimator failed
// are filled with nulls. The result holds its own references to main's
// columns and must be released separately.
func (j *Joiner) Transform(ctx context.Context, main *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	const op = "InterpolationJoiner.Transform"
	if !j.fitted {
		return nil, errors.NewNotFittedError(op)
	}
	if main == nil {
		return nil, errors.NewValidationError(op, "", "main table is nil")
	}
	if err := validation.ValidateColumns(main, op, j.mainKey...); err != nil {
		return nil, err
	}
	names, err := j.outputNames(op, main)
	if err != nil {
		return nil, err
	}

	var out *dataframe.DataFrame
	err = monitoring.RecordGlobalOperation(op, main.Len(), func() error {
		mapping := make(map[string]string, len(j.mainKey))
		for i, k := range j.mainKey {
			mapping[k] = j.auxKey[i]
		}
		keys, err := main.Select(j.mainKey...).Rename(mapping)
		if err != nil {
			return err
		}

		n := main.Len()
		var X *mat.Dense
		if n > 0 {
			if X, err = j.vec.Transform(ctx, keys); err != nil {
				return err
			}
		}

		wp := parallel.NewWorkerPool(parallel.Workers(j.opts.NJobs))
		defer wp.Close()
		results := parallel.ProcessIndexed(wp, j.targets, func(i int, name string) predictResult {
			col, err := j.predictColumn(X, n, name, names[i])
			return predictResult{column: col, err: err}
		})

		log := FailureLog{Stage: StagePredict}
		columns := make([]dataframe.ISeries, 0, main.Width()+len(results))
		for _, name := range main.Columns() {
			s, _ := main.Column(name)
			columns = append(columns, dataframe.Retained(s))
		}
		for i, r := range results {
			if r.err != nil {
				log.Failures = append(log.Failures, ColumnFailure{
					Column: j.targets[i],
					Err:    errors.NewEstimatorFailure(op, j.targets[i], "estimator failed to predict", r.err),
				})
				r.column = j.missingColumn(j.targets[i], names[i], n)
			}
			columns = append(columns, r.column)
		}

		out = dataframe.New(columns...)
		if err := j.handleFailures(log, "Prediction failed"); err != nil {
			out.Release()
			out = nil
			return err
		}
		j.transformLog = log
		j.log.Debug("transformed interpolation join",
			zap.Int("rows", n),
			zap.Int("columns", len(j.targets)),
			zap.Int("failed", len(log.Failures)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FitTransform fits on main and then transforms it.
func (j *Joiner) FitTransform(ctx context.Context, main *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	if err := j.Fit(ctx, main); err != nil {
		return nil, err
	}
	return j.Transform(ctx, main)
}

// outputNames returns the name of each predicted column, appending the
// suffix when it collides with a main column.
func (j *Joiner) outputNames(op string, main *dataframe.DataFrame) ([]string, error) {
	used := make(map[string]bool, main.Width()+len(j.targets))
	for _, name := range main.Columns() {
		used[name] = true
	}

	names := make([]string, len(j.targets))
	for i, name := range j.targets {
		out := name
		if used[out] {
			if j.opts.Suffix == "" {
				return nil, errors.NewValidationError(op, name,
					"column exists in the main table; set a suffix to disambiguate")
			}
			out += j.opts.Suffix
		}
		if used[out] {
			return nil, errors.NewValidationError(op, out, "duplicate output column after applying suffix")
		}
		used[out] = true
		names[i] = out
	}
	return names, nil
}

func (j *Joiner) predictColumn(X *mat.Dense, n int, target, name string) (_ dataframe.ISeries, err error) {
	defer recoverColumn(target, &err)
	m, ok := j.models[target]
	if !ok {
		return j.missingColumn(target, name, n), nil
	}
	mem := memory.DefaultAllocator

	switch m.kind {
	case Regression:
		preds := make([]float64, n)
		if n > 0 {
			var err error
			if preds, err = m.regressor.Predict(X); err != nil {
				return nil, err
			}
		}
		if len(preds) != n {
			return nil, fmt.Errorf("estimator returned %d predictions for %d rows", len(preds), n)
		}
		return series.New(name, preds, mem), nil
	default:
		labels := make([]string, n)
		if n > 0 {
			var err error
			if labels, err = m.classifier.Predict(X); err != nil {
				return nil, err
			}
		}
		if len(labels) != n {
			return nil, fmt.Errorf("estimator returned %d predictions for %d rows", len(labels), n)
		}
		return series.New(name, labels, mem), nil
	}
}

// missingColumn is the all-null stand-in for a failed column: float64 for
// regression targets, string otherwise.
func (j *Joiner) missingColumn(target, name string, n int) dataframe.ISeries {
	s, _ := j.aux.Column(target)
	valid := make([]bool, n)
	if SelectEstimatorKind(s.DataType()) == Regression {
		return series.NewNullable(name, make([]float64, n), valid, memory.DefaultAllocator)
	}
	return series.NewNullable(name, make([]string, n), valid, memory.DefaultAllocator)
}
