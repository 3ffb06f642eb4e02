// Package tabprep provides table-preprocessing transformers for machine
// learning pipelines: an online min-hash encoder for dirty, high-cardinality
// string columns and an interpolation join that augments a table with
// nearest-neighbour predictions from an auxiliary table.
// This package is the sole public API for the library.
package tabprep

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/dataframe"
	"github.com/paveg/tabprep/internal/encoder"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/join"
	"github.com/paveg/tabprep/internal/logger"
	"github.com/paveg/tabprep/internal/neighbors"
	"github.com/paveg/tabprep/internal/series"
	"github.com/paveg/tabprep/internal/vectorizer"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	NullCount() int
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
	Float64At(index int) (float64, bool)
}

// DataFrame is the public type for a DataFrame.
// It wraps the internal dataframe.DataFrame to hide implementation details.
type DataFrame struct {
	df *dataframe.DataFrame
}

// Error sentinels for errors.Is checks.
var (
	ErrConfiguration    = errors.ErrConfiguration
	ErrMissingData      = errors.ErrMissingData
	ErrNotFitted        = errors.ErrNotFitted
	ErrEstimatorFailure = errors.ErrEstimatorFailure
	ErrValidation       = errors.ErrValidation
	ErrColumnNotFound   = errors.ErrColumnNotFound
)

type (
	// Config holds the library-wide defaults.
	Config = config.Config
	// EncoderOptions configures a MinHashEncoder.
	EncoderOptions = encoder.Options
	// EncoderState is the inspectable fitted state of a MinHashEncoder.
	EncoderState = encoder.State
	// JoinOptions configures an InterpolationJoiner.
	JoinOptions = join.Options
	// FailureLog lists the columns whose estimator failed in one call.
	FailureLog = join.FailureLog
	// ColumnFailure is one entry of a FailureLog.
	ColumnFailure = join.ColumnFailure

	Regressor         = neighbors.Regressor
	Classifier        = neighbors.Classifier
	RegressorFactory  = neighbors.RegressorFactory
	ClassifierFactory = neighbors.ClassifierFactory
	VectorizerFactory = vectorizer.Factory
)

// NewDataFrame creates a new DataFrame from ISeries.
func NewDataFrame(series ...ISeries) *DataFrame {
	internalSeries := make([]dataframe.ISeries, len(series))
	for i, s := range series {
		internalSeries[i] = s
	}
	return &DataFrame{df: dataframe.New(internalSeries...)}
}

// NewSeries creates a new typed Series from values.
func NewSeries[T any](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewNullableSeries creates a Series where valid[i] == false marks row i as null.
func NewNullableSeries[T any](name string, values []T, valid []bool, mem memory.Allocator) ISeries {
	return series.NewNullable(name, values, valid, mem)
}

// DataFrame methods

// Columns returns the column names in order.
func (d *DataFrame) Columns() []string {
	return d.df.Columns()
}

// Len returns the number of rows.
func (d *DataFrame) Len() int {
	return d.df.Len()
}

// Width returns the number of columns.
func (d *DataFrame) Width() int {
	return d.df.Width()
}

// Column returns the column with the given name.
func (d *DataFrame) Column(name string) (ISeries, bool) {
	return d.df.Column(name)
}

// HasColumn returns true if the DataFrame has the given column.
func (d *DataFrame) HasColumn(name string) bool {
	return d.df.HasColumn(name)
}

// Select returns a new DataFrame with only the specified columns.
func (d *DataFrame) Select(names ...string) *DataFrame {
	return &DataFrame{df: d.df.Select(names...)}
}

// Drop returns a new DataFrame without the specified columns.
func (d *DataFrame) Drop(names ...string) *DataFrame {
	return &DataFrame{df: d.df.Drop(names...)}
}

// Rename returns a new DataFrame with columns renamed according to mapping.
func (d *DataFrame) Rename(mapping map[string]string) (*DataFrame, error) {
	df, err := d.df.Rename(mapping)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// String returns a string representation of the DataFrame.
func (d *DataFrame) String() string {
	return d.df.String()
}

// Release frees the memory used by the DataFrame.
func (d *DataFrame) Release() {
	d.df.Release()
}

// MinHashEncoder encodes string columns into min-hash features,
// n_components per column.
type MinHashEncoder struct {
	enc *encoder.MinHashEncoder
}

// DefaultEncoderOptions returns encoder options taken from the global config.
func DefaultEncoderOptions() EncoderOptions {
	return encoder.DefaultOptions()
}

// NewMinHashEncoder creates an unfitted encoder.
func NewMinHashEncoder(opts EncoderOptions) *MinHashEncoder {
	return &MinHashEncoder{enc: encoder.NewMinHashEncoder(opts)}
}

// Fit learns one column encoder per column of df.
func (e *MinHashEncoder) Fit(ctx context.Context, df *DataFrame) error {
	return e.enc.Fit(ctx, df.df)
}

// FitTransform fits on df and returns its encoding.
func (e *MinHashEncoder) FitTransform(ctx context.Context, df *DataFrame) (*mat.Dense, error) {
	return e.enc.FitTransform(ctx, df.df)
}

// Transform encodes df with the fitted column encoders.
func (e *MinHashEncoder) Transform(ctx context.Context, df *DataFrame) (*mat.Dense, error) {
	return e.enc.Transform(ctx, df.df)
}

// FitStrings fits on unnamed string columns; empty strings are missing.
func (e *MinHashEncoder) FitStrings(ctx context.Context, columns ...[]string) error {
	return e.enc.FitStrings(ctx, columns...)
}

// FitTransformStrings fits on unnamed string columns and encodes them.
func (e *MinHashEncoder) FitTransformStrings(ctx context.Context, columns ...[]string) (*mat.Dense, error) {
	return e.enc.FitTransformStrings(ctx, columns...)
}

// TransformStrings encodes unnamed string columns by position.
func (e *MinHashEncoder) TransformStrings(ctx context.Context, columns ...[]string) (*mat.Dense, error) {
	return e.enc.TransformStrings(ctx, columns...)
}

// Fitted reports whether the encoder has been fitted.
func (e *MinHashEncoder) Fitted() bool {
	return e.enc.Fitted()
}

// FeatureNamesIn returns the fitted input column names.
func (e *MinHashEncoder) FeatureNamesIn() []string {
	return e.enc.FeatureNamesIn()
}

// FeatureNamesOut returns one name per output feature.
func (e *MinHashEncoder) FeatureNamesOut() ([]string, error) {
	return e.enc.FeatureNamesOut()
}

// State returns the fitted state.
func (e *MinHashEncoder) State() EncoderState {
	return e.enc.State()
}

// Split returns one single-column encoder per fitted column.
func (e *MinHashEncoder) Split() ([]*MinHashEncoder, error) {
	parts, err := e.enc.Split()
	if err != nil {
		return nil, err
	}
	out := make([]*MinHashEncoder, len(parts))
	for i, p := range parts {
		out[i] = &MinHashEncoder{enc: p}
	}
	return out, nil
}

// MergeEncoders concatenates fitted encoders with identical hyperparameters
// column-wise. The inputs stay usable.
func MergeEncoders(encs ...*MinHashEncoder) (*MinHashEncoder, error) {
	inner := make([]*encoder.MinHashEncoder, len(encs))
	for i, e := range encs {
		inner[i] = e.enc
	}
	merged, err := encoder.Merge(inner...)
	if err != nil {
		return nil, err
	}
	return &MinHashEncoder{enc: merged}, nil
}

// InterpolationJoiner joins a main table against a fixed auxiliary table by
// predicting every auxiliary column from the key columns.
type InterpolationJoiner struct {
	j *join.Joiner
}

// DefaultJoinOptions returns join options taken from the global config.
func DefaultJoinOptions() JoinOptions {
	return join.DefaultOptions()
}

// NewInterpolationJoiner validates opts against aux.
func NewInterpolationJoiner(aux *DataFrame, opts JoinOptions) (*InterpolationJoiner, error) {
	if aux == nil {
		return nil, errors.NewValidationError("InterpolationJoiner", "", "auxiliary table is nil")
	}
	j, err := join.New(aux.df, opts)
	if err != nil {
		return nil, err
	}
	return &InterpolationJoiner{j: j}, nil
}

// Fit trains the per-column estimators. main may be nil.
func (ij *InterpolationJoiner) Fit(ctx context.Context, main *DataFrame) error {
	if main == nil {
		return ij.j.Fit(ctx, nil)
	}
	return ij.j.Fit(ctx, main.df)
}

// Transform returns main augmented with the predicted auxiliary columns.
func (ij *InterpolationJoiner) Transform(ctx context.Context, main *DataFrame) (*DataFrame, error) {
	if main == nil {
		return nil, errors.NewValidationError("InterpolationJoiner.Transform", "", "main table is nil")
	}
	out, err := ij.j.Transform(ctx, main.df)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: out}, nil
}

// FitTransform fits on main and then transforms it.
func (ij *InterpolationJoiner) FitTransform(ctx context.Context, main *DataFrame) (*DataFrame, error) {
	if err := ij.Fit(ctx, main); err != nil {
		return nil, err
	}
	return ij.Transform(ctx, main)
}

// FitFailures returns the columns whose estimator failed to fit.
func (ij *InterpolationJoiner) FitFailures() FailureLog {
	return ij.j.FitFailures()
}

// TransformFailures returns the columns whose prediction failed in the last Transform.
func (ij *InterpolationJoiner) TransformFailures() FailureLog {
	return ij.j.TransformFailures()
}

// KNNRegressor returns a factory of k-nearest-neighbour regressors.
func KNNRegressor(k int) RegressorFactory {
	return func() Regressor { return neighbors.NewKNNRegressor(k) }
}

// KNNClassifier returns a factory of k-nearest-neighbour classifiers.
func KNNClassifier(k int) ClassifierFactory {
	return func() Classifier { return neighbors.NewKNNClassifier(k) }
}

// DummyRegressor returns a factory of regressors predicting the training mean.
func DummyRegressor() RegressorFactory {
	return func() Regressor { return &neighbors.DummyRegressor{} }
}

// DummyClassifier returns a factory of classifiers predicting the most frequent label.
func DummyClassifier() ClassifierFactory {
	return func() Classifier { return &neighbors.DummyClassifier{} }
}

// TableVectorizer returns a key vectorizer factory with the given datetime
// resolution ("year" ... "second", or "none" for Unix seconds only).
func TableVectorizer(resolution string) VectorizerFactory {
	return func() vectorizer.Vectorizer {
		v := vectorizer.New()
		v.Resolution = resolution
		return v
	}
}

// SetConfig replaces the global configuration after validating it.
// Recommendations such as an n_jobs above twice the CPU count are logged as
// warnings.
func SetConfig(cfg Config) error {
	_, warnings, err := config.NewConfigValidator().Validate(cfg)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn("configuration warning", zap.String("warning", w))
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// GetConfig returns the global configuration.
func GetConfig() Config {
	return config.GetGlobalConfig()
}

// LoadConfig reads a .json, .yaml or .yml file and installs it as the global
// configuration.
func LoadConfig(path string) error {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return err
	}
	return SetConfig(cfg)
}

// LoadConfigFromEnv applies TABPREP_* environment overrides to the current
// global configuration and installs the result.
func LoadConfigFromEnv() error {
	return SetConfig(config.ApplyEnv(GetConfig()))
}
