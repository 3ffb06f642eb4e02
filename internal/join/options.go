// Package join implements the interpolation join: every non-key column of an
// auxiliary table is predicted for the rows of a main table by a
// nearest-neighbour model fitted in key space, instead of matching keys
// exactly.
package join

import (
	"go.uber.org/zap"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/neighbors"
	"github.com/paveg/tabprep/internal/validation"
	"github.com/paveg/tabprep/internal/vectorizer"
)

// Options configures a Joiner. Zero values fall back to the global config.
type Options struct {
	// Key names columns shared by both tables. Mutually exclusive with
	// MainKey/AuxKey, which must be given together and have equal length.
	Key     []string
	MainKey []string
	AuxKey  []string

	Regressor  neighbors.RegressorFactory
	Classifier neighbors.ClassifierFactory
	Vectorizer vectorizer.Factory

	// Suffix is appended to predicted columns whose name already exists in
	// the main table.
	Suffix             string
	OnEstimatorFailure string
	NJobs              int
	NNeighbors         int

	Logger *zap.Logger
}

// DefaultOptions returns options populated from the global configuration.
func DefaultOptions() Options {
	cfg := config.GetGlobalConfig()
	return Options{
		Suffix:             cfg.JoinSuffix,
		OnEstimatorFailure: cfg.OnEstimatorFailure,
		NJobs:              cfg.NJobs,
		NNeighbors:         cfg.NNeighbors,
	}
}

func (o Options) withDefaults() Options {
	cfg := config.GetGlobalConfig()
	if o.OnEstimatorFailure == "" {
		o.OnEstimatorFailure = cfg.OnEstimatorFailure
	}
	if o.NJobs == 0 {
		o.NJobs = cfg.NJobs
	}
	if o.NNeighbors <= 0 {
		o.NNeighbors = cfg.NNeighbors
	}
	if o.Regressor == nil {
		k := o.NNeighbors
		o.Regressor = func() neighbors.Regressor { return neighbors.NewKNNRegressor(k) }
	}
	if o.Classifier == nil {
		k := o.NNeighbors
		o.Classifier = func() neighbors.Classifier { return neighbors.NewKNNClassifier(k) }
	}
	if o.Vectorizer == nil {
		o.Vectorizer = vectorizer.DefaultFactory
	}
	return o
}

// keys resolves the main and auxiliary key columns.
func (o Options) keys(op string) (mainKey, auxKey []string, err error) {
	hasKey := len(o.Key) > 0
	hasMain, hasAux := len(o.MainKey) > 0, len(o.AuxKey) > 0

	switch {
	case hasKey && (hasMain || hasAux):
		return nil, nil, errors.NewConfigurationError(op,
			"Can only pass argument key OR (main_key, aux_key), not both")
	case hasKey:
		return o.Key, o.Key, nil
	case hasMain && hasAux:
		if len(o.MainKey) != len(o.AuxKey) {
			return nil, nil, errors.NewConfigurationError(op,
				"main_key and aux_key must name the same number of columns")
		}
		return o.MainKey, o.AuxKey, nil
	default:
		return nil, nil, errors.NewConfigurationError(op,
			"Must pass EITHER key OR (main_key AND aux_key)")
	}
}

func (o Options) validate(op string) error {
	return validation.ValidateChoice(op, "on_estimator_failure", o.OnEstimatorFailure, config.FailureChoices...)
}
