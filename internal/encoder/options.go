// Package encoder implements the min-hash column encoder and its
// multi-column composite.
//
// A ColumnEncoder owns one column's hashing parameters and bounded cache.
// MinHashEncoder fits one ColumnEncoder per input column, concatenates
// their outputs, and can be merged from or split into single-column
// encoders without losing fitted state.
package encoder

import (
	"go.uber.org/zap"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/minhash"
)

// Options configure an encoder. Tokens are validated at fit time.
type Options struct {
	NComponents   int
	NGramMin      int
	NGramMax      int
	Hashing       string
	MinMaxHash    bool
	HandleMissing string
	Seed          uint64
	NJobs         int
	Capacity      int
	Logger        *zap.Logger
}

// DefaultOptions returns options taken from the global configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.GetGlobalConfig())
}

// OptionsFromConfig returns the encoder options held in cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		NComponents:   cfg.NComponents,
		NGramMin:      cfg.NGramMin,
		NGramMax:      cfg.NGramMax,
		Hashing:       cfg.Hashing,
		MinMaxHash:    cfg.MinMaxHash,
		HandleMissing: cfg.HandleMissing,
		Seed:          cfg.Seed,
		NJobs:         cfg.NJobs,
		Capacity:      cfg.CacheCapacity,
	}
}

func (o Options) params() minhash.Params {
	return minhash.Params{
		NComponents: o.NComponents,
		NGramMin:    o.NGramMin,
		NGramMax:    o.NGramMax,
		Hashing:     o.Hashing,
		MinMax:      o.MinMaxHash,
		Seed:        o.Seed,
	}
}

// sameHyperparameters reports whether two option sets produce identical vectors
// and missing-value handling. Parallelism, capacity and logger may differ.
func (o Options) sameHyperparameters(other Options) bool {
	return o.params() == other.params() && o.HandleMissing == other.HandleMissing
}
