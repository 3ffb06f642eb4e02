package encoder

import (
	"fmt"

	"github.com/paveg/tabprep/internal/errors"
)

// Merge combines fitted encoders into one composite. Input order defines
// output column order. Every encoder must share the same hyperparameters
// (n_components, hashing, minmax_hash, ngram range, handle_missing, seed).
// Caches are copied, so the inputs stay usable.
//
// When every input was fitted on unnamed data the merged columns are
// renumbered x0, x1, ... by position. Mixing named and unnamed inputs is a
// configuration error.
func Merge(encs ...*MinHashEncoder) (*MinHashEncoder, error) {
	const op = "MinHashEncoder.Merge"
	if len(encs) == 0 {
		return nil, errors.NewConfigurationError(op, "no encoders to merge")
	}

	first := encs[0]
	var named bool
	for i, enc := range encs {
		if enc == nil || !enc.Fitted() {
			return nil, errors.NewNotFittedError(op)
		}
		if !enc.opts.sameHyperparameters(first.opts) {
			return nil, errors.NewConfigurationError(op,
				fmt.Sprintf("encoder %d has hyperparameters %+v, expected %+v",
					i, enc.opts.params(), first.opts.params()))
		}
		if i > 0 && enc.named != named {
			return nil, errors.NewConfigurationError(op,
				fmt.Sprintf("encoder %d was fitted on %s input, expected %s input like encoder 0",
					i, namedWord(enc.named), namedWord(named)))
		}
		named = enc.named
	}

	merged := &MinHashEncoder{opts: first.opts, named: named}
	seen := make(map[string]struct{})
	for _, enc := range encs {
		for _, col := range enc.columns {
			c := col.clone()
			if !named {
				c.name = fmt.Sprintf("x%d", len(merged.columns))
			}
			if _, dup := seen[c.name]; dup {
				return nil, errors.NewConfigurationError(op,
					fmt.Sprintf("duplicate column %q across merged encoders", c.name))
			}
			seen[c.name] = struct{}{}
			merged.columns = append(merged.columns, c)
		}
	}
	return merged, nil
}

// Split returns one single-column encoder per fitted column, each holding
// a copy of exactly that column's cache. A column fitted on unnamed input
// becomes x0 in its own encoder.
func (e *MinHashEncoder) Split() ([]*MinHashEncoder, error) {
	if !e.Fitted() {
		return nil, errors.NewNotFittedError("MinHashEncoder.Split")
	}

	parts := make([]*MinHashEncoder, len(e.columns))
	for i, col := range e.columns {
		c := col.clone()
		if !e.named {
			c.name = "x0"
		}
		parts[i] = &MinHashEncoder{
			opts:    e.opts,
			columns: []*ColumnEncoder{c},
			named:   e.named,
		}
	}
	return parts, nil
}

func namedWord(named bool) string {
	if named {
		return "named"
	}
	return "unnamed"
}
