package encoder

import (
	"context"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/paveg/tabprep/internal/config"
	"github.com/paveg/tabprep/internal/errors"
	"github.com/paveg/tabprep/internal/hashcache"
	"github.com/paveg/tabprep/internal/logger"
	"github.com/paveg/tabprep/internal/minhash"
	"github.com/paveg/tabprep/internal/parallel"
	"github.com/paveg/tabprep/internal/validation"
)

// ColumnEncoder encodes a single column. It is unfit until Fit succeeds.
// Fit and Transform may both grow the cache, up to its capacity.
type ColumnEncoder struct {
	name   string
	opts   Options
	hasher *minhash.Hasher
	cache  *hashcache.Cache
}

// NewColumnEncoder creates an unfit encoder for the named column.
func NewColumnEncoder(name string, opts Options) *ColumnEncoder {
	return &ColumnEncoder{name: name, opts: opts}
}

// Name returns the column name the encoder was created for.
func (e *ColumnEncoder) Name() string {
	return e.name
}

// Options returns the encoder options.
func (e *ColumnEncoder) Options() Options {
	return e.opts
}

// Fitted reports whether Fit has succeeded.
func (e *ColumnEncoder) Fitted() bool {
	return e.hasher != nil
}

// Cache returns the fitted cache, or nil before Fit.
func (e *ColumnEncoder) Cache() *hashcache.Cache {
	return e.cache
}

// Width returns the number of output features.
func (e *ColumnEncoder) Width() int {
	return e.opts.NComponents
}

// Fit validates the options, starts a fresh cache and fills it with the
// vectors of the distinct values in cells.
func (e *ColumnEncoder) Fit(ctx context.Context, cells Cells) error {
	_, err := e.FitTransform(ctx, cells)
	return err
}

// FitTransform fits the encoder and returns the encoding of cells.
func (e *ColumnEncoder) FitTransform(ctx context.Context, cells Cells) (*mat.Dense, error) {
	const op = "ColumnEncoder.Fit"

	if err := e.opts.params().Validate(op); err != nil {
		return nil, err
	}
	if err := validation.ValidateChoice(op, "handle_missing", e.opts.HandleMissing, config.MissingChoices...); err != nil {
		return nil, err
	}

	hasher, err := minhash.New(e.opts.params())
	if err != nil {
		return nil, err
	}

	prevHasher, prevCache := e.hasher, e.cache
	e.hasher = hasher
	e.cache = hashcache.New(e.opts.Capacity)

	out, err := e.encode(ctx, op, cells)
	if err != nil {
		e.hasher, e.cache = prevHasher, prevCache
		return nil, err
	}
	return out, nil
}

// Transform returns the rows × n_components encoding of cells.
// Missing cells become zero rows under "zero_impute".
func (e *ColumnEncoder) Transform(ctx context.Context, cells Cells) (*mat.Dense, error) {
	const op = "ColumnEncoder.Transform"
	if !e.Fitted() {
		return nil, errors.NewNotFittedError(op)
	}
	return e.encode(ctx, op, cells)
}

type chunkResult struct {
	vecs  [][]float64
	shard *hashcache.Shard
}

func (e *ColumnEncoder) encode(ctx context.Context, op string, cells Cells) (*mat.Dense, error) {
	if e.opts.HandleMissing == config.MissingError && cells.HasMissing() {
		return nil, errors.NewMissingDataError(op, e.name)
	}

	// Map every row to the index of its distinct value; -1 marks missing.
	rowIndex := make([]int, cells.Len())
	positions := make(map[string]int)
	var distinct []string
	for i, v := range cells.Values {
		if cells.Missing != nil && cells.Missing[i] {
			rowIndex[i] = -1
			continue
		}
		pos, ok := positions[v]
		if !ok {
			pos = len(distinct)
			positions[v] = pos
			distinct = append(distinct, v)
		}
		rowIndex[i] = pos
	}

	workers := parallel.Workers(e.opts.NJobs)
	pool := parallel.NewWorkerPool(workers)
	defer pool.Close()

	chunks := parallel.Partition(len(distinct), workers)
	results, err := parallel.Run(ctx, pool, chunks,
		func(ctx context.Context, _ int, c parallel.Chunk) (chunkResult, error) {
			res := chunkResult{vecs: make([][]float64, 0, c.Len()), shard: hashcache.NewShard()}
			for _, v := range distinct[c.Start:c.End] {
				if err := ctx.Err(); err != nil {
					return chunkResult{}, err
				}
				vec, ok := e.cache.Get(v)
				if !ok {
					vec = e.hasher.Vector(v)
					res.shard.Put(v, vec)
				}
				res.vecs = append(res.vecs, vec)
			}
			return res, nil
		})
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	vectors := make([][]float64, 0, len(distinct))
	shards := make([]*hashcache.Shard, 0, len(results))
	for _, res := range results {
		vectors = append(vectors, res.vecs...)
		shards = append(shards, res.shard)
	}
	e.cache.Absorb(shards...)

	logger.Or(e.opts.Logger).Debug("encoded column",
		zap.String("column", e.name),
		zap.Int("rows", cells.Len()),
		zap.Int("distinct", len(distinct)),
		zap.Int("workers", len(chunks)),
		zap.Int("cached", e.cache.Len()))

	if cells.Len() == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(cells.Len(), e.opts.NComponents, nil)
	for i, pos := range rowIndex {
		if pos >= 0 {
			out.SetRow(i, vectors[pos])
		}
	}
	return out, nil
}

// clone returns an encoder sharing the hasher but owning a copy of the cache.
func (e *ColumnEncoder) clone() *ColumnEncoder {
	c := &ColumnEncoder{name: e.name, opts: e.opts, hasher: e.hasher}
	if e.cache != nil {
		c.cache = e.cache.Clone()
	}
	return c
}
