// Package parallel provides the worker infrastructure shared by the
// encoder and the joiner.
//
// Work is either fanned out item by item through a WorkerPool, or split
// into contiguous row chunks with Partition and processed by Run, which
// stops at the first error and preserves input order in its results.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Workers resolves an n_jobs setting to a worker count.
// 0 and 1 mean serial, negative values count back from the CPU count
// (-1 uses every CPU), and the result is never below 1.
func Workers(nJobs int) int {
	switch {
	case nJobs == 0:
		return 1
	case nJobs < 0:
		return max(1, runtime.NumCPU()+1+nJobs)
	default:
		return nJobs
	}
}

// Chunk is a half-open row range [Start, End).
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Partition splits n rows into at most parts contiguous, non-empty chunks
// whose sizes differ by at most one. It returns nil when n is zero.
func Partition(n, parts int) []Chunk {
	if n <= 0 {
		return nil
	}
	parts = max(1, min(parts, n))

	chunks := make([]Chunk, 0, parts)
	size, rem := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < rem {
			end++
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
		start = end
	}
	return chunks
}

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NumWorkers returns the pool size.
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// ProcessIndexed executes work items in parallel while preserving order
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) []R {
	if len(items) == 0 {
		return nil
	}

	// Serial fast path
	if wp.numWorkers == 1 {
		results := make([]R, len(items))
		for i, item := range items {
			results[i] = worker(i, item)
		}
		return results
	}

	itemCh := make(chan indexedItem[T], len(items))
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < min(wp.numWorkers, len(items)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: worker(item.index, item.value),
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.result
	}

	return results
}

// Run calls fn for every item with at most the pool's worker count running
// at once. Results keep input order. The first error cancels the context
// passed to the remaining calls and is returned.
func Run[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	fn func(context.Context, int, T) (R, error),
) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, i, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index
type indexedResult[R any] struct {
	index  int
	result R
}
