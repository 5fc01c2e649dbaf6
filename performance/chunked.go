// Package performance provides helpers for running estimators over datasets
// too large to handle in one call.
package performance

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// ChunkFunc is called with a block of consecutive rows of the dataset. start
// is the index of the block's first row in the full dataset.
type ChunkFunc func(ctx context.Context, chunk *dataset.Unlabeled, start int) error

// ChunkedProcessor splits a dataset into blocks of rows and hands each block
// to a ChunkFunc, one at a time or on a bounded number of goroutines.
type ChunkedProcessor struct {
	chunkSize  int
	parallel   bool
	numWorkers int
}

// NewChunkedProcessor creates a processor emitting blocks of chunkSize rows.
func NewChunkedProcessor(chunkSize int, parallel bool) (*ChunkedProcessor, error) {
	if chunkSize < 1 {
		return nil, errors.NewValidationError("chunk_size", "must be greater than 0", chunkSize)
	}
	return &ChunkedProcessor{
		chunkSize:  chunkSize,
		parallel:   parallel,
		numWorkers: runtime.NumCPU(),
	}, nil
}

// WithWorkers bounds the number of blocks processed at once in parallel mode.
func (c *ChunkedProcessor) WithWorkers(n int) *ChunkedProcessor {
	if n > 0 {
		c.numWorkers = n
	}
	return c
}

// Process runs fn over every block. In parallel mode blocks may finish in any
// order and the first error cancels the context passed to the others.
func (c *ChunkedProcessor) Process(ctx context.Context, d dataset.Dataset, fn ChunkFunc) error {
	if err := model.CheckNotEmpty("ChunkedProcessor.Process", d); err != nil {
		return err
	}
	samples, types := d.Samples(), d.Types()
	chunk := func(start int) (*dataset.Unlabeled, error) {
		end := min(start+c.chunkSize, len(samples))
		return dataset.NewUnlabeled(samples[start:end], dataset.WithTypes(types...))
	}

	if !c.parallel {
		for start := 0; start < len(samples); start += c.chunkSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			block, err := chunk(start)
			if err != nil {
				return err
			}
			if err := fn(ctx, block, start); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.numWorkers)
	for start := 0; start < len(samples); start += c.chunkSize {
		block, err := chunk(start)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, block, start)
		})
	}
	return g.Wait()
}

// PredictClasses predicts d block by block and returns the labels in row
// order.
func PredictClasses(ctx context.Context, c *ChunkedProcessor, e model.Classifier, d dataset.Dataset) ([]string, error) {
	out := make([]string, d.NumSamples())
	err := c.Process(ctx, d, func(_ context.Context, chunk *dataset.Unlabeled, start int) error {
		labels, err := e.Predict(chunk)
		if err != nil {
			return err
		}
		copy(out[start:], labels)
		return nil
	})
	return out, err
}

// PredictValues is PredictClasses for regressors.
func PredictValues(ctx context.Context, c *ChunkedProcessor, e model.Regressor, d dataset.Dataset) ([]float64, error) {
	out := make([]float64, d.NumSamples())
	err := c.Process(ctx, d, func(_ context.Context, chunk *dataset.Unlabeled, start int) error {
		values, err := e.Predict(chunk)
		if err != nil {
			return err
		}
		copy(out[start:], values)
		return nil
	})
	return out, err
}
