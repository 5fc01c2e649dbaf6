package performance

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

func rows(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i)}
	}
	return out
}

func TestProcessCoversEveryRow(t *testing.T) {
	d, err := dataset.NewUnlabeled(rows(10))
	require.NoError(t, err)

	for _, parallel := range []bool{false, true} {
		proc, err := NewChunkedProcessor(3, parallel)
		require.NoError(t, err)

		seen := make([]int32, 10)
		var blocks atomic.Int32
		err = proc.WithWorkers(2).Process(context.Background(), d, func(_ context.Context, chunk *dataset.Unlabeled, start int) error {
			blocks.Add(1)
			assert.LessOrEqual(t, chunk.NumSamples(), 3)
			for i, s := range chunk.Samples() {
				assert.Equal(t, float64(start+i), s[0])
				atomic.AddInt32(&seen[start+i], 1)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int32(4), blocks.Load(), "parallel=%t", parallel)
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "row %d", i)
		}
	}
}

func TestProcessStopsOnError(t *testing.T) {
	d, err := dataset.NewUnlabeled(rows(8))
	require.NoError(t, err)
	boom := errors.New("boom")

	for _, parallel := range []bool{false, true} {
		proc, err := NewChunkedProcessor(2, parallel)
		require.NoError(t, err)
		err = proc.Process(context.Background(), d, func(_ context.Context, _ *dataset.Unlabeled, start int) error {
			if start == 4 {
				return boom
			}
			return nil
		})
		assert.True(t, errors.Is(err, boom), "parallel=%t", parallel)
	}
}

func TestProcessPreconditions(t *testing.T) {
	_, err := NewChunkedProcessor(0, false)
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation))

	proc, err := NewChunkedProcessor(2, false)
	require.NoError(t, err)
	empty, err := dataset.NewUnlabeled(nil)
	require.NoError(t, err)
	err = proc.Process(context.Background(), empty, func(context.Context, *dataset.Unlabeled, int) error { return nil })
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := dataset.NewUnlabeled(rows(4))
	require.NoError(t, err)
	err = proc.Process(ctx, d, func(context.Context, *dataset.Unlabeled, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictInChunks(t *testing.T) {
	samples := rows(50)
	labels := make([]string, len(samples))
	targets := make([]float64, len(samples))
	for i := range samples {
		labels[i] = "low"
		if i >= 25 {
			labels[i] = "high"
		}
		targets[i] = 2 * samples[i][0]
	}
	classes, err := dataset.NewLabeled(samples, labels)
	require.NoError(t, err)
	values, err := dataset.NewContinuousLabeled(samples, targets)
	require.NoError(t, err)

	proc, err := NewChunkedProcessor(7, true)
	require.NoError(t, err)

	classifier, err := tree.NewClassificationTree()
	require.NoError(t, err)
	require.NoError(t, classifier.Train(classes))
	want, err := classifier.Predict(classes)
	require.NoError(t, err)
	got, err := PredictClasses(context.Background(), proc, classifier, classes)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	regressor, err := tree.NewExtraTreeRegressor(tree.WithRandomState(1))
	require.NoError(t, err)
	require.NoError(t, regressor.Train(values))
	wantValues, err := regressor.Predict(values)
	require.NoError(t, err)
	gotValues, err := PredictValues(context.Background(), proc, regressor, values)
	require.NoError(t, err)
	assert.Equal(t, wantValues, gotValues)
}
