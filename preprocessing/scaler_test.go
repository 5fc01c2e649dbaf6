package preprocessing

import (
	"encoding"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

func fixture(t *testing.T) *dataset.Labeled {
	t.Helper()
	d, err := dataset.NewLabeled(
		[][]float64{{1, 7, 5}, {2, 3, 5}, {3, 7, 5}, {4, 3, 5}},
		[]string{"a", "b", "a", "b"},
		dataset.WithCategorical(1),
	)
	require.NoError(t, err)
	return d
}

func TestStandardScaler(t *testing.T) {
	d := fixture(t)
	s := NewStandardScaler(true)
	require.NoError(t, s.Fit(d))
	assert.True(t, s.Fitted())

	scaled, err := Apply(s, d)
	require.NoError(t, err)

	col := scaled.Column(0)
	mean := (col[0] + col[1] + col[2] + col[3]) / 4
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, -1.3416407865, col[0], 1e-9)
	assert.Equal(t, d.Column(1), scaled.Column(1), "categorical column is untouched")
	assert.Equal(t, []float64{0, 0, 0, 0}, scaled.Column(2), "constant column is only centered")
	assert.Equal(t, d.Labels(), scaled.Labels())
	assert.Equal(t, d.Types(), scaled.Types())

	back, err := s.InverseTransform(scaled)
	require.NoError(t, err)
	for i, row := range back {
		assert.InDeltaSlice(t, d.Sample(i), row, 1e-12)
	}
}

func TestMinMaxScaler(t *testing.T) {
	d := fixture(t)
	m, err := NewMinMaxScaler(-1, 1)
	require.NoError(t, err)
	require.NoError(t, m.Fit(d))

	out, err := ApplyUnlabeled(m, d)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-1, -1.0 / 3, 1.0 / 3, 1}, out.Column(0), 1e-12)
	assert.Equal(t, d.Column(1), out.Column(1))

	_, err = NewMinMaxScaler(1, 1)
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestScalerPreconditions(t *testing.T) {
	s := NewStandardScaler(true)
	_, err := s.Transform(fixture(t))
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	require.NoError(t, s.Fit(fixture(t)))
	narrow, err := dataset.NewUnlabeled([][]float64{{1, 2}})
	require.NoError(t, err)
	_, err = s.Transform(narrow)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	empty, err := dataset.NewUnlabeled(nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(s.Fit(empty), errors.ErrEmptyData))
}

func TestScalerSurvivesGob(t *testing.T) {
	standard := NewStandardScaler(true)
	require.NoError(t, standard.Fit(fixture(t)))
	minMax, err := NewMinMaxScaler(-1, 1)
	require.NoError(t, err)
	require.NoError(t, minMax.Fit(fixture(t)))

	tests := []struct {
		name   string
		fitted Transformer
		blank  Transformer
	}{
		{"standard into zero value", standard, &StandardScaler{}},
		{"standard into constructed", standard, NewStandardScaler(false)},
		{"min max into zero value", minMax, &MinMaxScaler{}},
		{"min max into constructed", minMax, mustMinMax(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := tt.fitted.(encoding.BinaryMarshaler).MarshalBinary()
			require.NoError(t, err)
			require.NoError(t, tt.blank.(encoding.BinaryUnmarshaler).UnmarshalBinary(blob))

			assert.True(t, tt.blank.Fitted())
			want, err := tt.fitted.Transform(fixture(t))
			require.NoError(t, err)
			got, err := tt.blank.Transform(fixture(t))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestUnfittedScalerStaysUnfittedAfterGob(t *testing.T) {
	blob, err := NewStandardScaler(true).MarshalBinary()
	require.NoError(t, err)
	loaded := NewStandardScaler(true)
	require.NoError(t, loaded.UnmarshalBinary(blob))
	assert.False(t, loaded.Fitted())

	var notFitted *errors.NotFittedError
	_, err = loaded.Transform(fixture(t))
	assert.True(t, errors.As(err, &notFitted))
}

func mustMinMax(t *testing.T) *MinMaxScaler {
	t.Helper()
	m, err := NewMinMaxScaler(0, 1)
	require.NoError(t, err)
	return m
}

func TestLargeTransformRunsInParallel(t *testing.T) {
	rows := make([][]float64, parallelThreshold*2+1)
	for i := range rows {
		rows[i] = []float64{float64(i)}
	}
	d, err := dataset.NewUnlabeled(rows)
	require.NoError(t, err)

	s := NewStandardScaler(false)
	require.NoError(t, s.Fit(d))
	out, err := s.Transform(d)
	require.NoError(t, err)
	require.Len(t, out, len(rows))
	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i][0], out[i-1][0])
	}
}
