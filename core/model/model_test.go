package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

type stubEstimator struct {
	kind   EstimatorType
	caps   Capability
	compat []dataset.DataType
}

func (s stubEstimator) Type() EstimatorType               { return s.kind }
func (s stubEstimator) Capabilities() Capability          { return s.caps }
func (s stubEstimator) Compatibility() []dataset.DataType { return s.compat }
func (s stubEstimator) Params() map[string]any            { return map[string]any{"k": 1} }
func (s stubEstimator) Trained() bool                     { return false }

func TestCapabilities(t *testing.T) {
	e := stubEstimator{caps: Trainable | Probabilistic}

	assert.True(t, Has(e, Trainable))
	assert.True(t, Has(e, Trainable|Probabilistic))
	assert.False(t, Has(e, Ranking))
	assert.Equal(t, "trainable|probabilistic", e.Capabilities().String())
	assert.Equal(t, "none", Capability(0).String())
	assert.Equal(t, "regressor", RegressorType.String())
}

func TestCheckTrainingSet(t *testing.T) {
	classifier := stubEstimator{kind: ClassifierType, compat: []dataset.DataType{dataset.Continuous}}

	d, err := dataset.NewLabeled([][]float64{{1}, {2}}, []string{"a", "b"})
	require.NoError(t, err)
	assert.NoError(t, CheckTrainingSet("test", classifier, d))

	empty, err := dataset.NewLabeled(nil, nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(CheckTrainingSet("test", classifier, empty), errors.ErrEmptyData))
	assert.True(t, errors.Is(CheckTrainingSet("test", classifier, nil), errors.ErrEmptyData))

	var incompatible *errors.IncompatibleDataError

	cat, err := dataset.NewLabeled([][]float64{{1}}, []string{"a"}, dataset.WithCategorical(0))
	require.NoError(t, err)
	err = CheckTrainingSet("test", classifier, cat)
	require.True(t, errors.As(err, &incompatible))
	assert.Equal(t, 0, incompatible.Column)

	reg, err := dataset.NewContinuousLabeled([][]float64{{1}}, []float64{1})
	require.NoError(t, err)
	err = CheckTrainingSet("test", classifier, reg)
	require.True(t, errors.As(err, &incompatible))
	assert.Equal(t, -1, incompatible.Column)
}

func TestCheckInferenceSet(t *testing.T) {
	e := stubEstimator{compat: []dataset.DataType{dataset.Continuous}}
	d, err := dataset.NewUnlabeled([][]float64{{1, 2}})
	require.NoError(t, err)

	assert.NoError(t, CheckInferenceSet("test", e, 2, d))

	var dim *errors.DimensionError
	assert.True(t, errors.As(CheckInferenceSet("test", e, 3, d), &dim))
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	err := s.RequireFitted("Tree", "Predict")
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))

	s.SetFitted(4, 100)
	assert.NoError(t, s.RequireFitted("Tree", "Predict"))
	features, samples := s.GetDimensions()
	assert.Equal(t, 4, features)
	assert.Equal(t, 100, samples)

	restored := NewStateManager()
	restored.Restore(s.Snapshot())
	assert.True(t, restored.IsFitted())

	s.Reset()
	assert.False(t, s.IsFitted())
	assert.NotEqual(t, NewID(), NewID())
}
