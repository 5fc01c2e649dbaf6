package neural_network

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/neural/activation"
	"github.com/YuminosukeSato/sciforest/neural/layer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

func blobs(t *testing.T, n int, seed int64) *dataset.Labeled {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	samples := make([][]float64, n)
	labels := make([]string, n)
	for i := range samples {
		center, label := 0.0, "a"
		if i%2 == 1 {
			center, label = 6, "b"
		}
		samples[i] = []float64{center + rng.NormFloat64(), center + rng.NormFloat64()}
		labels[i] = label
	}
	d, err := dataset.NewLabeled(samples, labels)
	require.NoError(t, err)
	return d
}

func plane(t *testing.T, n int, seed int64) *dataset.Labeled {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	samples := make([][]float64, n)
	targets := make([]float64, n)
	for i := range samples {
		x1, x2 := rng.Float64(), rng.Float64()
		samples[i] = []float64{x1, x2}
		targets[i] = 2*x1 - 3*x2 + 1
	}
	d, err := dataset.NewContinuousLabeled(samples, targets)
	require.NoError(t, err)
	return d
}

func accuracy(predictions, labels []string) float64 {
	correct := 0
	for i := range predictions {
		if predictions[i] == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

func newPerceptron(t *testing.T, opts ...Option) *MultilayerPerceptron {
	t.Helper()
	dense, err := layer.NewDense(8, 0, true, nil, nil)
	require.NoError(t, err)
	relu, err := layer.NewActivation(activation.ReLU{})
	require.NoError(t, err)
	adam, err := optimizer.NewAdam(0.01, 0.1, 0.001)
	require.NoError(t, err)

	base := []Option{
		WithHiddenLayers(dense, relu),
		WithOptimizer(adam),
		WithBatchSize(16),
		WithEpochs(100),
		WithHoldOut(0.2),
		WithRandomState(1),
	}
	m, err := NewMultilayerPerceptron(append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func TestMultilayerPerceptronTrainPredict(t *testing.T) {
	d := blobs(t, 100, 1)
	m := newPerceptron(t)

	require.NoError(t, m.Train(d))
	assert.True(t, m.Trained())
	assert.Equal(t, []string{"a", "b"}, m.Classes())
	assert.NotEmpty(t, m.Steps())
	assert.Len(t, m.Scores(), len(m.Steps()))

	predictions, err := m.Predict(d)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, accuracy(predictions, d.Labels()), 0.9)

	probas, err := m.Proba(d)
	require.NoError(t, err)
	require.Len(t, probas, d.NumSamples())
	for i, dist := range probas {
		assert.InDelta(t, 1.0, dist["a"]+dist["b"], 1e-9)
		if dist["a"] > dist["b"] {
			assert.Equal(t, "a", predictions[i])
		}
	}
}

func TestMultilayerPerceptronLeavesTemplatesUntouched(t *testing.T) {
	template, err := layer.NewDense(4, 0, true, nil, nil)
	require.NoError(t, err)
	m, err := NewMultilayerPerceptron(WithHiddenLayers(template), WithEpochs(2), WithRandomState(1))
	require.NoError(t, err)

	require.NoError(t, m.Train(blobs(t, 40, 2)))
	assert.Nil(t, template.Weights)
	assert.Len(t, m.Network().Hidden(), 2)
	assert.NotSame(t, template, m.Network().Hidden()[0])
}

func TestMultilayerPerceptronPartial(t *testing.T) {
	d := blobs(t, 60, 3)
	m := newPerceptron(t, WithEpochs(3))

	require.NoError(t, m.Partial(d))
	assert.True(t, m.Trained())
	steps := len(m.Steps())

	require.NoError(t, m.Partial(d))
	assert.Greater(t, len(m.Steps()), steps)

	wide, err := dataset.NewLabeled([][]float64{{1, 2, 3}, {4, 5, 6}}, []string{"a", "b"})
	require.NoError(t, err)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(m.Partial(wide), &dimErr))

	unknown, err := dataset.NewLabeled([][]float64{{1, 2}, {3, 4}}, []string{"a", "c"})
	require.NoError(t, err)
	var incompatible *errors.IncompatibleDataError
	assert.True(t, errors.As(m.Partial(unknown), &incompatible))
	assert.True(t, m.Trained())
}

func TestMultilayerPerceptronPreconditions(t *testing.T) {
	m := newPerceptron(t)

	_, err := m.Predict(blobs(t, 4, 1))
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	single, err := dataset.NewLabeled([][]float64{{1, 2}, {3, 4}}, []string{"a", "a"})
	require.NoError(t, err)
	assert.Error(t, m.Train(single))

	reg := plane(t, 10, 1)
	var incompatible *errors.IncompatibleDataError
	assert.True(t, errors.As(m.Train(reg), &incompatible))
}

func TestMultilayerPerceptronPersistence(t *testing.T) {
	d := blobs(t, 60, 4)
	m := newPerceptron(t, WithEpochs(10))
	require.NoError(t, m.Train(d))

	blob, err := m.MarshalBinary()
	require.NoError(t, err)

	loaded, err := NewMultilayerPerceptron()
	require.NoError(t, err)
	require.NoError(t, loaded.UnmarshalBinary(blob))

	want, err := m.Proba(d)
	require.NoError(t, err)
	got, err := loaded.Proba(d)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, m.Steps(), loaded.Steps())
}

func TestMultilayerPerceptronFresh(t *testing.T) {
	m := newPerceptron(t)
	require.NoError(t, m.Train(blobs(t, 40, 5)))

	fresh := m.Fresh()
	assert.False(t, fresh.Trained())
	assert.Equal(t, m.Params(), fresh.Params())
	assert.True(t, model.Has(fresh, model.Online|model.Probabilistic))
}

func TestMultilayerPerceptronLogsTraining(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	previous := log.Provider()
	log.SetProvider(provider)
	defer log.SetProvider(previous)

	m := newPerceptron(t, WithEpochs(2))
	require.NoError(t, m.Train(blobs(t, 40, 6)))

	assert.True(t, logger.ContainsMessage("Training started"))
	assert.True(t, logger.ContainsMessage("Epoch completed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "MultilayerPerceptron"))
}

func TestAdalineFitsPlane(t *testing.T) {
	d := plane(t, 200, 1)
	sgd, err := optimizer.NewStochastic(0.1)
	require.NoError(t, err)
	a, err := NewAdaline(
		WithOptimizer(sgd),
		WithBatchSize(10),
		WithEpochs(500),
		WithAlpha(0),
		WithMinChange(0),
		WithWindow(50),
		WithRandomState(1),
	)
	require.NoError(t, err)

	require.NoError(t, a.Train(d))
	assert.True(t, a.Trained())

	predictions, err := a.Predict(d)
	require.NoError(t, err)
	assert.InDeltaSlice(t, d.Targets(), predictions, 0.05)

	importances, err := a.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, importances, 2)
	assert.InDelta(t, 0.4, importances[0], 0.02)
	assert.InDelta(t, 0.6, importances[1], 0.02)

	steps := a.Steps()
	require.NotEmpty(t, steps)
	assert.Less(t, steps[len(steps)-1], steps[0])
}

func TestAdalineDivergenceAborts(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	samples := make([][]float64, 20)
	targets := make([]float64, 20)
	for i := range samples {
		samples[i] = []float64{100 + rng.Float64()*100}
		targets[i] = 1000 * samples[i][0]
	}
	d, err := dataset.NewContinuousLabeled(samples, targets)
	require.NoError(t, err)

	sgd, err := optimizer.NewStochastic(1e6)
	require.NoError(t, err)
	a, err := NewAdaline(WithOptimizer(sgd), WithBatchSize(1), WithEpochs(50), WithWindow(100), WithRandomState(1))
	require.NoError(t, err)

	err = a.Train(d)
	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &numErr), "got %v", err)
	assert.False(t, a.Trained())
}

func TestAdalinePersistenceAndPartial(t *testing.T) {
	d := plane(t, 50, 3)
	a, err := NewAdaline(WithEpochs(5), WithRandomState(2))
	require.NoError(t, err)
	require.NoError(t, a.Partial(d))

	blob, err := a.MarshalBinary()
	require.NoError(t, err)
	loaded, err := NewAdaline()
	require.NoError(t, err)
	require.NoError(t, loaded.UnmarshalBinary(blob))

	want, err := a.Predict(d)
	require.NoError(t, err)
	got, err := loaded.Predict(d)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, loaded.Partial(d))
	assert.Greater(t, len(loaded.Steps()), len(a.Steps()))
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"batch size", WithBatchSize(0)},
		{"epochs", WithEpochs(0)},
		{"window", WithWindow(0)},
		{"alpha", WithAlpha(-1)},
		{"min change", WithMinChange(-0.1)},
		{"hold out too large", WithHoldOut(0.6)},
		{"hold out zero", WithHoldOut(0)},
		{"nil optimizer", WithOptimizer(nil)},
		{"nil metric", WithMetric(nil)},
		{"nil hidden layer", WithHiddenLayers(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMultilayerPerceptron(tt.opt)
			var validation *errors.ValidationError
			assert.True(t, errors.As(err, &validation), "got %v", err)
		})
	}
}

func TestUntrainedAdaline(t *testing.T) {
	a, err := NewAdaline()
	require.NoError(t, err)

	_, err = a.Predict(plane(t, 3, 1))
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	_, err = a.FeatureImportances()
	assert.True(t, errors.As(err, &notFitted))

	_, err = a.MarshalBinary()
	assert.Error(t, err)
	assert.Equal(t, 5, a.Params()["window"])
	assert.NotContains(t, a.Params(), "hidden_layers")
}

func TestAdalineWarnsWhenEpochsRunOut(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	previous := log.Provider()
	log.SetProvider(provider)
	defer log.SetProvider(previous)

	a, err := NewAdaline(WithEpochs(1), WithRandomState(1))
	require.NoError(t, err)
	require.NoError(t, a.Train(plane(t, 30, 4)))

	assert.True(t, logger.ContainsMessage("Adaline failed to converge after 1 iterations: loss still changing after the last epoch"))
}
