package ensemble

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/core/backend"
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

func blobs(t *testing.T, n int, seed int64) *dataset.Labeled {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	samples := make([][]float64, n)
	labels := make([]string, n)
	for i := range samples {
		center, label := 0.0, "a"
		if i%2 == 1 {
			center, label = 10, "b"
		}
		samples[i] = []float64{center + rng.NormFloat64(), center + rng.NormFloat64()}
		labels[i] = label
	}
	d, err := dataset.NewLabeled(samples, labels)
	require.NoError(t, err)
	return d
}

func TestRandomForestTrainPredict(t *testing.T) {
	d := blobs(t, 100, 1)
	forest, err := NewRandomForest(WithEstimators(20), WithRatio(0.5), WithRandomState(3))
	require.NoError(t, err)

	require.NoError(t, forest.Train(d))
	assert.True(t, forest.Trained())
	assert.Len(t, forest.Trees(), 20)
	assert.Equal(t, []string{"a", "b"}, forest.Classes())

	predictions, err := forest.Predict(d)
	require.NoError(t, err)
	assert.Equal(t, d.Labels(), predictions)
}

func TestRandomForestProbaSumsToOne(t *testing.T) {
	d := blobs(t, 60, 2)
	base, err := tree.NewExtraTreeClassifier()
	require.NoError(t, err)
	forest, err := NewRandomForest(WithBase(base), WithEstimators(15), WithRandomState(5), WithBalanced(true))
	require.NoError(t, err)
	require.NoError(t, forest.Train(d))

	probas, err := forest.Proba(d)
	require.NoError(t, err)
	require.Len(t, probas, 60)
	for _, dist := range probas {
		sum := 0.0
		for _, p := range dist {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
		assert.Contains(t, dist, "a")
		assert.Contains(t, dist, "b")
	}
}

func TestRandomForestBackendsAgree(t *testing.T) {
	d := blobs(t, 80, 4)
	test := blobs(t, 40, 5)

	serial, err := NewRandomForest(WithEstimators(10), WithRatio(0.3), WithRandomState(9))
	require.NoError(t, err)
	parallel, err := NewRandomForest(WithEstimators(10), WithRatio(0.3), WithRandomState(9),
		WithBackend(backend.NewWorkers(4)))
	require.NoError(t, err)

	require.NoError(t, serial.Train(d))
	require.NoError(t, parallel.Train(d))

	want, err := serial.Proba(test)
	require.NoError(t, err)
	got, err := parallel.Proba(test)
	require.NoError(t, err)
	for i := range want {
		for class, p := range want[i] {
			assert.InDelta(t, p, got[i][class], 1e-12)
		}
	}
}

func TestPluralityTieBreak(t *testing.T) {
	order := []string{"b", "a", "c"}

	assert.Equal(t, "b", plurality([]string{"a", "b"}, order))
	assert.Equal(t, "b", plurality([]string{"c", "a", "b"}, order))
	assert.Equal(t, "a", plurality([]string{"c", "a", "a", "b"}, order))
	assert.Equal(t, "c", plurality([]string{"c"}, order))
}

func TestRandomForestNotTrained(t *testing.T) {
	forest, err := NewRandomForest()
	require.NoError(t, err)
	d, err := dataset.NewUnlabeled([][]float64{{1, 2}})
	require.NoError(t, err)

	var notFitted *errors.NotFittedError
	_, err = forest.Predict(d)
	assert.True(t, errors.As(err, &notFitted))
	_, err = forest.Proba(d)
	assert.True(t, errors.As(err, &notFitted))
	_, err = forest.FeatureImportances()
	assert.True(t, errors.As(err, &notFitted))
}

func TestRandomForestOptions(t *testing.T) {
	var validation *errors.ValidationError

	_, err := NewRandomForest(WithEstimators(0))
	assert.True(t, errors.As(err, &validation))
	_, err = NewRandomForest(WithRatio(0))
	assert.True(t, errors.As(err, &validation))
	_, err = NewRandomForest(WithRatio(1.6))
	assert.True(t, errors.As(err, &validation))
	_, err = NewRandomForest(WithBackend(nil))
	assert.True(t, errors.As(err, &validation))

	regressor, err := tree.NewExtraTreeRegressor()
	require.NoError(t, err)
	_, err = NewRandomForest(WithBase(regressor))
	assert.True(t, errors.As(err, &validation))

	forest, err := NewRandomForest(WithRatio(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1.5, forest.Params()["ratio"])
	assert.Equal(t, 100, forest.Params()["estimators"])
	assert.True(t, model.Has(forest, model.Probabilistic|model.Ranking))
}

func TestRandomForestRejectsContinuousLabels(t *testing.T) {
	forest, err := NewRandomForest(WithEstimators(2))
	require.NoError(t, err)
	d, err := dataset.NewContinuousLabeled([][]float64{{1}, {2}}, []float64{1, 2})
	require.NoError(t, err)

	var incompatible *errors.IncompatibleDataError
	assert.True(t, errors.As(forest.Train(d), &incompatible))
	assert.False(t, forest.Trained())
}

func TestRandomForestFeatureImportances(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	samples := make([][]float64, 120)
	labels := make([]string, 120)
	for i := range samples {
		x := rng.Float64()
		samples[i] = []float64{x, rng.Float64()}
		labels[i] = "low"
		if x > 0.5 {
			labels[i] = "high"
		}
	}
	d, err := dataset.NewLabeled(samples, labels)
	require.NoError(t, err)

	base, err := tree.NewClassificationTree(tree.WithMaxFeatures(2))
	require.NoError(t, err)
	forest, err := NewRandomForest(WithBase(base), WithEstimators(10), WithRatio(1), WithRandomState(1))
	require.NoError(t, err)
	require.NoError(t, forest.Train(d))

	importances, err := forest.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, importances, 2)
	assert.Greater(t, importances[0], importances[1])
	assert.InDelta(t, 1.0, importances[0]+importances[1], 1e-9)
}

func TestRandomForestPersistence(t *testing.T) {
	d := blobs(t, 40, 8)
	forest, err := NewRandomForest(WithEstimators(5), WithRatio(0.5), WithRandomState(2))
	require.NoError(t, err)
	require.NoError(t, forest.Train(d))

	blob, err := forest.MarshalBinary()
	require.NoError(t, err)

	restored, err := NewRandomForest()
	require.NoError(t, err)
	require.NoError(t, restored.UnmarshalBinary(blob))

	want, err := forest.Proba(d)
	require.NoError(t, err)
	got, err := restored.Proba(d)
	require.NoError(t, err)
	for i := range want {
		for class, p := range want[i] {
			assert.Equal(t, p, got[i][class])
		}
	}
	assert.False(t, math.IsNaN(got[0]["a"]))
}
