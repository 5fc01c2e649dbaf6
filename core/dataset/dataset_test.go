package dataset

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

func newFixture(t *testing.T) *Labeled {
	t.Helper()
	d, err := NewLabeled(
		[][]float64{{1, 10}, {2, 20}, {3, 10}, {4, 30}, {5, 20}, {6, 10}},
		[]string{"a", "b", "a", "b", "a", "b"},
		WithCategorical(1),
	)
	require.NoError(t, err)
	return d
}

func TestNewLabeledValidatesShape(t *testing.T) {
	_, err := NewLabeled([][]float64{{1, 2}, {3}}, []string{"a", "b"})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr), "ragged rows: %v", err)

	_, err = NewLabeled([][]float64{{1}, {2}}, []string{"a"})
	assert.True(t, errors.As(err, &dimErr), "label count: %v", err)

	_, err = NewUnlabeled([][]float64{{1, 2}}, WithTypes(Continuous))
	assert.True(t, errors.As(err, &dimErr), "types count: %v", err)
}

func TestColumnAndTypes(t *testing.T) {
	d := newFixture(t)

	assert.Equal(t, 6, d.NumSamples())
	assert.Equal(t, 2, d.NumFeatures())
	assert.Equal(t, []float64{10, 20, 10, 30, 20, 10}, d.Column(1))
	assert.Equal(t, Continuous, d.ColumnType(0))
	assert.Equal(t, Categorical, d.ColumnType(1))
	assert.Equal(t, Categorical, d.LabelType())
	assert.Equal(t, []string{"a", "b"}, d.PossibleOutcomes())
	assert.Equal(t, []float64{10, 20, 30}, Unique(d, 1))
}

func TestPartitionByColumn(t *testing.T) {
	d := newFixture(t)

	t.Run("continuous uses <=", func(t *testing.T) {
		left, right := d.PartitionByColumn(0, 3)
		assert.Equal(t, []float64{1, 2, 3}, left.Column(0))
		assert.Equal(t, []float64{4, 5, 6}, right.Column(0))
		assert.Equal(t, []string{"a", "b", "a"}, left.Labels())
	})

	t.Run("categorical uses ==", func(t *testing.T) {
		left, right := d.PartitionByColumn(1, 10)
		assert.Equal(t, []float64{10, 10, 10}, left.Column(1))
		assert.Equal(t, 3, right.NumSamples())
		assert.Equal(t, Categorical, right.ColumnType(1))
	})

	t.Run("empty side keeps label type", func(t *testing.T) {
		left, right := d.PartitionByColumn(0, 100)
		assert.Equal(t, 6, left.NumSamples())
		assert.True(t, right.Empty())
		assert.Equal(t, Categorical, right.LabelType())
	})
}

func TestSamplingDoesNotMutate(t *testing.T) {
	d := newFixture(t)
	before := append([]string(nil), d.Labels()...)
	rng := rand.New(rand.NewSource(1))

	shuffled := d.Randomize(rng)
	assert.Equal(t, 6, shuffled.NumSamples())
	assert.ElementsMatch(t, before, shuffled.Labels())

	sub, err := d.RandomSubset(4, rng)
	require.NoError(t, err)
	assert.Equal(t, 4, sub.NumSamples())

	_, err = d.RandomSubset(7, rng)
	assert.Error(t, err)

	boot, err := d.RandomSubsetWithReplacement(12, rng)
	require.NoError(t, err)
	assert.Equal(t, 12, boot.NumSamples())

	assert.Equal(t, before, d.Labels())
}

func TestRandomWeightedSubsetWithReplacement(t *testing.T) {
	d := newFixture(t)
	rng := rand.New(rand.NewSource(7))

	weights := []float64{0, 0, 0, 0, 0, 1}
	sub, err := d.RandomWeightedSubsetWithReplacement(20, weights, rng)
	require.NoError(t, err)
	for _, row := range sub.Samples() {
		assert.Equal(t, 6.0, row[0])
	}

	_, err = d.RandomWeightedSubsetWithReplacement(3, []float64{1, 2}, rng)
	assert.Error(t, err)

	_, err = d.RandomWeightedSubsetWithReplacement(3, make([]float64, 6), rng)
	assert.Error(t, err)
}

func TestFoldsAndBatches(t *testing.T) {
	d := newFixture(t)

	folds, err := d.Fold(3)
	require.NoError(t, err)
	require.Len(t, folds, 3)
	for _, f := range folds {
		assert.Equal(t, 2, f.NumSamples())
	}

	strat, err := d.StratifiedFold(3)
	require.NoError(t, err)
	for _, f := range strat {
		assert.ElementsMatch(t, []string{"a", "b"}, f.Labels())
	}

	_, err = d.Fold(1)
	assert.Error(t, err)

	batches := d.Batch(4)
	require.Len(t, batches, 2)
	assert.Equal(t, 4, batches[0].NumSamples())
	assert.Equal(t, 2, batches[1].NumSamples())
}

func TestSplits(t *testing.T) {
	d := newFixture(t)

	left, right, err := d.Split(0.5)
	require.NoError(t, err)
	assert.Equal(t, 3, left.NumSamples())
	assert.Equal(t, 3, right.NumSamples())

	left, right, err = d.StratifiedSplit(0.67)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "b", "b"}, left.Labels())
	assert.Equal(t, 2, right.NumSamples())

	reg, err := NewContinuousLabeled([][]float64{{1}, {2}}, []float64{1, 2})
	require.NoError(t, err)
	_, _, err = reg.StratifiedSplit(0.5)
	var incompatible *errors.IncompatibleDataError
	assert.True(t, errors.As(err, &incompatible))
}

func TestMerge(t *testing.T) {
	d := newFixture(t)
	left, right := d.PartitionByColumn(0, 2)

	merged, err := left.Merge(right)
	require.NoError(t, err)
	assert.Equal(t, d.Column(0), merged.Column(0))
	assert.Equal(t, d.Labels(), merged.Labels())

	reg, err := NewContinuousLabeled([][]float64{{1, 1}}, []float64{1})
	require.NoError(t, err)
	_, err = d.Merge(reg)
	assert.Error(t, err)
}

func TestFromCSV(t *testing.T) {
	input := `size,color,label
1.5,red,a
2.5,blue,b
3.5,red,a
`
	d, err := FromCSV(strings.NewReader(input), CSVOptions{Header: true, LabelColumn: -1})
	require.NoError(t, err)

	assert.Equal(t, 3, d.NumSamples())
	assert.Equal(t, []DataType{Continuous, Categorical}, d.Types())
	assert.Equal(t, CategoryCode("red"), d.Sample(0)[1])
	assert.Equal(t, d.Sample(0)[1], d.Sample(2)[1])
	assert.Equal(t, []string{"a", "b", "a"}, d.Labels())

	reg, err := FromCSV(strings.NewReader("1,2\n2,4\n"), CSVOptions{LabelColumn: 1, ContinuousLabels: true})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, reg.Targets())

	_, err = FromCSV(strings.NewReader("x,y\n"), CSVOptions{Header: true})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestNPYRoundTrip(t *testing.T) {
	features, err := NewUnlabeled([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	labels, err := NewUnlabeled([][]float64{{0}, {1}, {0}})
	require.NoError(t, err)

	var fbuf, lbuf bytes.Buffer
	require.NoError(t, WriteNPY(&fbuf, features))
	require.NoError(t, WriteNPY(&lbuf, labels))

	d, err := FromNPY(&fbuf, &lbuf, false)
	require.NoError(t, err)
	assert.Equal(t, features.Samples(), d.Samples())
	assert.Equal(t, []string{"0", "1", "0"}, d.Labels())
}
