package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Labeled is a dataset with one label per sample. Exactly one of labels and
// targets is set: labels for classification, targets for regression.
type Labeled struct {
	*Unlabeled
	labels  []string
	targets []float64
}

// NewLabeled creates a dataset with categorical labels.
func NewLabeled(samples [][]float64, labels []string, opts ...Option) (*Labeled, error) {
	if len(samples) != len(labels) {
		return nil, errors.NewDimensionError("dataset.NewLabeled", len(samples), len(labels), 0)
	}
	u, err := NewUnlabeled(samples, opts...)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []string{}
	}
	return &Labeled{Unlabeled: u, labels: labels}, nil
}

// NewContinuousLabeled creates a dataset with continuous targets.
func NewContinuousLabeled(samples [][]float64, targets []float64, opts ...Option) (*Labeled, error) {
	if len(samples) != len(targets) {
		return nil, errors.NewDimensionError("dataset.NewContinuousLabeled", len(samples), len(targets), 0)
	}
	u, err := NewUnlabeled(samples, opts...)
	if err != nil {
		return nil, err
	}
	if targets == nil {
		targets = []float64{}
	}
	return &Labeled{Unlabeled: u, targets: targets}, nil
}

// LabelType is Categorical for class labels and Continuous for targets.
func (d *Labeled) LabelType() DataType {
	if d.labels != nil {
		return Categorical
	}
	return Continuous
}

// Labels returns the class labels, nil for a continuous dataset.
func (d *Labeled) Labels() []string { return d.labels }

// Targets returns the continuous targets, nil for a categorical dataset.
func (d *Labeled) Targets() []float64 { return d.targets }

func (d *Labeled) Label(i int) string   { return d.labels[i] }
func (d *Labeled) Target(i int) float64 { return d.targets[i] }

// PossibleOutcomes returns the distinct labels in first-seen order.
func (d *Labeled) PossibleOutcomes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range d.labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Unlabel drops the labels.
func (d *Labeled) Unlabel() *Unlabeled { return d.Unlabeled }

// Subset returns the samples at the given indices, in that order. Indices may
// repeat.
func (d *Labeled) Subset(indices []int) *Labeled {
	rows := make([][]float64, len(indices))
	out := &Labeled{}
	if d.labels != nil {
		out.labels = make([]string, len(indices))
	} else {
		out.targets = make([]float64, len(indices))
	}
	for k, i := range indices {
		rows[k] = d.samples[i]
		if d.labels != nil {
			out.labels[k] = d.labels[i]
		} else {
			out.targets[k] = d.targets[i]
		}
	}
	out.Unlabeled = d.withRows(rows)
	return out
}

func (d *Labeled) slice(from, to int) *Labeled {
	out := &Labeled{Unlabeled: d.withRows(d.samples[from:to])}
	if d.labels != nil {
		out.labels = d.labels[from:to]
	} else {
		out.targets = d.targets[from:to]
	}
	return out
}

// PartitionByColumn splits the dataset on column i. For a continuous column
// the left group holds values <= value; for a categorical column the left
// group holds values == value.
func (d *Labeled) PartitionByColumn(i int, value float64) (left, right *Labeled) {
	categorical := d.types[i] == Categorical
	var l, r []int
	for k, row := range d.samples {
		if GoesLeft(row[i], value, categorical) {
			l = append(l, k)
		} else {
			r = append(r, k)
		}
	}
	return d.Subset(l), d.Subset(r)
}

// GoesLeft is the partition predicate shared by datasets and tree nodes.
func GoesLeft(sample, value float64, categorical bool) bool {
	if categorical {
		return sample == value
	}
	return sample <= value
}

// Randomize returns a shuffled copy.
func (d *Labeled) Randomize(rng *rand.Rand) *Labeled {
	return d.Subset(rng.Perm(d.NumSamples()))
}

// RandomSubset draws n samples without replacement.
func (d *Labeled) RandomSubset(n int, rng *rand.Rand) (*Labeled, error) {
	if n < 0 || n > d.NumSamples() {
		return nil, errors.NewValidationError("n", "cannot draw more samples than the dataset holds without replacement", n)
	}
	return d.Subset(rng.Perm(d.NumSamples())[:n]), nil
}

// RandomSubsetWithReplacement draws n samples with replacement.
func (d *Labeled) RandomSubsetWithReplacement(n int, rng *rand.Rand) (*Labeled, error) {
	if d.Empty() {
		return nil, errors.NewModelError("dataset.RandomSubsetWithReplacement", "empty data", errors.ErrEmptyData)
	}
	idx := make([]int, n)
	for k := range idx {
		idx[k] = rng.Intn(d.NumSamples())
	}
	return d.Subset(idx), nil
}

// RandomWeightedSubsetWithReplacement draws n samples with replacement, each
// sample chosen with probability proportional to its weight.
func (d *Labeled) RandomWeightedSubsetWithReplacement(n int, weights []float64, rng *rand.Rand) (*Labeled, error) {
	if len(weights) != d.NumSamples() {
		return nil, errors.NewDimensionError("dataset.RandomWeightedSubsetWithReplacement", d.NumSamples(), len(weights), 0)
	}
	cumulative := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, errors.NewValidationError("weights", "must be non-negative", w)
		}
		total += w
		cumulative[i] = total
	}
	if total <= 0 {
		return nil, errors.NewValidationError("weights", "must not all be zero", total)
	}
	idx := make([]int, n)
	for k := range idx {
		delta := rng.Float64() * total
		idx[k] = sort.SearchFloat64s(cumulative, delta)
		if idx[k] >= len(cumulative) {
			idx[k] = len(cumulative) - 1
		}
	}
	return d.Subset(idx), nil
}

// Split puts the first ratio of the samples on the left.
func (d *Labeled) Split(ratio float64) (left, right *Labeled, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, errors.NewValidationError("ratio", "must be strictly between 0 and 1", ratio)
	}
	n := int(math.Floor(ratio * float64(d.NumSamples())))
	return d.slice(0, n), d.slice(n, d.NumSamples()), nil
}

// Stratify groups sample indices by label, in first-seen label order.
func (d *Labeled) Stratify() ([]string, map[string][]int) {
	outcomes := d.PossibleOutcomes()
	strata := make(map[string][]int, len(outcomes))
	for i, l := range d.labels {
		strata[l] = append(strata[l], i)
	}
	return outcomes, strata
}

// StratifiedSplit splits every class by ratio so both sides keep the class
// proportions.
func (d *Labeled) StratifiedSplit(ratio float64) (left, right *Labeled, err error) {
	if d.LabelType() != Categorical {
		return nil, nil, errors.NewIncompatibleDataError("dataset.StratifiedSplit", -1, d.LabelType().String(), []string{Categorical.String()})
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, errors.NewValidationError("ratio", "must be strictly between 0 and 1", ratio)
	}
	outcomes, strata := d.Stratify()
	var l, r []int
	for _, o := range outcomes {
		idx := strata[o]
		n := int(math.Floor(ratio * float64(len(idx))))
		l = append(l, idx[:n]...)
		r = append(r, idx[n:]...)
	}
	return d.Subset(l), d.Subset(r), nil
}

// Fold cuts the dataset into k folds of equal size. Left-over samples are
// dropped.
func (d *Labeled) Fold(k int) ([]*Labeled, error) {
	if k < 2 {
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	}
	size := d.NumSamples() / k
	if size < 1 {
		return nil, errors.NewValidationError("k", "not enough samples for the number of folds", k)
	}
	folds := make([]*Labeled, k)
	for i := range folds {
		folds[i] = d.slice(i*size, (i+1)*size)
	}
	return folds, nil
}

// StratifiedFold cuts every class into k parts and merges part i of every
// class into fold i.
func (d *Labeled) StratifiedFold(k int) ([]*Labeled, error) {
	if d.LabelType() != Categorical {
		return nil, errors.NewIncompatibleDataError("dataset.StratifiedFold", -1, d.LabelType().String(), []string{Categorical.String()})
	}
	if k < 2 {
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	}
	outcomes, strata := d.Stratify()
	parts := make([][]int, k)
	for _, o := range outcomes {
		idx := strata[o]
		size := len(idx) / k
		for i := 0; i < k; i++ {
			parts[i] = append(parts[i], idx[i*size:(i+1)*size]...)
		}
	}
	folds := make([]*Labeled, k)
	for i, p := range parts {
		if len(p) == 0 {
			return nil, errors.NewValidationError("k", "not enough samples per class for the number of folds", k)
		}
		folds[i] = d.Subset(p)
	}
	return folds, nil
}

// Batch cuts the dataset into consecutive batches of at most size samples.
func (d *Labeled) Batch(size int) []*Labeled {
	if size < 1 {
		size = 1
	}
	var out []*Labeled
	for from := 0; from < d.NumSamples(); from += size {
		to := from + size
		if to > d.NumSamples() {
			to = d.NumSamples()
		}
		out = append(out, d.slice(from, to))
	}
	return out
}

// Merge appends other to d. Both datasets must share the schema and the label
// type.
func (d *Labeled) Merge(other *Labeled) (*Labeled, error) {
	if other.NumSamples() > 0 && d.NumSamples() > 0 && other.NumFeatures() != d.NumFeatures() {
		return nil, errors.NewDimensionError("dataset.Merge", d.NumFeatures(), other.NumFeatures(), 1)
	}
	if other.LabelType() != d.LabelType() {
		return nil, errors.NewIncompatibleDataError("dataset.Merge", -1, other.LabelType().String(), []string{d.LabelType().String()})
	}
	rows := make([][]float64, 0, d.NumSamples()+other.NumSamples())
	rows = append(append(rows, d.samples...), other.samples...)
	base := d.Unlabeled
	if d.Empty() {
		base = other.Unlabeled
	}
	out := &Labeled{Unlabeled: base.withRows(rows)}
	if d.labels != nil {
		out.labels = append(append(make([]string, 0, len(rows)), d.labels...), other.labels...)
	} else {
		out.targets = append(append(make([]float64, 0, len(rows)), d.targets...), other.targets...)
	}
	return out, nil
}
