package tree

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciforest/core/dataset"
)

// impurityTolerance ends the split search early: a split this pure cannot be
// improved on in any meaningful way.
const impurityTolerance = 1e-4

// Entropy returns -Σ p·log(p) over the class proportions of labels. Groups of
// at most one sample have entropy 0.
func Entropy(labels []string) float64 {
	n := len(labels)
	if n <= 1 {
		return 0
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	return entropyOfCounts(counts, n)
}

func entropyOfCounts(counts map[string]int, n int) float64 {
	if n <= 1 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		h -= p * math.Log(p)
	}
	return h
}

// Variance returns the population variance of targets, 0 for at most one
// value.
func Variance(targets []float64) float64 {
	if len(targets) <= 1 {
		return 0
	}
	_, v := stat.PopMeanVariance(targets, nil)
	return v
}

// criterion scores nodes and produces leaves for one kind of label.
type criterion interface {
	// impurity of the labels of d.
	impurity(d *dataset.Labeled) float64

	// splitImpurity is the size weighted impurity of the two groups produced
	// by partitioning d on column at value.
	splitImpurity(d *dataset.Labeled, column int, value float64, categorical bool) float64

	// terminate builds the leaf for d.
	terminate(d *dataset.Labeled) *Leaf
}

// entropyCriterion is the classification criterion.
type entropyCriterion struct{}

func (entropyCriterion) impurity(d *dataset.Labeled) float64 {
	return Entropy(d.Labels())
}

func (entropyCriterion) splitImpurity(d *dataset.Labeled, column int, value float64, categorical bool) float64 {
	left := make(map[string]int)
	right := make(map[string]int)
	nLeft := 0
	for i, row := range d.Samples() {
		if dataset.GoesLeft(row[column], value, categorical) {
			left[d.Label(i)]++
			nLeft++
		} else {
			right[d.Label(i)]++
		}
	}
	n := d.NumSamples()
	nRight := n - nLeft
	return (float64(nLeft)*entropyOfCounts(left, nLeft) + float64(nRight)*entropyOfCounts(right, nRight)) / float64(n)
}

// terminate picks the most frequent label. Ties go to the label seen first.
func (entropyCriterion) terminate(d *dataset.Labeled) *Leaf {
	n := d.NumSamples()
	counts := make(map[string]int)
	for _, l := range d.Labels() {
		counts[l]++
	}
	outcome := ""
	best := -1
	for _, l := range d.PossibleOutcomes() {
		if counts[l] > best {
			outcome, best = l, counts[l]
		}
	}
	probabilities := make(map[string]float64, len(counts))
	for l, c := range counts {
		probabilities[l] = float64(c) / float64(n)
	}
	return &Leaf{
		Class:         outcome,
		Probabilities: probabilities,
		Impurity:      entropyOfCounts(counts, n),
		N:             n,
	}
}

// varianceCriterion is the regression criterion.
type varianceCriterion struct{}

func (varianceCriterion) impurity(d *dataset.Labeled) float64 {
	return Variance(d.Targets())
}

func (varianceCriterion) splitImpurity(d *dataset.Labeled, column int, value float64, categorical bool) float64 {
	var left, right []float64
	for i, row := range d.Samples() {
		if dataset.GoesLeft(row[column], value, categorical) {
			left = append(left, d.Target(i))
		} else {
			right = append(right, d.Target(i))
		}
	}
	n := float64(d.NumSamples())
	return (float64(len(left))*Variance(left) + float64(len(right))*Variance(right)) / n
}

func (varianceCriterion) terminate(d *dataset.Labeled) *Leaf {
	targets := d.Targets()
	return &Leaf{
		Value:    floats.Sum(targets) / float64(len(targets)),
		Impurity: Variance(targets),
		N:        len(targets),
	}
}
