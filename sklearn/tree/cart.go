package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciforest/core/dataset"
)

// candidate is a proposed split together with the groups it produces. The
// groups are only held until the children have been built.
type candidate struct {
	column      int
	value       float64
	categorical bool
	impurity    float64
}

// splitSearch proposes the best split of d among columns, or reports false
// when no column can split d.
type splitSearch func(b *builder, d *dataset.Labeled, columns []int) (candidate, bool)

// builder grows a tree depth first.
type builder struct {
	cfg    Config
	crit   criterion
	search splitSearch
	rng    *rand.Rand

	columns     []int
	maxFeatures int
}

// pending is a split node whose children have not been built yet.
type pending struct {
	node        *Split
	left, right *dataset.Labeled
	depth       int
}

// grow builds the tree for d. d must not be empty. The root follows the same
// rules as every other node, so a set no column can split becomes a single
// leaf.
func (b *builder) grow(d *dataset.Labeled) Node {
	b.columns = make([]int, d.NumFeatures())
	for i := range b.columns {
		b.columns[i] = i
	}
	b.maxFeatures = b.cfg.MaxFeatures
	if b.maxFeatures == 0 {
		b.maxFeatures = max(1, int(math.Round(math.Sqrt(float64(d.NumFeatures())))))
	}

	root, first, ok := b.child(d, 1)
	if !ok {
		return root
	}

	stack := []pending{first}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		left, right := current.left, current.right
		current.left, current.right = nil, nil
		depth := current.depth + 1

		if left.Empty() || right.Empty() {
			merged, _ := left.Merge(right)
			leaf := b.crit.terminate(merged)
			current.node.Left, current.node.Right = leaf, leaf
			continue
		}

		if depth >= b.cfg.MaxHeight {
			current.node.Left = b.crit.terminate(left)
			current.node.Right = b.crit.terminate(right)
			continue
		}

		var next pending
		current.node.Left, next, ok = b.child(left, depth)
		if ok {
			stack = append(stack, next)
		}
		current.node.Right, next, ok = b.child(right, depth)
		if ok {
			stack = append(stack, next)
		}
	}
	return root
}

// child splits d when it holds more than MaxLeafSize samples and the best
// split improves its impurity by at least MinPurityIncrease. Otherwise it
// returns a leaf. A set that no column can split becomes a leaf with
// impurity 0.
func (b *builder) child(d *dataset.Labeled, depth int) (Node, pending, bool) {
	columns := b.candidates(d)
	if len(columns) == 0 {
		leaf := b.crit.terminate(d)
		leaf.Impurity = 0
		return leaf, pending{}, false
	}
	if d.NumSamples() > b.cfg.MaxLeafSize {
		if p, ok := b.split(d, columns, depth); ok {
			if p.node.Impurity+b.cfg.MinPurityIncrease < p.node.ParentImpurity {
				return p.node, p, true
			}
		}
	}
	return b.crit.terminate(d), pending{}, false
}

// candidates picks up to maxFeatures random columns among those holding
// more than one distinct value in d.
func (b *builder) candidates(d *dataset.Labeled) []int {
	b.rng.Shuffle(len(b.columns), func(i, j int) {
		b.columns[i], b.columns[j] = b.columns[j], b.columns[i]
	})
	var columns []int
	for _, c := range b.columns {
		if !isConstant(d, c) {
			columns = append(columns, c)
		}
		if len(columns) == b.maxFeatures {
			break
		}
	}
	return columns
}

// split finds the best split of d among columns.
func (b *builder) split(d *dataset.Labeled, columns []int, depth int) (pending, bool) {
	best, ok := b.search(b, d, columns)
	if !ok {
		return pending{}, false
	}
	left, right := d.PartitionByColumn(best.column, best.value)
	return pending{
		node: &Split{
			Column:         best.column,
			Value:          best.value,
			Categorical:    best.categorical,
			Impurity:       best.impurity,
			ParentImpurity: b.crit.impurity(d),
			N:              d.NumSamples(),
		},
		left:  left,
		right: right,
		depth: depth,
	}, true
}

func isConstant(d *dataset.Labeled, column int) bool {
	samples := d.Samples()
	first := samples[0][column]
	for _, row := range samples[1:] {
		if row[column] != first {
			return false
		}
	}
	return true
}

// phi is the resolution of randomly drawn continuous split values.
const phi = 1e8

// randomSplit draws one split value per column: uniform over the observed
// range for continuous columns and a uniformly chosen observed category for
// categorical ones.
func randomSplit(b *builder, d *dataset.Labeled, columns []int) (candidate, bool) {
	best := candidate{impurity: math.Inf(1)}
	for _, column := range columns {
		categorical := d.ColumnType(column) == dataset.Categorical
		var value float64
		if categorical {
			values := dataset.Unique(d, column)
			value = values[b.rng.Intn(len(values))]
		} else {
			value = randomValue(b.rng, d.Column(column))
		}

		impurity := b.crit.splitImpurity(d, column, value, categorical)
		if impurity < best.impurity {
			best = candidate{column: column, value: value, categorical: categorical, impurity: impurity}
		}
		if impurity <= impurityTolerance {
			break
		}
	}
	return best, !math.IsInf(best.impurity, 1)
}

func randomValue(rng *rand.Rand, values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lower, upper := math.Floor(lo*phi), math.Ceil(hi*phi)
	if math.Abs(lower) < 1<<62 && math.Abs(upper) < 1<<62 {
		return float64(int64(lower)+rng.Int63n(int64(upper-lower)+1)) / phi
	}
	return lo + rng.Float64()*(hi-lo)
}

// exhaustiveSplit tries every distinct value of every column. Continuous
// columns with more than MaxBins distinct values are reduced to MaxBins-1
// quantiles.
func exhaustiveSplit(b *builder, d *dataset.Labeled, columns []int) (candidate, bool) {
	best := candidate{impurity: math.Inf(1)}
	for _, column := range columns {
		categorical := d.ColumnType(column) == dataset.Categorical
		values := dataset.Unique(d, column)
		if !categorical {
			values = splitPoints(values, b.cfg.MaxBins)
		}
		for _, value := range values {
			impurity := b.crit.splitImpurity(d, column, value, categorical)
			if impurity < best.impurity {
				best = candidate{column: column, value: value, categorical: categorical, impurity: impurity}
			}
			if impurity <= impurityTolerance {
				return best, true
			}
		}
	}
	return best, !math.IsInf(best.impurity, 1)
}

// splitPoints returns the midpoints between adjacent distinct values, or
// bins-1 midpoints taken at the empirical quantiles when there are more than
// bins distinct values. Every point lies strictly inside the observed range.
func splitPoints(values []float64, bins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) <= bins {
		points := make([]float64, len(sorted)-1)
		for i := range points {
			points[i] = midpoint(sorted[i], sorted[i+1])
		}
		return points
	}
	points := make([]float64, 0, bins-1)
	for i := 1; i < bins; i++ {
		q := stat.Quantile(float64(i)/float64(bins), stat.Empirical, sorted, nil)
		k := sort.SearchFloat64s(sorted, q)
		if k >= len(sorted)-1 {
			continue
		}
		p := midpoint(sorted[k], sorted[k+1])
		if len(points) == 0 || points[len(points)-1] != p {
			points = append(points, p)
		}
	}
	return points
}

// midpoint is halfway between a and b, falling back to a when the halfway
// value rounds up to b.
func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}
