package tree

import (
	"encoding/gob"

	"github.com/YuminosukeSato/sciforest/core/dataset"
)

// Node is either a *Split or a *Leaf.
type Node interface {
	// Samples is the number of training samples that reached the node.
	Samples() int
	isNode()
}

// Split is a binary decision on one column. Samples for which
// dataset.GoesLeft holds go to Left.
type Split struct {
	Column      int
	Value       float64
	Categorical bool

	// Impurity is the size weighted impurity of the two children and
	// ParentImpurity the impurity of the samples before the split.
	Impurity       float64
	ParentImpurity float64
	N              int

	Left  Node
	Right Node
}

func (s *Split) Samples() int { return s.N }
func (*Split) isNode()        {}

// GoesLeft reports whether sample takes the left branch.
func (s *Split) GoesLeft(sample []float64) bool {
	return dataset.GoesLeft(sample[s.Column], s.Value, s.Categorical)
}

// PurityIncrease is the decrease in impurity achieved by the split.
func (s *Split) PurityIncrease() float64 {
	return s.ParentImpurity - s.Impurity
}

// Leaf holds the outcome of a terminal node. Classification trees set Class
// and Probabilities, regression trees set Value.
type Leaf struct {
	Class         string
	Probabilities map[string]float64
	Value         float64
	Impurity      float64
	N             int
}

func (l *Leaf) Samples() int { return l.N }
func (*Leaf) isNode()        {}

func init() {
	gob.Register(&Split{})
	gob.Register(&Leaf{})
}

// Search walks from root to the leaf that sample falls into.
func Search(root Node, sample []float64) *Leaf {
	node := root
	for {
		switch n := node.(type) {
		case *Leaf:
			return n
		case *Split:
			if n.GoesLeft(sample) {
				node = n.Left
			} else {
				node = n.Right
			}
		default:
			return nil
		}
	}
}

// Height returns the number of levels below and including node.
func Height(node Node) int {
	s, ok := node.(*Split)
	if !ok {
		if node == nil {
			return 0
		}
		return 1
	}
	return 1 + max(Height(s.Left), Height(s.Right))
}

// Walk calls fn for node and all its descendants, depth first, left before
// right.
func Walk(node Node, fn func(Node)) {
	if node == nil {
		return
	}
	fn(node)
	if s, ok := node.(*Split); ok {
		Walk(s.Left, fn)
		Walk(s.Right, fn)
	}
}
