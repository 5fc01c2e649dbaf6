// Package layer implements the input, hidden and output layers of a
// feed-forward network.
//
// Activations flow as samples x width matrices. During training a layer's
// Forward caches what its backward pass needs and Back consumes that cache,
// so every Back must follow a Forward on the same layer. Gradients travel
// backwards as Deferred values: a layer hands its predecessor a closure over
// the cached tensors instead of a materialized matrix.
package layer

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/neural/param"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Layer is the part shared by every layer.
type Layer interface {
	// Width is the number of output columns. It is only defined after
	// Initialize for layers whose width follows their input.
	Width() int

	// Initialize sizes the layer for fanIn input columns, allocates its
	// parameters and returns the fan out.
	Initialize(fanIn int, rng *rand.Rand) (int, error)

	// Forward computes the activations and caches what Back needs.
	Forward(input *mat.Dense) *mat.Dense

	// Infer computes the activations without touching the cache.
	Infer(input *mat.Dense) *mat.Dense

	String() string
}

// Hidden is a layer between the input and the output.
type Hidden interface {
	Layer

	// Back updates the layer's parameters from the gradient of the layer
	// above and returns the gradient for the layer below.
	Back(prev *Deferred, opt optimizer.Optimizer) *Deferred
}

// Output is the last layer of a network. It turns the labels of a batch
// into the first gradient of the backward pass and the batch loss.
type Output interface {
	Layer
	Back(batch *dataset.Labeled, opt optimizer.Optimizer) (*Deferred, float64, error)
}

// Parametric is a layer with trainable parameters.
type Parametric interface {
	Parameters() []*param.Parameter
}

// Randomized is a layer that draws random numbers during Forward.
type Randomized interface {
	SetRand(rng *rand.Rand)
}

// Deferred is a gradient whose computation is postponed until the layer
// below consumes it.
type Deferred struct {
	compute func() *mat.Dense
	value   *mat.Dense
}

// Defer wraps compute in a Deferred.
func Defer(compute func() *mat.Dense) *Deferred {
	return &Deferred{compute: compute}
}

// Ready wraps an already computed gradient.
func Ready(g *mat.Dense) *Deferred {
	return &Deferred{value: g}
}

// Force computes the gradient. The closure runs at most once; its captured
// tensors are released afterwards.
func (d *Deferred) Force() *mat.Dense {
	if d == nil || (d.compute == nil && d.value == nil) {
		errors.Violation("layer.Deferred", "forced a gradient that was never produced")
	}
	if d.value == nil {
		d.value = d.compute()
		d.compute = nil
	}
	return d.value
}

func mustInitialize(component string, ok bool) {
	if !ok {
		errors.Violation(component, "layer has not been initialized")
	}
}

func mustForward(component string, ok bool) {
	if !ok {
		errors.Violation(component, "must perform a forward pass before backpropagating")
	}
}

// columnSums returns the 1 x c row of column sums of m.
func columnSums(m *mat.Dense) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(1, c, nil)
	for j := 0; j < c; j++ {
		out.Set(0, j, mat.Sum(m.ColView(j)))
	}
	return out
}

// addRow adds the 1 x c row vector to every row of m in place.
func addRow(m, row *mat.Dense) {
	r, _ := m.Dims()
	b := row.RawRowView(0)
	for i := 0; i < r; i++ {
		dst := m.RawRowView(i)
		for j := range dst {
			dst[j] += b[j]
		}
	}
}
