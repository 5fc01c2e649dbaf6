package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/activation"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Activation applies a non-linearity to every neuron of the layer below.
type Activation struct {
	Fn     activation.Function
	Inputs int

	input    *mat.Dense
	computed *mat.Dense
}

// NewActivation creates an activation layer.
func NewActivation(fn activation.Function) (*Activation, error) {
	if fn == nil {
		return nil, errors.NewValidationError("activation", "must not be nil", fn)
	}
	return &Activation{Fn: fn}, nil
}

func (l *Activation) Width() int { return l.Inputs }

func (l *Activation) Initialize(fanIn int, _ *rand.Rand) (int, error) {
	l.Inputs = fanIn
	return fanIn, nil
}

func (l *Activation) Forward(input *mat.Dense) *mat.Dense {
	l.input = input
	l.computed = l.Fn.Compute(input)
	return l.computed
}

func (l *Activation) Infer(input *mat.Dense) *mat.Dense {
	return l.Fn.Compute(input)
}

func (l *Activation) Back(prev *Deferred, _ optimizer.Optimizer) *Deferred {
	mustForward("layer.Activation", l.input != nil && l.computed != nil)
	input, computed := l.input, l.computed
	l.input, l.computed = nil, nil

	return Defer(func() *mat.Dense {
		g := l.Fn.Differentiate(input, computed)
		g.MulElem(g, prev.Force())
		return g
	})
}

func (l *Activation) String() string { return fmt.Sprintf("Activation(%s)", l.Fn) }
