// Package optimizer turns gradients into parameter updates.
//
// Step returns the update; the caller subtracts it from the parameter.
// Adaptive optimizers keep per-parameter state keyed by the parameter id.
// Warm creates that state up front so the first step of a warmed parameter
// is identical to the first step of a lazily initialized one.
package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/param"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

const (
	// warmUpSteps is the number of steps for which the learning rate is
	// bias corrected.
	warmUpSteps = 300

	epsilon = 1e-8
)

// Optimizer computes the update for a parameter from its gradient.
type Optimizer interface {
	Step(p *param.Parameter, gradient *mat.Dense) *mat.Dense

	// Fresh returns an optimizer with the same hyperparameters and no state.
	Fresh() Optimizer

	String() string
}

// Adaptive is an optimizer with per-parameter state.
type Adaptive interface {
	Optimizer

	// Warm initializes the state of p to zeros of the parameter's shape.
	Warm(p *param.Parameter)
}

func checkRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return errors.NewValidationError("rate", "must be greater than 0", rate)
	}
	return nil
}

func checkDecay(name string, decay float64) error {
	if decay <= 0 || decay >= 1 || math.IsNaN(decay) {
		return errors.NewValidationError(name, "must be strictly between 0 and 1", decay)
	}
	return nil
}

func zerosLike(p *param.Parameter) *mat.Dense {
	r, c := p.Dims()
	return mat.NewDense(r, c, nil)
}

// clipLower replaces every element below floor with floor.
func clipLower(m *mat.Dense, floor float64) {
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, floor)
	}, m)
}
