package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/param"
)

// Stochastic is plain gradient descent: the update is rate·gradient.
type Stochastic struct {
	Rate float64
}

// NewStochastic creates a gradient descent optimizer. The default rate is
// 0.01.
func NewStochastic(rate float64) (*Stochastic, error) {
	if err := checkRate(rate); err != nil {
		return nil, err
	}
	return &Stochastic{Rate: rate}, nil
}

func (s *Stochastic) Step(_ *param.Parameter, gradient *mat.Dense) *mat.Dense {
	var step mat.Dense
	step.Scale(s.Rate, gradient)
	return &step
}

func (s *Stochastic) Fresh() Optimizer { return &Stochastic{Rate: s.Rate} }

func (s *Stochastic) String() string { return fmt.Sprintf("Stochastic(rate=%g)", s.Rate) }
