package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/param"
)

type moments struct {
	velocity *mat.Dense
	norm     *mat.Dense
}

// Adam keeps a decaying average of the gradient (velocity) and of its square
// (norm) per parameter. For the first 300 steps the rate is bias corrected
// by sqrt(1-β2^t)/(1-β1^t), where β = 1 - decay.
type Adam struct {
	Rate          float64
	MomentumDecay float64
	NormDecay     float64

	t     int
	cache map[int]*moments
}

// NewAdam creates an Adam optimizer. Defaults are rate 0.001, momentum decay
// 0.1 and norm decay 0.001.
func NewAdam(rate, momentumDecay, normDecay float64) (*Adam, error) {
	if err := checkRate(rate); err != nil {
		return nil, err
	}
	if err := checkDecay("momentum_decay", momentumDecay); err != nil {
		return nil, err
	}
	if err := checkDecay("norm_decay", normDecay); err != nil {
		return nil, err
	}
	return &Adam{Rate: rate, MomentumDecay: momentumDecay, NormDecay: normDecay}, nil
}

func (a *Adam) Warm(p *param.Parameter) {
	if a.cache == nil {
		a.cache = make(map[int]*moments)
	}
	a.cache[p.ID] = &moments{velocity: zerosLike(p), norm: zerosLike(p)}
}

func (a *Adam) Step(p *param.Parameter, gradient *mat.Dense) *mat.Dense {
	m, ok := a.cache[p.ID]
	if !ok {
		a.Warm(p)
		m = a.cache[p.ID]
	}
	beta1, beta2 := 1-a.MomentumDecay, 1-a.NormDecay

	var g, g2 mat.Dense
	g.Scale(a.MomentumDecay, gradient)
	m.velocity.Scale(beta1, m.velocity)
	m.velocity.Add(m.velocity, &g)

	g2.MulElem(gradient, gradient)
	g2.Scale(a.NormDecay, &g2)
	m.norm.Scale(beta2, m.norm)
	m.norm.Add(m.norm, &g2)

	rate := a.Rate
	if a.t < warmUpSteps {
		a.t++
		t := float64(a.t)
		rate *= math.Sqrt(1-math.Pow(beta2, t)) / (1 - math.Pow(beta1, t))
	}

	var denom mat.Dense
	denom.Apply(func(_, _ int, v float64) float64 { return math.Sqrt(v) }, m.norm)
	clipLower(&denom, epsilon)

	var step mat.Dense
	step.DivElem(m.velocity, &denom)
	step.Scale(rate, &step)
	return &step
}

func (a *Adam) Fresh() Optimizer {
	return &Adam{Rate: a.Rate, MomentumDecay: a.MomentumDecay, NormDecay: a.NormDecay}
}

func (a *Adam) String() string {
	return fmt.Sprintf("Adam(rate=%g, momentum_decay=%g, norm_decay=%g)", a.Rate, a.MomentumDecay, a.NormDecay)
}
