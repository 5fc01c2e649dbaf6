package optimizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/param"
)

// AdaMax is Adam with the infinity norm: the norm is max(β2·norm, |g|) and
// the warm-up correction is 1/(1-β1^t).
type AdaMax struct {
	Rate          float64
	MomentumDecay float64
	NormDecay     float64

	t     int
	cache map[int]*moments
}

// NewAdaMax creates an AdaMax optimizer with the same defaults as Adam.
func NewAdaMax(rate, momentumDecay, normDecay float64) (*AdaMax, error) {
	if err := checkRate(rate); err != nil {
		return nil, err
	}
	if err := checkDecay("momentum_decay", momentumDecay); err != nil {
		return nil, err
	}
	if err := checkDecay("norm_decay", normDecay); err != nil {
		return nil, err
	}
	return &AdaMax{Rate: rate, MomentumDecay: momentumDecay, NormDecay: normDecay}, nil
}

func (a *AdaMax) Warm(p *param.Parameter) {
	if a.cache == nil {
		a.cache = make(map[int]*moments)
	}
	a.cache[p.ID] = &moments{velocity: zerosLike(p), norm: zerosLike(p)}
}

func (a *AdaMax) Step(p *param.Parameter, gradient *mat.Dense) *mat.Dense {
	m, ok := a.cache[p.ID]
	if !ok {
		a.Warm(p)
		m = a.cache[p.ID]
	}
	beta1, beta2 := 1-a.MomentumDecay, 1-a.NormDecay

	var g mat.Dense
	g.Scale(a.MomentumDecay, gradient)
	m.velocity.Scale(beta1, m.velocity)
	m.velocity.Add(m.velocity, &g)

	m.norm.Apply(func(i, j int, v float64) float64 {
		return math.Max(beta2*v, math.Abs(gradient.At(i, j)))
	}, m.norm)

	rate := a.Rate
	if a.t < warmUpSteps {
		a.t++
		rate /= 1 - math.Pow(beta1, float64(a.t))
	}

	denom := mat.DenseCopyOf(m.norm)
	clipLower(denom, epsilon)

	var step mat.Dense
	step.DivElem(m.velocity, denom)
	step.Scale(rate, &step)
	return &step
}

func (a *AdaMax) Fresh() Optimizer {
	return &AdaMax{Rate: a.Rate, MomentumDecay: a.MomentumDecay, NormDecay: a.NormDecay}
}

func (a *AdaMax) String() string {
	return fmt.Sprintf("AdaMax(rate=%g, momentum_decay=%g, norm_decay=%g)", a.Rate, a.MomentumDecay, a.NormDecay)
}
