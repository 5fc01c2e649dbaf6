package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/param"
)

// Momentum accumulates a velocity that decays by Decay every step. With
// Lookahead the velocity is advanced a second time (Nesterov momentum).
type Momentum struct {
	Rate      float64
	Decay     float64
	Lookahead bool

	velocities map[int]*mat.Dense
}

// NewMomentum creates a momentum optimizer. Defaults are rate 0.001 and
// decay 0.1.
func NewMomentum(rate, decay float64, lookahead bool) (*Momentum, error) {
	if err := checkRate(rate); err != nil {
		return nil, err
	}
	if err := checkDecay("decay", decay); err != nil {
		return nil, err
	}
	return &Momentum{Rate: rate, Decay: decay, Lookahead: lookahead}, nil
}

func (m *Momentum) Warm(p *param.Parameter) {
	if m.velocities == nil {
		m.velocities = make(map[int]*mat.Dense)
	}
	m.velocities[p.ID] = zerosLike(p)
}

func (m *Momentum) Step(p *param.Parameter, gradient *mat.Dense) *mat.Dense {
	velocity, ok := m.velocities[p.ID]
	if !ok {
		m.Warm(p)
		velocity = m.velocities[p.ID]
	}
	beta := 1 - m.Decay

	var scaled mat.Dense
	scaled.Scale(m.Rate, gradient)

	velocity.Scale(beta, velocity)
	velocity.Add(velocity, &scaled)
	if m.Lookahead {
		velocity.Scale(beta, velocity)
		velocity.Add(velocity, &scaled)
	}
	return mat.DenseCopyOf(velocity)
}

func (m *Momentum) Fresh() Optimizer {
	return &Momentum{Rate: m.Rate, Decay: m.Decay, Lookahead: m.Lookahead}
}

func (m *Momentum) String() string {
	return fmt.Sprintf("Momentum(rate=%g, decay=%g, lookahead=%t)", m.Rate, m.Decay, m.Lookahead)
}
