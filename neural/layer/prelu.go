package layer

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/initializer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/neural/param"
)

// PReLU is a leaky rectifier whose leakage is learned per input column.
type PReLU struct {
	Init   initializer.Initializer
	Inputs int
	Alpha  *param.Parameter

	input *mat.Dense
}

// NewPReLU creates a PReLU layer. A nil initializer defaults to
// Constant(0.25).
func NewPReLU(init initializer.Initializer) *PReLU {
	if init == nil {
		init = initializer.Constant{Value: 0.25}
	}
	return &PReLU{Init: init}
}

func (l *PReLU) Width() int { return l.Inputs }

func (l *PReLU) Initialize(fanIn int, rng *rand.Rand) (int, error) {
	l.Inputs = fanIn
	l.Alpha = param.New(l.Init.Initialize(1, fanIn, rng))
	return fanIn, nil
}

func (l *PReLU) Forward(input *mat.Dense) *mat.Dense {
	out := l.Infer(input)
	l.input = input
	return out
}

func (l *PReLU) Infer(input *mat.Dense) *mat.Dense {
	mustInitialize("layer.PReLU", l.Alpha != nil)
	alpha := l.Alpha.Value.RawRowView(0)
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		if v > 0 {
			return v
		}
		return alpha[j] * v
	}, input)
	return &out
}

func (l *PReLU) Back(prev *Deferred, opt optimizer.Optimizer) *Deferred {
	mustInitialize("layer.PReLU", l.Alpha != nil)
	mustForward("layer.PReLU", l.input != nil)

	dOut := prev.Force()
	input := l.input
	l.input = nil

	var dIn mat.Dense
	dIn.Apply(func(i, j int, v float64) float64 {
		return v * math.Min(input.At(i, j), 0)
	}, dOut)
	alpha := mat.DenseCopyOf(l.Alpha.Value)
	l.Alpha.Update(opt.Step(l.Alpha, columnSums(&dIn)))

	return Defer(func() *mat.Dense {
		a := alpha.RawRowView(0)
		var g mat.Dense
		g.Apply(func(i, j int, v float64) float64 {
			if input.At(i, j) > 0 {
				return v
			}
			return a[j] * v
		}, dOut)
		return &g
	})
}

func (l *PReLU) Parameters() []*param.Parameter {
	mustInitialize("layer.PReLU", l.Alpha != nil)
	return []*param.Parameter{l.Alpha}
}

func (l *PReLU) String() string { return fmt.Sprintf("PReLU(init=%s)", l.Init) }
