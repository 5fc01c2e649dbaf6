package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Dropout zeroes a random fraction of the activations during training and
// scales the survivors by 1/(1-Ratio). Inference is the identity.
type Dropout struct {
	Ratio  float64
	Inputs int

	rng  *rand.Rand
	mask *mat.Dense
}

// NewDropout creates a dropout layer. Ratio must be in (0, 1); the default is
// 0.5.
func NewDropout(ratio float64) (*Dropout, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, errors.NewValidationError("ratio", "must be strictly between 0 and 1", ratio)
	}
	return &Dropout{Ratio: ratio}, nil
}

func (l *Dropout) Width() int { return l.Inputs }

func (l *Dropout) Initialize(fanIn int, rng *rand.Rand) (int, error) {
	l.Inputs = fanIn
	l.rng = rng
	return fanIn, nil
}

func (l *Dropout) SetRand(rng *rand.Rand) { l.rng = rng }

func (l *Dropout) Forward(input *mat.Dense) *mat.Dense {
	mustInitialize("layer.Dropout", l.rng != nil)
	scale := 1 / (1 - l.Ratio)
	r, c := input.Dims()
	l.mask = mat.NewDense(r, c, nil)
	l.mask.Apply(func(_, _ int, _ float64) float64 {
		if l.rng.Float64() > l.Ratio {
			return scale
		}
		return 0
	}, l.mask)

	var out mat.Dense
	out.MulElem(input, l.mask)
	return &out
}

func (l *Dropout) Infer(input *mat.Dense) *mat.Dense { return input }

func (l *Dropout) Back(prev *Deferred, _ optimizer.Optimizer) *Deferred {
	mustForward("layer.Dropout", l.mask != nil)
	mask := l.mask
	l.mask = nil

	return Defer(func() *mat.Dense {
		var g mat.Dense
		g.MulElem(prev.Force(), mask)
		return &g
	})
}

func (l *Dropout) String() string { return fmt.Sprintf("Dropout(ratio=%g)", l.Ratio) }

// Noise adds zero mean gaussian noise to the activations during training.
type Noise struct {
	StdDev float64
	Inputs int

	rng       *rand.Rand
	forwarded bool
}

// NewNoise creates a noise layer. The default standard deviation is 0.1.
func NewNoise(stdDev float64) (*Noise, error) {
	if stdDev < 0 {
		return nil, errors.NewValidationError("std_dev", "must be non-negative", stdDev)
	}
	return &Noise{StdDev: stdDev}, nil
}

func (l *Noise) Width() int { return l.Inputs }

func (l *Noise) Initialize(fanIn int, rng *rand.Rand) (int, error) {
	l.Inputs = fanIn
	l.rng = rng
	return fanIn, nil
}

func (l *Noise) SetRand(rng *rand.Rand) { l.rng = rng }

func (l *Noise) Forward(input *mat.Dense) *mat.Dense {
	mustInitialize("layer.Noise", l.rng != nil)
	l.forwarded = true
	if l.StdDev == 0 {
		return input
	}
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return v + l.rng.NormFloat64()*l.StdDev
	}, input)
	return &out
}

func (l *Noise) Infer(input *mat.Dense) *mat.Dense { return input }

// Back passes the gradient through unchanged.
func (l *Noise) Back(prev *Deferred, _ optimizer.Optimizer) *Deferred {
	mustForward("layer.Noise", l.forwarded)
	l.forwarded = false
	return prev
}

func (l *Noise) String() string { return fmt.Sprintf("Noise(std_dev=%g)", l.StdDev) }
