// Package initializer produces the starting values of layer parameters.
//
// Every initializer returns a fanIn x fanOut matrix. Uniform draws are in
// [-1, 1] before scaling.
package initializer

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Initializer fills a new parameter tensor.
type Initializer interface {
	Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense
	String() string
}

func uniform(fanIn, fanOut int, rng *rand.Rand, scale float64) *mat.Dense {
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = (2*rng.Float64() - 1) * scale
	}
	return mat.NewDense(fanIn, fanOut, data)
}

// He is suited to rectified activations.
type He struct{}

func (He) Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	scale := math.Pow(6/float64(fanIn+fanOut), 1/math.Sqrt2)
	return uniform(fanIn, fanOut, rng, scale)
}

func (He) String() string { return "He" }

// Xavier1 is the Glorot uniform initializer, suited to sigmoidal
// activations.
type Xavier1 struct{}

func (Xavier1) Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	return uniform(fanIn, fanOut, rng, math.Sqrt(6/float64(fanIn+fanOut)))
}

func (Xavier1) String() string { return "Xavier1" }

// Xavier2 is the fourth root variant of Xavier1, suited to Softsign and
// linear outputs.
type Xavier2 struct{}

func (Xavier2) Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	return uniform(fanIn, fanOut, rng, math.Pow(6/float64(fanIn+fanOut), 0.25))
}

func (Xavier2) String() string { return "Xavier2" }

// LeCun scales by the fan in only.
type LeCun struct{}

func (LeCun) Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	return uniform(fanIn, fanOut, rng, math.Sqrt(3/float64(fanIn)))
}

func (LeCun) String() string { return "LeCun" }

// Normal draws from a zero mean gaussian.
type Normal struct {
	StdDev float64
}

// NewNormal creates a Normal initializer. The default standard deviation is
// 0.05.
func NewNormal(stdDev float64) (*Normal, error) {
	if stdDev <= 0 {
		return nil, errors.NewValidationError("std_dev", "must be greater than 0", stdDev)
	}
	return &Normal{StdDev: stdDev}, nil
}

func (n *Normal) Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = rng.NormFloat64() * n.StdDev
	}
	return mat.NewDense(fanIn, fanOut, data)
}

func (n *Normal) String() string { return fmt.Sprintf("Normal(%g)", n.StdDev) }

// Uniform draws from [-Beta, Beta].
type Uniform struct {
	Beta float64
}

// NewUniform creates a Uniform initializer. The default beta is 0.5.
func NewUniform(beta float64) (*Uniform, error) {
	if beta <= 0 {
		return nil, errors.NewValidationError("beta", "must be greater than 0", beta)
	}
	return &Uniform{Beta: beta}, nil
}

func (u *Uniform) Initialize(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	return uniform(fanIn, fanOut, rng, u.Beta)
}

func (u *Uniform) String() string { return fmt.Sprintf("Uniform(%g)", u.Beta) }

// Constant fills every element with Value.
type Constant struct {
	Value float64
}

func (c Constant) Initialize(fanIn, fanOut int, _ *rand.Rand) *mat.Dense {
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = c.Value
	}
	return mat.NewDense(fanIn, fanOut, data)
}

func (c Constant) String() string { return fmt.Sprintf("Constant(%g)", c.Value) }
