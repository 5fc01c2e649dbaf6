// Package activation implements element-wise and row-wise activation
// functions for the hidden and output layers.
//
// Matrices are samples x neurons. Differentiate receives both the input z
// and the computed activation so each function can use whichever is cheaper.
package activation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

const epsilon = 1e-8

// Function is an activation function.
type Function interface {
	Compute(z *mat.Dense) *mat.Dense
	Differentiate(z, computed *mat.Dense) *mat.Dense
	String() string
}

func apply(m *mat.Dense, fn func(float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m)
	return &out
}

// ReLU is max(0, z).
type ReLU struct{}

func (ReLU) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return math.Max(0, v) })
}

func (ReLU) Differentiate(z, _ *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

func (ReLU) String() string { return "ReLU" }

// LeakyReLU lets a small fraction of negative inputs through.
type LeakyReLU struct {
	Leakage float64
}

// NewLeakyReLU creates a LeakyReLU. Leakage must be in (0, 1); the default is
// 0.1.
func NewLeakyReLU(leakage float64) (*LeakyReLU, error) {
	if leakage <= 0 || leakage >= 1 {
		return nil, errors.NewValidationError("leakage", "must be strictly between 0 and 1", leakage)
	}
	return &LeakyReLU{Leakage: leakage}, nil
}

func (l *LeakyReLU) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return l.Leakage * v
	})
}

func (l *LeakyReLU) Differentiate(z, _ *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return l.Leakage
	})
}

func (l *LeakyReLU) String() string { return fmt.Sprintf("LeakyReLU(%g)", l.Leakage) }

// ELU is z for z > 0 and alpha·(e^z - 1) otherwise.
type ELU struct {
	Alpha float64
}

// NewELU creates an ELU. Alpha must be non-negative; the default is 1.
func NewELU(alpha float64) (*ELU, error) {
	if alpha < 0 {
		return nil, errors.NewValidationError("alpha", "must be non-negative", alpha)
	}
	return &ELU{Alpha: alpha}, nil
}

func (e *ELU) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return e.Alpha * (math.Exp(v) - 1)
	})
}

func (e *ELU) Differentiate(_, computed *mat.Dense) *mat.Dense {
	return apply(computed, func(c float64) float64 {
		if c > 0 {
			return 1
		}
		return c + e.Alpha
	})
}

func (e *ELU) String() string { return fmt.Sprintf("ELU(%g)", e.Alpha) }

// Sigmoid is 1/(1+e^-z).
type Sigmoid struct{}

func (Sigmoid) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) })
}

func (Sigmoid) Differentiate(_, computed *mat.Dense) *mat.Dense {
	return apply(computed, func(c float64) float64 { return c * (1 - c) })
}

func (Sigmoid) String() string { return "Sigmoid" }

// Softmax normalizes every row to a probability distribution.
type Softmax struct{}

func (Softmax) Compute(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, z)
		peak := math.Inf(-1)
		for _, v := range row {
			peak = math.Max(peak, v)
		}
		total := 0.0
		for j, v := range row {
			row[j] = math.Exp(v - peak)
			total += row[j]
		}
		total = math.Max(total, epsilon)
		for j := range row {
			row[j] /= total
		}
		out.SetRow(i, row)
	}
	return out
}

// Differentiate returns the diagonal of the Jacobian, computed·(1-computed).
func (Softmax) Differentiate(_, computed *mat.Dense) *mat.Dense {
	return Sigmoid{}.Differentiate(nil, computed)
}

func (Softmax) String() string { return "Softmax" }

// SoftPlus is log(1+e^z).
type SoftPlus struct{}

func (SoftPlus) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return math.Log1p(math.Exp(v)) })
}

func (SoftPlus) Differentiate(z, _ *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) })
}

func (SoftPlus) String() string { return "SoftPlus" }

// Softsign is z/(1+|z|).
type Softsign struct{}

func (Softsign) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 { return v / (1 + math.Abs(v)) })
}

func (Softsign) Differentiate(z, _ *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		d := 1 + math.Abs(v)
		return 1 / (d * d)
	})
}

func (Softsign) String() string { return "Softsign" }

// ThresholdedReLU passes z only above Threshold.
type ThresholdedReLU struct {
	Threshold float64
}

// NewThresholdedReLU creates a ThresholdedReLU. The default threshold is 1.
func NewThresholdedReLU(threshold float64) (*ThresholdedReLU, error) {
	if threshold < 0 {
		return nil, errors.NewValidationError("threshold", "must be non-negative", threshold)
	}
	return &ThresholdedReLU{Threshold: threshold}, nil
}

func (t *ThresholdedReLU) Compute(z *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > t.Threshold {
			return v
		}
		return 0
	})
}

func (t *ThresholdedReLU) Differentiate(z, _ *mat.Dense) *mat.Dense {
	return apply(z, func(v float64) float64 {
		if v > t.Threshold {
			return 1
		}
		return 0
	})
}

func (t *ThresholdedReLU) String() string { return fmt.Sprintf("ThresholdedReLU(%g)", t.Threshold) }
