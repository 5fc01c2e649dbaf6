// Package cost implements the loss functions of the output layers.
//
// Outputs and targets are samples x outputs matrices. Compute returns the
// mean loss over every element; Differentiate returns the element-wise
// derivative of the loss with respect to the output.
package cost

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

const epsilon = 1e-8

// Function is a loss function.
type Function interface {
	Compute(output, target *mat.Dense) float64
	Differentiate(output, target *mat.Dense) *mat.Dense
	String() string
}

// RegressionLoss is a loss for continuous targets.
type RegressionLoss interface {
	Function
	regression()
}

// ClassificationLoss is a loss for class probability targets.
type ClassificationLoss interface {
	Function
	classification()
}

func mean(m *mat.Dense) float64 {
	r, c := m.Dims()
	return mat.Sum(m) / float64(r*c)
}

// LeastSquares is the mean squared error.
type LeastSquares struct{}

func (LeastSquares) Compute(output, target *mat.Dense) float64 {
	var diff mat.Dense
	diff.Sub(output, target)
	diff.MulElem(&diff, &diff)
	return mean(&diff)
}

func (LeastSquares) Differentiate(output, target *mat.Dense) *mat.Dense {
	var diff mat.Dense
	diff.Sub(output, target)
	return &diff
}

func (LeastSquares) String() string { return "LeastSquares" }
func (LeastSquares) regression()    {}

// HuberLoss is quadratic for small errors and linear for large ones (the
// pseudo-Huber form).
type HuberLoss struct {
	Alpha float64
}

// NewHuberLoss creates a Huber loss. Alpha must be positive; the default is
// 0.9.
func NewHuberLoss(alpha float64) (*HuberLoss, error) {
	if alpha <= 0 {
		return nil, errors.NewValidationError("alpha", "must be greater than 0", alpha)
	}
	return &HuberLoss{Alpha: alpha}, nil
}

func (h *HuberLoss) Compute(output, target *mat.Dense) float64 {
	a2 := h.Alpha * h.Alpha
	var loss mat.Dense
	loss.Apply(func(i, j int, o float64) float64 {
		z := (o - target.At(i, j)) / h.Alpha
		return a2 * (math.Sqrt(1+z*z) - 1)
	}, output)
	return mean(&loss)
}

func (h *HuberLoss) Differentiate(output, target *mat.Dense) *mat.Dense {
	a2 := h.Alpha * h.Alpha
	var grad mat.Dense
	grad.Apply(func(i, j int, o float64) float64 {
		d := o - target.At(i, j)
		return d / math.Sqrt(d*d+a2)
	}, output)
	return &grad
}

func (h *HuberLoss) String() string { return fmt.Sprintf("HuberLoss(%g)", h.Alpha) }
func (*HuberLoss) regression()      {}

// CrossEntropy is -Σ target·log(output), averaged.
type CrossEntropy struct{}

func (CrossEntropy) Compute(output, target *mat.Dense) float64 {
	var loss mat.Dense
	loss.Apply(func(i, j int, o float64) float64 {
		return -target.At(i, j) * math.Log(math.Max(o, epsilon))
	}, output)
	return mean(&loss)
}

func (CrossEntropy) Differentiate(output, target *mat.Dense) *mat.Dense {
	var grad mat.Dense
	grad.Apply(func(i, j int, o float64) float64 {
		return (o - target.At(i, j)) / math.Max((1-o)*o, epsilon)
	}, output)
	return &grad
}

func (CrossEntropy) String() string { return "CrossEntropy" }
func (CrossEntropy) classification() {}

// RelativeEntropy is the Kullback-Leibler divergence of the output from the
// target.
type RelativeEntropy struct{}

func clip(v float64) float64 {
	return math.Min(1, math.Max(v, epsilon))
}

func (RelativeEntropy) Compute(output, target *mat.Dense) float64 {
	var loss mat.Dense
	loss.Apply(func(i, j int, o float64) float64 {
		t := clip(target.At(i, j))
		return t * math.Log(t/clip(o))
	}, output)
	return mean(&loss)
}

func (RelativeEntropy) Differentiate(output, target *mat.Dense) *mat.Dense {
	var grad mat.Dense
	grad.Apply(func(i, j int, o float64) float64 {
		o = clip(o)
		return (o - clip(target.At(i, j))) / o
	}, output)
	return &grad
}

func (RelativeEntropy) String() string  { return "RelativeEntropy" }
func (RelativeEntropy) classification() {}
