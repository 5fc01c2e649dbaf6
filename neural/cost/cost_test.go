package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLeastSquares(t *testing.T) {
	out := mat.NewDense(2, 1, []float64{1, 4})
	target := mat.NewDense(2, 1, []float64{2, 2})

	assert.InDelta(t, 2.5, LeastSquares{}.Compute(out, target), 1e-12)
	assert.Equal(t, []float64{-1, 2}, LeastSquares{}.Differentiate(out, target).RawMatrix().Data)
}

func TestHuberLoss(t *testing.T) {
	h, err := NewHuberLoss(0.9)
	require.NoError(t, err)
	out := mat.NewDense(1, 2, []float64{0, 10})
	target := mat.NewDense(1, 2, []float64{0, 0})

	assert.InDelta(t, 0.81*(math.Sqrt(1+100/0.81)-1)/2, h.Compute(out, target), 1e-12)
	grad := h.Differentiate(out, target)
	assert.Equal(t, 0.0, grad.At(0, 0))
	assert.InDelta(t, 10/math.Sqrt(100.81), grad.At(0, 1), 1e-12)

	_, err = NewHuberLoss(0)
	assert.Error(t, err)
}

func TestCrossEntropy(t *testing.T) {
	out := mat.NewDense(1, 2, []float64{0.8, 0.2})
	target := mat.NewDense(1, 2, []float64{1, 0})

	assert.InDelta(t, -math.Log(0.8)/2, CrossEntropy{}.Compute(out, target), 1e-12)
	perfect := mat.NewDense(1, 2, []float64{1, 0})
	assert.InDelta(t, 0, CrossEntropy{}.Compute(perfect, target), 1e-12)
}

func TestRelativeEntropy(t *testing.T) {
	target := mat.NewDense(1, 2, []float64{0.5, 0.5})
	assert.InDelta(t, 0, RelativeEntropy{}.Compute(target, target), 1e-12)

	out := mat.NewDense(1, 2, []float64{0.25, 0.75})
	want := (0.5*math.Log(2) + 0.5*math.Log(0.5/0.75)) / 2
	assert.InDelta(t, want, RelativeEntropy{}.Compute(out, target), 1e-12)
}

func TestLossKinds(t *testing.T) {
	var _ RegressionLoss = LeastSquares{}
	var _ RegressionLoss = &HuberLoss{}
	var _ ClassificationLoss = CrossEntropy{}
	var _ ClassificationLoss = RelativeEntropy{}
}
