package layer

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciforest/neural/initializer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/neural/param"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

const epsilon = 1e-8

// BatchNorm normalizes every column by the statistics of the batch during
// training and by running averages of those statistics at inference, then
// applies the learned scale Gamma and shift Beta.
type BatchNorm struct {
	Decay     float64
	BetaInit  initializer.Initializer
	GammaInit initializer.Initializer
	Inputs    int

	Beta  *param.Parameter
	Gamma *param.Parameter

	// Running statistics; nil until the first training batch.
	Mean     []float64
	Variance []float64

	stdInv []float64
	xHat   *mat.Dense
}

// NewBatchNorm creates a batch normalization layer. Decay must be in (0, 1);
// the default is 0.1. Nil initializers default to Constant(0) for beta and
// Constant(1) for gamma.
func NewBatchNorm(decay float64, betaInit, gammaInit initializer.Initializer) (*BatchNorm, error) {
	if decay <= 0 || decay >= 1 {
		return nil, errors.NewValidationError("decay", "must be strictly between 0 and 1", decay)
	}
	if betaInit == nil {
		betaInit = initializer.Constant{Value: 0}
	}
	if gammaInit == nil {
		gammaInit = initializer.Constant{Value: 1}
	}
	return &BatchNorm{Decay: decay, BetaInit: betaInit, GammaInit: gammaInit}, nil
}

func (l *BatchNorm) Width() int { return l.Inputs }

func (l *BatchNorm) Initialize(fanIn int, rng *rand.Rand) (int, error) {
	l.Inputs = fanIn
	l.Beta = param.New(l.BetaInit.Initialize(1, fanIn, rng))
	l.Gamma = param.New(l.GammaInit.Initialize(1, fanIn, rng))
	l.Mean, l.Variance = nil, nil
	return fanIn, nil
}

func (l *BatchNorm) Forward(input *mat.Dense) *mat.Dense {
	mustInitialize("layer.BatchNorm", l.Beta != nil && l.Gamma != nil)
	r, c := input.Dims()
	mean := make([]float64, c)
	variance := make([]float64, c)
	stdInv := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, input)
		mean[j], variance[j] = stat.PopMeanVariance(col, nil)
		variance[j] = math.Max(variance[j], epsilon)
		stdInv[j] = 1 / math.Sqrt(variance[j])
	}

	xHat := mat.NewDense(r, c, nil)
	xHat.Apply(func(i, j int, v float64) float64 {
		return (v - mean[j]) * stdInv[j]
	}, input)

	if l.Mean == nil || l.Variance == nil {
		l.Mean = append([]float64(nil), mean...)
		l.Variance = append([]float64(nil), variance...)
	}
	floats.Scale(1-l.Decay, l.Mean)
	floats.AddScaled(l.Mean, l.Decay, mean)
	floats.Scale(1-l.Decay, l.Variance)
	floats.AddScaled(l.Variance, l.Decay, variance)

	l.stdInv = stdInv
	l.xHat = xHat
	return l.scaleShift(xHat)
}

func (l *BatchNorm) Infer(input *mat.Dense) *mat.Dense {
	mustInitialize("layer.BatchNorm", l.Beta != nil && l.Gamma != nil && l.Mean != nil)
	var xHat mat.Dense
	xHat.Apply(func(_, j int, v float64) float64 {
		return (v - l.Mean[j]) / math.Sqrt(l.Variance[j])
	}, input)
	return l.scaleShift(&xHat)
}

func (l *BatchNorm) scaleShift(xHat *mat.Dense) *mat.Dense {
	gamma := l.Gamma.Value.RawRowView(0)
	beta := l.Beta.Value.RawRowView(0)
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return gamma[j]*v + beta[j]
	}, xHat)
	return &out
}

func (l *BatchNorm) Back(prev *Deferred, opt optimizer.Optimizer) *Deferred {
	mustInitialize("layer.BatchNorm", l.Beta != nil && l.Gamma != nil)
	mustForward("layer.BatchNorm", l.xHat != nil)

	dOut := prev.Force()
	stdInv, xHat := l.stdInv, l.xHat
	l.stdInv, l.xHat = nil, nil

	var scaled mat.Dense
	scaled.MulElem(dOut, xHat)
	gamma := append([]float64(nil), l.Gamma.Value.RawRowView(0)...)
	l.Beta.Update(opt.Step(l.Beta, columnSums(dOut)))
	l.Gamma.Update(opt.Step(l.Gamma, columnSums(&scaled)))

	return Defer(func() *mat.Dense {
		n, c := dOut.Dims()
		var dXHat mat.Dense
		dXHat.Apply(func(_, j int, v float64) float64 {
			return v * gamma[j]
		}, dOut)

		var weighted mat.Dense
		weighted.MulElem(&dXHat, xHat)
		dXHatSum := columnSums(&dXHat).RawRowView(0)
		weightedSum := columnSums(&weighted).RawRowView(0)

		g := mat.NewDense(n, c, nil)
		g.Apply(func(i, j int, v float64) float64 {
			return (v*float64(n) - dXHatSum[j] - xHat.At(i, j)*weightedSum[j]) * stdInv[j] / float64(n)
		}, &dXHat)
		return g
	})
}

func (l *BatchNorm) Parameters() []*param.Parameter {
	mustInitialize("layer.BatchNorm", l.Beta != nil && l.Gamma != nil)
	return []*param.Parameter{l.Beta, l.Gamma}
}

func (l *BatchNorm) String() string {
	return fmt.Sprintf("BatchNorm(decay=%g, beta_init=%s, gamma_init=%s)", l.Decay, l.BetaInit, l.GammaInit)
}
