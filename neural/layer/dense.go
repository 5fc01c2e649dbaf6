package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/neural/initializer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/neural/param"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Dense is a fully connected layer computing input·W + b. Alpha is the L2
// penalty added to the weight gradient.
type Dense struct {
	Neurons    int
	Alpha      float64
	Bias       bool
	WeightInit initializer.Initializer
	BiasInit   initializer.Initializer

	Weights *param.Parameter
	Biases  *param.Parameter

	input *mat.Dense
}

// NewDense creates a fully connected layer. Nil initializers default to He
// for the weights and Constant(0) for the biases.
func NewDense(neurons int, alpha float64, bias bool, weightInit, biasInit initializer.Initializer) (*Dense, error) {
	if neurons < 1 {
		return nil, errors.NewValidationError("neurons", "must be greater than 0", neurons)
	}
	if alpha < 0 {
		return nil, errors.NewValidationError("alpha", "must be non-negative", alpha)
	}
	if weightInit == nil {
		weightInit = initializer.He{}
	}
	if biasInit == nil {
		biasInit = initializer.Constant{Value: 0}
	}
	return &Dense{
		Neurons:    neurons,
		Alpha:      alpha,
		Bias:       bias,
		WeightInit: weightInit,
		BiasInit:   biasInit,
	}, nil
}

func (l *Dense) Width() int { return l.Neurons }

func (l *Dense) Initialize(fanIn int, rng *rand.Rand) (int, error) {
	l.Weights = param.New(l.WeightInit.Initialize(fanIn, l.Neurons, rng))
	l.Biases = nil
	if l.Bias {
		l.Biases = param.New(l.BiasInit.Initialize(1, l.Neurons, rng))
	}
	return l.Neurons, nil
}

func (l *Dense) Forward(input *mat.Dense) *mat.Dense {
	z := l.Infer(input)
	l.input = input
	return z
}

func (l *Dense) Infer(input *mat.Dense) *mat.Dense {
	mustInitialize("layer.Dense", l.Weights != nil)
	var z mat.Dense
	z.Mul(input, l.Weights.Value)
	if l.Biases != nil {
		addRow(&z, l.Biases.Value)
	}
	return &z
}

func (l *Dense) Back(prev *Deferred, opt optimizer.Optimizer) *Deferred {
	mustInitialize("layer.Dense", l.Weights != nil)
	mustForward("layer.Dense", l.input != nil)

	dOut := prev.Force()
	var dW mat.Dense
	dW.Mul(l.input.T(), dOut)

	weights := mat.DenseCopyOf(l.Weights.Value)
	if l.Alpha > 0 {
		var penalty mat.Dense
		penalty.Scale(l.Alpha, weights)
		dW.Add(&dW, &penalty)
	}
	l.Weights.Update(opt.Step(l.Weights, &dW))
	if l.Biases != nil {
		l.Biases.Update(opt.Step(l.Biases, columnSums(dOut)))
	}
	l.input = nil

	return Defer(func() *mat.Dense {
		var g mat.Dense
		g.Mul(dOut, weights.T())
		return &g
	})
}

func (l *Dense) Parameters() []*param.Parameter {
	mustInitialize("layer.Dense", l.Weights != nil)
	if l.Biases == nil {
		return []*param.Parameter{l.Weights}
	}
	return []*param.Parameter{l.Weights, l.Biases}
}

func (l *Dense) String() string {
	return fmt.Sprintf("Dense(neurons=%d, alpha=%g, bias=%t, weight_init=%s, bias_init=%s)",
		l.Neurons, l.Alpha, l.Bias, l.WeightInit, l.BiasInit)
}
