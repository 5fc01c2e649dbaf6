package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/neural/activation"
	"github.com/YuminosukeSato/sciforest/neural/cost"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Continuous is the output layer of a regressor: a single linear neuron
// scored with a regression loss.
type Continuous struct {
	Cost cost.RegressionLoss

	input *mat.Dense
}

// NewContinuous creates a continuous output layer. A nil loss defaults to
// LeastSquares.
func NewContinuous(loss cost.RegressionLoss) *Continuous {
	if loss == nil {
		loss = cost.LeastSquares{}
	}
	return &Continuous{Cost: loss}
}

func (l *Continuous) Width() int { return 1 }

func (l *Continuous) Initialize(fanIn int, _ *rand.Rand) (int, error) {
	if fanIn != 1 {
		return 0, errors.NewDimensionError("layer.Continuous", 1, fanIn, 1)
	}
	return 1, nil
}

func (l *Continuous) Forward(input *mat.Dense) *mat.Dense {
	l.input = input
	return input
}

func (l *Continuous) Infer(input *mat.Dense) *mat.Dense { return input }

func (l *Continuous) Back(batch *dataset.Labeled, _ optimizer.Optimizer) (*Deferred, float64, error) {
	mustForward("layer.Continuous", l.input != nil)
	if batch.LabelType() != dataset.Continuous {
		return nil, 0, errors.NewIncompatibleDataError("layer.Continuous", -1,
			batch.LabelType().String(), []string{dataset.Continuous.String()})
	}
	input := l.input
	l.input = nil

	targets := batch.Targets()
	if r, _ := input.Dims(); r != len(targets) {
		return nil, 0, errors.NewDimensionError("layer.Continuous", r, len(targets), 0)
	}
	expected := mat.NewDense(len(targets), 1, append([]float64(nil), targets...))
	loss := l.Cost.Compute(input, expected)

	return Defer(func() *mat.Dense {
		g := l.Cost.Differentiate(input, expected)
		g.Scale(1/float64(len(targets)), g)
		return g
	}), loss, nil
}

func (l *Continuous) String() string { return fmt.Sprintf("Continuous(cost=%s)", l.Cost) }

// classifierOutput holds what Binary and Multiclass share: a fixed
// activation scored with a classification loss.
type classifierOutput struct {
	input    *mat.Dense
	computed *mat.Dense
}

func (o *classifierOutput) forward(fn activation.Function, input *mat.Dense) *mat.Dense {
	o.input = input
	o.computed = fn.Compute(input)
	return o.computed
}

// back returns the deferred gradient and the loss for the expected
// activations. With cross entropy the activation derivative cancels and the
// gradient reduces to (computed - expected) / n.
func (o *classifierOutput) back(component string, fn activation.Function, loss cost.ClassificationLoss, expected *mat.Dense) (*Deferred, float64) {
	mustForward(component, o.input != nil && o.computed != nil)
	input, computed := o.input, o.computed
	o.input, o.computed = nil, nil
	n, _ := computed.Dims()

	gradient := Defer(func() *mat.Dense {
		var g mat.Dense
		if _, ok := loss.(cost.CrossEntropy); ok {
			g.Sub(computed, expected)
			g.Scale(1/float64(n), &g)
			return &g
		}
		dL := loss.Differentiate(computed, expected)
		dL.Scale(1/float64(n), dL)
		g.MulElem(fn.Differentiate(input, computed), dL)
		return &g
	})
	return gradient, loss.Compute(computed, expected)
}

func checkCategorical(component string, batch *dataset.Labeled) error {
	if batch.LabelType() != dataset.Categorical {
		return errors.NewIncompatibleDataError(component, -1,
			batch.LabelType().String(), []string{dataset.Categorical.String()})
	}
	return nil
}

func uniqueClasses(classes []string) []string {
	seen := make(map[string]struct{}, len(classes))
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Binary is the output layer of a two class classifier. Its single sigmoid
// neuron estimates the probability of the second class.
type Binary struct {
	Classes []string
	Cost    cost.ClassificationLoss

	classifierOutput
}

// NewBinary creates a binary output layer. Exactly two distinct classes are
// required. A nil loss defaults to CrossEntropy.
func NewBinary(classes []string, loss cost.ClassificationLoss) (*Binary, error) {
	classes = uniqueClasses(classes)
	if len(classes) != 2 {
		return nil, errors.NewValidationError("classes", "must contain exactly 2 classes", len(classes))
	}
	if loss == nil {
		loss = cost.CrossEntropy{}
	}
	return &Binary{Classes: classes, Cost: loss}, nil
}

func (l *Binary) Width() int { return 1 }

func (l *Binary) Initialize(fanIn int, _ *rand.Rand) (int, error) {
	if fanIn != 1 {
		return 0, errors.NewDimensionError("layer.Binary", 1, fanIn, 1)
	}
	return 1, nil
}

func (l *Binary) Forward(input *mat.Dense) *mat.Dense {
	return l.forward(activation.Sigmoid{}, input)
}

func (l *Binary) Infer(input *mat.Dense) *mat.Dense {
	return activation.Sigmoid{}.Compute(input)
}

func (l *Binary) Back(batch *dataset.Labeled, _ optimizer.Optimizer) (*Deferred, float64, error) {
	mustForward("layer.Binary", l.input != nil)
	if err := checkCategorical("layer.Binary", batch); err != nil {
		return nil, 0, err
	}
	labels := batch.Labels()
	expected := mat.NewDense(len(labels), 1, nil)
	for i, label := range labels {
		switch label {
		case l.Classes[0]:
		case l.Classes[1]:
			expected.Set(i, 0, 1)
		default:
			return nil, 0, errors.NewIncompatibleDataError("layer.Binary", -1, label, l.Classes)
		}
	}
	g, loss := l.back("layer.Binary", activation.Sigmoid{}, l.Cost, expected)
	return g, loss, nil
}

func (l *Binary) String() string {
	return fmt.Sprintf("Binary(classes=%v, cost=%s)", l.Classes, l.Cost)
}

// Multiclass is the output layer of a classifier with any number of classes.
// Its softmax neurons estimate one probability per class, in Classes order.
type Multiclass struct {
	Classes []string
	Cost    cost.ClassificationLoss

	classifierOutput
}

// NewMulticlass creates a multiclass output layer. At least two distinct
// classes are required. A nil loss defaults to CrossEntropy.
func NewMulticlass(classes []string, loss cost.ClassificationLoss) (*Multiclass, error) {
	classes = uniqueClasses(classes)
	if len(classes) < 2 {
		return nil, errors.NewValidationError("classes", "must contain at least 2 classes", len(classes))
	}
	if loss == nil {
		loss = cost.CrossEntropy{}
	}
	return &Multiclass{Classes: classes, Cost: loss}, nil
}

func (l *Multiclass) Width() int { return len(l.Classes) }

func (l *Multiclass) Initialize(fanIn int, _ *rand.Rand) (int, error) {
	if fanIn != len(l.Classes) {
		return 0, errors.NewDimensionError("layer.Multiclass", len(l.Classes), fanIn, 1)
	}
	return fanIn, nil
}

func (l *Multiclass) Forward(input *mat.Dense) *mat.Dense {
	return l.forward(activation.Softmax{}, input)
}

func (l *Multiclass) Infer(input *mat.Dense) *mat.Dense {
	return activation.Softmax{}.Compute(input)
}

func (l *Multiclass) Back(batch *dataset.Labeled, _ optimizer.Optimizer) (*Deferred, float64, error) {
	mustForward("layer.Multiclass", l.input != nil)
	if err := checkCategorical("layer.Multiclass", batch); err != nil {
		return nil, 0, err
	}
	index := make(map[string]int, len(l.Classes))
	for i, c := range l.Classes {
		index[c] = i
	}
	labels := batch.Labels()
	expected := mat.NewDense(len(labels), len(l.Classes), nil)
	for i, label := range labels {
		k, ok := index[label]
		if !ok {
			return nil, 0, errors.NewIncompatibleDataError("layer.Multiclass", -1, label, l.Classes)
		}
		expected.Set(i, k, 1)
	}
	g, loss := l.back("layer.Multiclass", activation.Softmax{}, l.Cost, expected)
	return g, loss, nil
}

func (l *Multiclass) String() string {
	return fmt.Sprintf("Multiclass(classes=%v, cost=%s)", l.Classes, l.Cost)
}
