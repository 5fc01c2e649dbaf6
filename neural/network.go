// Package neural composes layers into a trainable feed-forward network.
package neural

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/neural/layer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/neural/param"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// FeedForward is a network of one input layer, any number of hidden layers
// and one output layer. Its parameters live in a registry owned by the
// network, so parameter ids never collide across networks.
type FeedForward struct {
	input     *layer.Placeholder1D
	hidden    []layer.Hidden
	output    layer.Output
	optimizer optimizer.Optimizer

	registry *param.Registry
	rng      *rand.Rand
	logger   log.Logger
}

// NewFeedForward wires the layers and initializes them in order, each layer
// sized by the fan out of the one before it.
func NewFeedForward(input *layer.Placeholder1D, hidden []layer.Hidden, output layer.Output, opt optimizer.Optimizer, rng *rand.Rand) (*FeedForward, error) {
	if input == nil || output == nil {
		return nil, errors.NewValidationError("layers", "input and output layers are required", nil)
	}
	if opt == nil {
		return nil, errors.NewValidationError("optimizer", "must not be nil", nil)
	}
	for i, h := range hidden {
		if h == nil {
			return nil, errors.NewValidationError("hidden", "hidden layer must not be nil", i)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	n := &FeedForward{
		input:     input,
		hidden:    hidden,
		output:    output,
		optimizer: opt,
		registry:  param.NewRegistry(),
		rng:       rng,
		logger:    log.GetLoggerWithName("neural.FeedForward"),
	}
	if err := n.Initialize(); err != nil {
		return nil, err
	}
	return n, nil
}

// Initialize gives every layer fresh parameters and rebuilds the registry.
func (n *FeedForward) Initialize() error {
	fanIn := 0
	for _, l := range n.Layers() {
		fanOut, err := l.Initialize(fanIn, n.rng)
		if err != nil {
			return errors.Wrapf(err, "neural: initialize %s", l)
		}
		fanIn = fanOut
	}
	n.bind()
	n.logger.Debug("network initialized",
		"layers", len(n.hidden)+2,
		"parameters", n.registry.Len(),
		"optimizer", n.optimizer.String(),
	)
	return nil
}

// bind registers the parameters of every parametric layer in layer order and
// warms an adaptive optimizer for all of them.
func (n *FeedForward) bind() {
	n.registry.Reset()
	for _, l := range n.Layers() {
		if pl, ok := l.(layer.Parametric); ok {
			for _, p := range pl.Parameters() {
				n.registry.Register(p)
			}
		}
		if r, ok := l.(layer.Randomized); ok {
			r.SetRand(n.rng)
		}
	}
	if a, ok := n.optimizer.(optimizer.Adaptive); ok {
		for _, p := range n.registry.All() {
			a.Warm(p)
		}
	}
}

// Layers returns the input, hidden and output layers in forward order.
func (n *FeedForward) Layers() []layer.Layer {
	out := make([]layer.Layer, 0, len(n.hidden)+2)
	out = append(out, n.input)
	for _, h := range n.hidden {
		out = append(out, h)
	}
	return append(out, n.output)
}

func (n *FeedForward) Input() *layer.Placeholder1D    { return n.input }
func (n *FeedForward) Hidden() []layer.Hidden         { return n.hidden }
func (n *FeedForward) Output() layer.Output           { return n.output }
func (n *FeedForward) Optimizer() optimizer.Optimizer { return n.optimizer }
func (n *FeedForward) Parameters() []*param.Parameter { return n.registry.All() }

// Infer runs a forward pass without caching anything for training.
func (n *FeedForward) Infer(d dataset.Dataset) (*mat.Dense, error) {
	if err := n.checkFeatures("neural.Infer", d); err != nil {
		return nil, err
	}
	x := n.input.Infer(samplesMatrix(d))
	for _, h := range n.hidden {
		x = h.Infer(x)
	}
	return n.output.Infer(x), nil
}

// Feed runs a training forward pass, caching the state every layer needs
// for the backward pass.
func (n *FeedForward) Feed(x *mat.Dense) *mat.Dense {
	x = n.input.Forward(x)
	for _, h := range n.hidden {
		x = h.Forward(x)
	}
	return n.output.Forward(x)
}

// Backpropagate threads the gradient of the batch loss from the output
// layer down through the hidden layers, updating their parameters on the
// way, and returns the loss.
func (n *FeedForward) Backpropagate(batch *dataset.Labeled) (float64, error) {
	gradient, loss, err := n.output.Back(batch, n.optimizer)
	if err != nil {
		return 0, err
	}
	for i := len(n.hidden) - 1; i >= 0; i-- {
		gradient = n.hidden[i].Back(gradient, n.optimizer)
	}
	return loss, nil
}

// Roundtrip is Feed followed by Backpropagate on one batch.
func (n *FeedForward) Roundtrip(batch *dataset.Labeled) (float64, error) {
	if err := n.checkFeatures("neural.Roundtrip", batch); err != nil {
		return 0, err
	}
	n.Feed(samplesMatrix(batch))
	return n.Backpropagate(batch)
}

func (n *FeedForward) checkFeatures(op string, d dataset.Dataset) error {
	if d.NumSamples() == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if d.NumFeatures() != n.input.Inputs {
		return errors.NewDimensionError(op, n.input.Inputs, d.NumFeatures(), 1)
	}
	return nil
}

func samplesMatrix(d dataset.Dataset) *mat.Dense {
	samples := d.Samples()
	m := mat.NewDense(len(samples), d.NumFeatures(), nil)
	for i, row := range samples {
		m.SetRow(i, row)
	}
	return m
}

type persistedNetwork struct {
	Input     *layer.Placeholder1D
	Hidden    []layer.Hidden
	Output    layer.Output
	Optimizer optimizer.Optimizer
}

// MarshalBinary encodes the layers with their parameters and the optimizer
// hyperparameters.
func (n *FeedForward) MarshalBinary() ([]byte, error) {
	return model.EncodeGob(persistedNetwork{
		Input:     n.input,
		Hidden:    n.hidden,
		Output:    n.output,
		Optimizer: n.optimizer,
	})
}

// UnmarshalBinary restores a network encoded by MarshalBinary. Optimizer
// state starts over.
func (n *FeedForward) UnmarshalBinary(data []byte) error {
	var p persistedNetwork
	if err := model.DecodeGob(data, &p); err != nil {
		return err
	}
	if p.Input == nil || p.Output == nil || p.Optimizer == nil {
		return errors.NewValueError("neural.UnmarshalBinary", "incomplete network")
	}
	n.input, n.hidden, n.output, n.optimizer = p.Input, p.Hidden, p.Output, p.Optimizer.Fresh()
	if n.registry == nil {
		n.registry = param.NewRegistry()
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(1))
	}
	if n.logger == nil {
		n.logger = log.GetLoggerWithName("neural.FeedForward")
	}
	n.bind()
	return nil
}
