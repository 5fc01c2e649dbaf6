// Package neural_network implements estimators trained by mini-batch gradient
// descent on a neural.FeedForward network: a MultilayerPerceptron classifier
// and an Adaline regressor.
package neural_network

import (
	"math"
	"time"

	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/neural/cost"
	"github.com/YuminosukeSato/sciforest/neural/layer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// settings are the hyperparameters shared by the network estimators. Options
// that do not apply to an estimator are ignored by it.
type settings struct {
	hidden    []layer.Hidden
	batchSize int
	optimizer optimizer.Optimizer
	alpha     float64
	epochs    int
	minChange float64
	window    int
	holdOut   float64
	classLoss cost.ClassificationLoss
	regLoss   cost.RegressionLoss
	metric    metrics.ClassificationMetric
	seed      int64
}

func defaultSettings(window int) settings {
	return settings{
		batchSize: 128,
		optimizer: &optimizer.Adam{Rate: 0.001, MomentumDecay: 0.1, NormDecay: 0.001},
		alpha:     1e-4,
		epochs:    1000,
		minChange: 1e-4,
		window:    window,
		holdOut:   0.1,
		classLoss: cost.CrossEntropy{},
		regLoss:   cost.LeastSquares{},
		metric:    metrics.Accuracy{},
		seed:      time.Now().UnixNano(),
	}
}

func (s settings) params() map[string]any {
	hidden := make([]string, len(s.hidden))
	for i, h := range s.hidden {
		hidden[i] = h.String()
	}
	return map[string]any{
		"hidden_layers": hidden,
		"batch_size":    s.batchSize,
		"optimizer":     s.optimizer.String(),
		"alpha":         s.alpha,
		"epochs":        s.epochs,
		"min_change":    s.minChange,
		"window":        s.window,
	}
}

// Option configures a network estimator.
type Option func(*settings) error

// WithHiddenLayers sets the hidden layers placed between the input and the
// output layers. The layers act as templates: every training run works on
// its own copies.
func WithHiddenLayers(layers ...layer.Hidden) Option {
	return func(s *settings) error {
		for i, l := range layers {
			if l == nil {
				return errors.NewValidationError("hidden_layers", "layer must not be nil", i)
			}
		}
		s.hidden = layers
		return nil
	}
}

// WithBatchSize sets the number of samples per gradient step.
func WithBatchSize(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return errors.NewValidationError("batch_size", "must be greater than 0", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithOptimizer sets the gradient descent optimizer. Each training run uses
// a fresh copy of it.
func WithOptimizer(o optimizer.Optimizer) Option {
	return func(s *settings) error {
		if o == nil {
			return errors.NewValidationError("optimizer", "must not be nil", nil)
		}
		s.optimizer = o
		return nil
	}
}

// WithAlpha sets the L2 penalty of the output Dense layer.
func WithAlpha(alpha float64) Option {
	return func(s *settings) error {
		if alpha < 0 || math.IsNaN(alpha) {
			return errors.NewValidationError("alpha", "must be non-negative", alpha)
		}
		s.alpha = alpha
		return nil
	}
}

// WithEpochs sets the maximum number of passes over the training set.
func WithEpochs(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return errors.NewValidationError("epochs", "must be greater than 0", n)
		}
		s.epochs = n
		return nil
	}
}

// WithMinChange sets the smallest change in loss between two epochs that
// keeps training going.
func WithMinChange(v float64) Option {
	return func(s *settings) error {
		if v < 0 || math.IsNaN(v) {
			return errors.NewValidationError("min_change", "must be non-negative", v)
		}
		s.minChange = v
		return nil
	}
}

// WithWindow sets the number of epochs without improvement before training
// stops early.
func WithWindow(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return errors.NewValidationError("window", "must be greater than 0", n)
		}
		s.window = n
		return nil
	}
}

// WithHoldOut sets the share of the training set kept aside to score every
// epoch. Must be in (0, 0.5].
func WithHoldOut(ratio float64) Option {
	return func(s *settings) error {
		if ratio <= 0 || ratio > 0.5 || math.IsNaN(ratio) {
			return errors.NewValidationError("hold_out", "must be in (0, 0.5]", ratio)
		}
		s.holdOut = ratio
		return nil
	}
}

// WithClassificationLoss sets the cost function of a classifier output.
func WithClassificationLoss(loss cost.ClassificationLoss) Option {
	return func(s *settings) error {
		if loss == nil {
			return errors.NewValidationError("cost_fn", "must not be nil", nil)
		}
		s.classLoss = loss
		return nil
	}
}

// WithRegressionLoss sets the cost function of a regressor output.
func WithRegressionLoss(loss cost.RegressionLoss) Option {
	return func(s *settings) error {
		if loss == nil {
			return errors.NewValidationError("cost_fn", "must not be nil", nil)
		}
		s.regLoss = loss
		return nil
	}
}

// WithMetric sets the metric the hold-out set is scored with.
func WithMetric(m metrics.ClassificationMetric) Option {
	return func(s *settings) error {
		if m == nil {
			return errors.NewValidationError("metric", "must not be nil", nil)
		}
		s.metric = m
		return nil
	}
}

// WithRandomState seeds weight initialization, shuffling and dropout.
func WithRandomState(seed int64) Option {
	return func(s *settings) error {
		s.seed = seed
		return nil
	}
}

func applyOptions(s *settings, opts []Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

type hiddenTemplates struct {
	Layers []layer.Hidden
}

// cloneHidden deep copies the layer templates so trained networks never share
// layer state.
func cloneHidden(layers []layer.Hidden) ([]layer.Hidden, error) {
	if len(layers) == 0 {
		return nil, nil
	}
	blob, err := model.EncodeGob(hiddenTemplates{Layers: layers})
	if err != nil {
		return nil, errors.Wrap(err, "neural_network: copy hidden layers")
	}
	var out hiddenTemplates
	if err := model.DecodeGob(blob, &out); err != nil {
		return nil, errors.Wrap(err, "neural_network: copy hidden layers")
	}
	return out.Layers, nil
}
