package neural_network

import (
	"math"
	"math/rand"
	"time"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/neural"
	"github.com/YuminosukeSato/sciforest/neural/initializer"
	"github.com/YuminosukeSato/sciforest/neural/layer"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// Adaline is a single layer linear regressor trained by gradient descent.
// Training stops when the loss has not improved for window epochs, changes
// by less than min change, or reaches zero.
type Adaline struct {
	settings

	id      string
	network *neural.FeedForward
	steps   []float64
	rng     *rand.Rand
	state   *model.StateManager
}

// NewAdaline creates an untrained regressor. Defaults: batch size 128,
// Adam(0.001), alpha 1e-4, 1000 epochs, min change 1e-4, window 5, least
// squares.
func NewAdaline(opts ...Option) (*Adaline, error) {
	a := &Adaline{
		settings: defaultSettings(5),
		id:       model.NewID(),
		state:    model.NewStateManager(),
	}
	if err := applyOptions(&a.settings, opts); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adaline) Type() model.EstimatorType { return model.RegressorType }

func (a *Adaline) Capabilities() model.Capability {
	return model.Trainable | model.Online | model.Ranking
}

func (a *Adaline) Compatibility() []dataset.DataType {
	return []dataset.DataType{dataset.Continuous}
}

func (a *Adaline) Params() map[string]any {
	p := a.settings.params()
	delete(p, "hidden_layers")
	p["cost_fn"] = a.regLoss.String()
	return p
}

func (a *Adaline) Trained() bool { return a.state.IsFitted() }

func (a *Adaline) Fresh() model.Learner {
	return &Adaline{
		settings: a.settings,
		id:       model.NewID(),
		state:    model.NewStateManager(),
	}
}

func (a *Adaline) Seed(seed int64)               { a.seed = seed }
func (a *Adaline) Network() *neural.FeedForward { return a.network }
func (a *Adaline) Steps() []float64              { return a.steps }

func (a *Adaline) logger() log.Logger {
	return log.GetLoggerWithName("neural_network").With(
		log.ModelNameKey, "Adaline",
		log.EstimatorIDKey, a.id,
	)
}

// Train builds a new single neuron network and trains it from scratch.
func (a *Adaline) Train(d *dataset.Labeled) error {
	if err := model.CheckTrainingSet("Adaline.Train", a, d); err != nil {
		return err
	}
	input, err := layer.NewPlaceholder1D(d.NumFeatures())
	if err != nil {
		return err
	}
	dense, err := layer.NewDense(1, a.alpha, true, initializer.Xavier2{}, nil)
	if err != nil {
		return err
	}

	a.rng = rand.New(rand.NewSource(a.seed))
	network, err := neural.NewFeedForward(input, []layer.Hidden{dense}, layer.NewContinuous(a.regLoss), a.optimizer.Fresh(), a.rng)
	if err != nil {
		return err
	}
	a.network = network
	a.steps = nil
	a.state.Reset()

	return a.partial(d, log.OperationTrain)
}

// Partial continues training the current network on d.
func (a *Adaline) Partial(d *dataset.Labeled) error {
	if a.network == nil {
		return a.Train(d)
	}
	if err := model.CheckTrainingSet("Adaline.Partial", a, d); err != nil {
		return err
	}
	if err := model.CheckFeatureCount("Adaline.Partial", a.network.Input().Inputs, d); err != nil {
		return err
	}
	return a.partial(d, log.OperationPartial)
}

func (a *Adaline) partial(d *dataset.Labeled, operation string) error {
	logger := a.logger()
	logger.Info("Training started",
		log.OperationKey, operation,
		log.SamplesKey, d.NumSamples(),
		log.FeaturesKey, d.NumFeatures(),
		log.RandomSeedKey, a.seed,
	)
	start := time.Now()

	prevLoss, bestLoss := math.Inf(1), math.Inf(1)
	delta, converged := 0, false
	for epoch := 1; epoch <= a.epochs; epoch++ {
		loss, err := runEpoch(a.network, d, a.batchSize, a.rng)
		if err != nil {
			return a.abort(err)
		}
		if err := errors.CheckScalar("Adaline.Train", loss, epoch); err != nil {
			logger.Error("Training diverged", err, log.EpochKey, epoch, log.ErrorCodeKey, log.ErrorCode(err))
			return a.abort(err)
		}
		a.steps = append(a.steps, loss)
		observeEpoch("Adaline", loss)
		logger.Debug("Epoch completed", log.EpochKey, epoch, log.LossKey, loss)

		if loss < bestLoss {
			bestLoss, delta = loss, 0
		} else {
			delta++
		}
		if loss <= 0 || math.Abs(prevLoss-loss) < a.minChange || delta >= a.window {
			converged = true
			break
		}
		prevLoss = loss
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("Adaline", a.epochs, "loss still changing after the last epoch"))
	}

	a.state.SetFitted(d.NumFeatures(), d.NumSamples())
	logger.Info("Training completed",
		log.EpochKey, len(a.steps),
		log.LossKey, bestLoss,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (a *Adaline) abort(err error) error {
	a.network = nil
	a.state.Reset()
	return err
}

// Predict returns the network output for every sample.
func (a *Adaline) Predict(d dataset.Dataset) ([]float64, error) {
	if err := a.state.RequireFitted("Adaline", "Predict"); err != nil {
		return nil, err
	}
	nFeatures, _ := a.state.GetDimensions()
	if err := model.CheckInferenceSet("Adaline.Predict", a, nFeatures, d); err != nil {
		return nil, err
	}
	activations, err := a.network.Infer(d)
	if err != nil {
		return nil, err
	}
	r, _ := activations.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = activations.At(i, 0)
	}
	return out, nil
}

// FeatureImportances returns the absolute weights of the neuron normalized
// to sum to 1.
func (a *Adaline) FeatureImportances() ([]float64, error) {
	if err := a.state.RequireFitted("Adaline", "FeatureImportances"); err != nil {
		return nil, err
	}
	var dense *layer.Dense
	if hidden := a.network.Hidden(); len(hidden) > 0 {
		dense, _ = hidden[0].(*layer.Dense)
	}
	if dense == nil {
		return nil, errors.NewValueError("Adaline.FeatureImportances", "weight layer is missing")
	}
	r, _ := dense.Weights.Dims()
	importances := make([]float64, r)
	total := 0.0
	for i := range importances {
		importances[i] = math.Abs(dense.Weights.Value.At(i, 0))
		total += importances[i]
	}
	if total == 0 {
		return importances, nil
	}
	for i := range importances {
		importances[i] /= total
	}
	return importances, nil
}

type persistedAdaline struct {
	BatchSize int
	Alpha     float64
	Epochs    int
	MinChange float64
	Window    int
	Seed      int64
	Network   []byte
	Steps     []float64
	State     model.TrainedState
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (a *Adaline) MarshalBinary() ([]byte, error) {
	if err := a.state.RequireFitted("Adaline", "MarshalBinary"); err != nil {
		return nil, err
	}
	network, err := a.network.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return model.EncodeGob(persistedAdaline{
		BatchSize: a.batchSize,
		Alpha:     a.alpha,
		Epochs:    a.epochs,
		MinChange: a.minChange,
		Window:    a.window,
		Seed:      a.seed,
		Network:   network,
		Steps:     a.steps,
		State:     a.state.Snapshot(),
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (a *Adaline) UnmarshalBinary(blob []byte) error {
	var p persistedAdaline
	if err := model.DecodeGob(blob, &p); err != nil {
		return errors.Wrap(err, "Adaline.UnmarshalBinary")
	}
	network := &neural.FeedForward{}
	if err := network.UnmarshalBinary(p.Network); err != nil {
		return errors.Wrap(err, "Adaline.UnmarshalBinary")
	}
	a.batchSize = p.BatchSize
	a.alpha = p.Alpha
	a.epochs = p.Epochs
	a.minChange = p.MinChange
	a.window = p.Window
	a.seed = p.Seed
	a.optimizer = network.Optimizer()
	a.network = network
	a.steps = p.Steps
	a.rng = rand.New(rand.NewSource(p.Seed))
	a.state.Restore(p.State)
	return nil
}
