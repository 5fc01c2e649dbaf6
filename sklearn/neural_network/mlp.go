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

// MultilayerPerceptron is a feed-forward network classifier. The hidden
// layers are followed by a Dense layer with one neuron per class and a
// softmax output.
//
// Every epoch the network is scored on a stratified hold-out set. Training
// stops early when the score stops improving for window epochs, and the
// parameters of the best scoring epoch are restored at the end.
type MultilayerPerceptron struct {
	settings

	id      string
	network *neural.FeedForward
	classes []string
	steps   []float64
	scores  []float64
	rng     *rand.Rand
	state   *model.StateManager
}

// NewMultilayerPerceptron creates an untrained classifier. Defaults: no
// hidden layers, batch size 128, Adam(0.001), alpha 1e-4, 1000 epochs,
// min change 1e-4, window 3, hold out 0.1, cross entropy, accuracy.
func NewMultilayerPerceptron(opts ...Option) (*MultilayerPerceptron, error) {
	m := &MultilayerPerceptron{
		settings: defaultSettings(3),
		id:       model.NewID(),
		state:    model.NewStateManager(),
	}
	if err := applyOptions(&m.settings, opts); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MultilayerPerceptron) Type() model.EstimatorType { return model.ClassifierType }

func (m *MultilayerPerceptron) Capabilities() model.Capability {
	return model.Trainable | model.Online | model.Probabilistic
}

func (m *MultilayerPerceptron) Compatibility() []dataset.DataType {
	return []dataset.DataType{dataset.Continuous}
}

func (m *MultilayerPerceptron) Params() map[string]any {
	p := m.settings.params()
	p["hold_out"] = m.holdOut
	p["cost_fn"] = m.classLoss.String()
	p["metric"] = m.metric.String()
	return p
}

func (m *MultilayerPerceptron) Trained() bool { return m.state.IsFitted() }

// Fresh returns an untrained classifier with the same settings.
func (m *MultilayerPerceptron) Fresh() model.Learner {
	return &MultilayerPerceptron{
		settings: m.settings,
		id:       model.NewID(),
		state:    model.NewStateManager(),
	}
}

// Seed implements model.Seeded.
func (m *MultilayerPerceptron) Seed(seed int64) { m.seed = seed }

func (m *MultilayerPerceptron) Network() *neural.FeedForward { return m.network }
func (m *MultilayerPerceptron) Classes() []string            { return m.classes }

// Steps returns the mean training loss of every epoch.
func (m *MultilayerPerceptron) Steps() []float64 { return m.steps }

// Scores returns the hold-out score of every epoch.
func (m *MultilayerPerceptron) Scores() []float64 { return m.scores }

func (m *MultilayerPerceptron) logger() log.Logger {
	return log.GetLoggerWithName("neural_network").With(
		log.ModelNameKey, "MultilayerPerceptron",
		log.EstimatorIDKey, m.id,
	)
}

// Train builds a new network sized for d and trains it from scratch.
func (m *MultilayerPerceptron) Train(d *dataset.Labeled) error {
	if err := model.CheckTrainingSet("MultilayerPerceptron.Train", m, d); err != nil {
		return err
	}
	classes := d.PossibleOutcomes()
	output, err := layer.NewMulticlass(classes, m.classLoss)
	if err != nil {
		return err
	}
	hidden, err := cloneHidden(m.hidden)
	if err != nil {
		return err
	}
	dense, err := layer.NewDense(len(classes), m.alpha, true, initializer.Xavier1{}, nil)
	if err != nil {
		return err
	}
	input, err := layer.NewPlaceholder1D(d.NumFeatures())
	if err != nil {
		return err
	}

	m.rng = rand.New(rand.NewSource(m.seed))
	network, err := neural.NewFeedForward(input, append(hidden, dense), output, m.optimizer.Fresh(), m.rng)
	if err != nil {
		return err
	}
	m.network = network
	m.classes = classes
	m.steps, m.scores = nil, nil
	m.state.Reset()

	return m.partial(d, log.OperationTrain)
}

// Partial continues training the current network on d. An untrained
// classifier is trained from scratch.
func (m *MultilayerPerceptron) Partial(d *dataset.Labeled) error {
	if m.network == nil {
		return m.Train(d)
	}
	const op = "MultilayerPerceptron.Partial"
	if err := model.CheckTrainingSet(op, m, d); err != nil {
		return err
	}
	if err := model.CheckFeatureCount(op, m.network.Input().Inputs, d); err != nil {
		return err
	}
	if err := checkKnownLabels(op, m.classes, d); err != nil {
		return err
	}
	return m.partial(d, log.OperationPartial)
}

func (m *MultilayerPerceptron) partial(d *dataset.Labeled, operation string) error {
	const op = "MultilayerPerceptron.Train"
	logger := m.logger()
	logger.Info("Training started",
		log.OperationKey, operation,
		log.SamplesKey, d.NumSamples(),
		log.FeaturesKey, d.NumFeatures(),
		log.ClassesKey, len(m.classes),
		log.RandomSeedKey, m.seed,
	)
	start := time.Now()

	testing, training, err := d.StratifiedSplit(m.holdOut)
	if err != nil {
		return err
	}
	validate := !testing.Empty()

	minScore, maxScore := m.metric.Range()
	bestScore, bestEpoch, delta := minScore, 0, 0
	prevLoss := math.Inf(1)
	converged := false
	var snapshot *neural.Snapshot

	for epoch := 1; epoch <= m.epochs; epoch++ {
		loss, err := runEpoch(m.network, training, m.batchSize, m.rng)
		if err != nil {
			return m.abort(err)
		}
		if err := errors.CheckScalar(op, loss, epoch); err != nil {
			logger.Error("Training diverged", err, log.EpochKey, epoch, log.ErrorCodeKey, log.ErrorCode(err))
			return m.abort(err)
		}
		m.steps = append(m.steps, loss)
		observeEpoch("MultilayerPerceptron", loss)

		fields := []any{log.EpochKey, epoch, log.LossKey, loss}
		reachedMax := false
		if validate {
			score, err := m.score(testing)
			if err != nil {
				return m.abort(err)
			}
			m.scores = append(m.scores, score)
			fields = append(fields, log.ScoreKey, score)
			if score > bestScore {
				bestScore, bestEpoch, delta = score, epoch, 0
				snapshot = neural.TakeSnapshot(m.network)
			} else {
				delta++
			}
			reachedMax = score >= maxScore
		}
		logger.Debug("Epoch completed", fields...)

		if loss <= 0 || reachedMax || math.Abs(prevLoss-loss) < m.minChange || delta >= m.window {
			converged = true
			break
		}
		prevLoss = loss
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("MultilayerPerceptron", m.epochs, "loss still changing after the last epoch"))
	}

	if snapshot != nil && m.scores[len(m.scores)-1] < bestScore {
		if err := snapshot.Restore(); err != nil {
			return m.abort(err)
		}
		logger.Info("Parameters restored", log.EpochKey, bestEpoch, log.ScoreKey, bestScore)
	}

	m.state.SetFitted(d.NumFeatures(), d.NumSamples())
	logger.Info("Training completed",
		log.EpochKey, len(m.steps),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// abort drops a network whose parameters can no longer be trusted.
func (m *MultilayerPerceptron) abort(err error) error {
	m.network = nil
	m.classes = nil
	m.state.Reset()
	return err
}

func (m *MultilayerPerceptron) score(testing *dataset.Labeled) (float64, error) {
	predictions, err := m.predict(testing)
	if err != nil {
		return 0, err
	}
	return m.metric.Score(predictions, testing.Labels())
}

func (m *MultilayerPerceptron) checkInference(op string, d dataset.Dataset) error {
	if err := m.state.RequireFitted("MultilayerPerceptron", op); err != nil {
		return err
	}
	nFeatures, _ := m.state.GetDimensions()
	return model.CheckInferenceSet("MultilayerPerceptron."+op, m, nFeatures, d)
}

// Predict returns the most probable class of every sample.
func (m *MultilayerPerceptron) Predict(d dataset.Dataset) ([]string, error) {
	if err := m.checkInference("Predict", d); err != nil {
		return nil, err
	}
	return m.predict(d)
}

func (m *MultilayerPerceptron) predict(d dataset.Dataset) ([]string, error) {
	activations, err := m.network.Infer(d)
	if err != nil {
		return nil, err
	}
	r, _ := activations.Dims()
	out := make([]string, r)
	for i := range out {
		best := 0
		for k := range m.classes {
			if activations.At(i, k) > activations.At(i, best) {
				best = k
			}
		}
		out[i] = m.classes[best]
	}
	return out, nil
}

// Proba returns the softmax output of the network as a distribution over the
// training classes.
func (m *MultilayerPerceptron) Proba(d dataset.Dataset) ([]map[string]float64, error) {
	if err := m.checkInference("Proba", d); err != nil {
		return nil, err
	}
	activations, err := m.network.Infer(d)
	if err != nil {
		return nil, err
	}
	r, _ := activations.Dims()
	out := make([]map[string]float64, r)
	for i := range out {
		dist := make(map[string]float64, len(m.classes))
		for k, class := range m.classes {
			dist[class] = activations.At(i, k)
		}
		out[i] = dist
	}
	return out, nil
}

type persistedPerceptron struct {
	BatchSize int
	Alpha     float64
	Epochs    int
	MinChange float64
	Window    int
	HoldOut   float64
	Seed      int64
	Network   []byte
	Classes   []string
	Steps     []float64
	Scores    []float64
	State     model.TrainedState
}

// MarshalBinary implements encoding.BinaryMarshaler. The hidden layer
// templates, cost function and metric are not persisted; a loaded classifier
// keeps the ones it was created with.
func (m *MultilayerPerceptron) MarshalBinary() ([]byte, error) {
	if err := m.state.RequireFitted("MultilayerPerceptron", "MarshalBinary"); err != nil {
		return nil, err
	}
	network, err := m.network.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return model.EncodeGob(persistedPerceptron{
		BatchSize: m.batchSize,
		Alpha:     m.alpha,
		Epochs:    m.epochs,
		MinChange: m.minChange,
		Window:    m.window,
		HoldOut:   m.holdOut,
		Seed:      m.seed,
		Network:   network,
		Classes:   m.classes,
		Steps:     m.steps,
		Scores:    m.scores,
		State:     m.state.Snapshot(),
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *MultilayerPerceptron) UnmarshalBinary(blob []byte) error {
	var p persistedPerceptron
	if err := model.DecodeGob(blob, &p); err != nil {
		return errors.Wrap(err, "MultilayerPerceptron.UnmarshalBinary")
	}
	network := &neural.FeedForward{}
	if err := network.UnmarshalBinary(p.Network); err != nil {
		return errors.Wrap(err, "MultilayerPerceptron.UnmarshalBinary")
	}
	m.batchSize = p.BatchSize
	m.alpha = p.Alpha
	m.epochs = p.Epochs
	m.minChange = p.MinChange
	m.window = p.Window
	m.holdOut = p.HoldOut
	m.seed = p.Seed
	m.optimizer = network.Optimizer()
	m.network = network
	m.classes = p.Classes
	m.steps = p.Steps
	m.scores = p.Scores
	m.rng = rand.New(rand.NewSource(p.Seed))
	m.state.Restore(p.State)
	return nil
}

// runEpoch trains on every batch of a shuffled copy of d and returns the
// mean batch loss.
func runEpoch(n *neural.FeedForward, d *dataset.Labeled, batchSize int, rng *rand.Rand) (float64, error) {
	batches := d.Randomize(rng).Batch(batchSize)
	total := 0.0
	for _, b := range batches {
		loss, err := n.Roundtrip(b)
		if err != nil {
			return 0, err
		}
		total += loss
	}
	return total / float64(len(batches)), nil
}

func checkKnownLabels(op string, classes []string, d *dataset.Labeled) error {
	known := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		known[c] = struct{}{}
	}
	for _, l := range d.Labels() {
		if _, ok := known[l]; !ok {
			return errors.NewIncompatibleDataError(op, -1, l, classes)
		}
	}
	return nil
}
