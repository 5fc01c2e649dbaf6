// Package ensemble implements bagged ensembles of decision trees.
package ensemble

import (
	"math"
	"math/rand"
	"time"

	"github.com/YuminosukeSato/sciforest/core/backend"
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// Tree is what a RandomForest can be built from: a probabilistic classifier
// that ranks features.
type Tree interface {
	model.ProbabilisticClassifier
	model.RanksFeatures
}

// RandomForest is an ensemble of classification trees, each trained on a
// bootstrap subset of the training set. Predictions are a plurality vote and
// probabilities the mean of the trees' probabilities.
type RandomForest struct {
	base       Tree
	estimators int
	ratio      float64
	balanced   bool
	backend    backend.Backend
	seed       int64

	id      string
	trees   []Tree
	classes []string
	state   *model.StateManager
}

// Option configures a RandomForest.
type Option func(*RandomForest) error

// WithBase sets the tree every estimator is copied from. Default is a
// ClassificationTree with default settings.
func WithBase(t model.Learner) Option {
	return func(f *RandomForest) error {
		base, ok := t.(Tree)
		if !ok || t.Type() != model.ClassifierType ||
			!model.Has(t, model.Trainable|model.Probabilistic|model.Ranking) {
			return errors.NewValidationError("base", "must be a probabilistic classifier that ranks features", model.Describe("base", t))
		}
		f.base = base
		return nil
	}
}

// WithEstimators sets the number of trees.
func WithEstimators(n int) Option {
	return func(f *RandomForest) error {
		if n < 1 {
			return errors.NewValidationError("estimators", "must be at least 1", n)
		}
		f.estimators = n
		return nil
	}
}

// WithRatio sets the size of each bootstrap subset relative to the training
// set. Must be in (0, 1.5].
func WithRatio(r float64) Option {
	return func(f *RandomForest) error {
		if r <= 0 || r > 1.5 || math.IsNaN(r) {
			return errors.NewValidationError("ratio", "must be in (0, 1.5]", r)
		}
		f.ratio = r
		return nil
	}
}

// WithBalanced weights the bootstrap draw by inverse class frequency.
func WithBalanced(balanced bool) Option {
	return func(f *RandomForest) error {
		f.balanced = balanced
		return nil
	}
}

// WithBackend sets the backend trees are trained and queried on.
func WithBackend(b backend.Backend) Option {
	return func(f *RandomForest) error {
		if b == nil {
			return errors.NewValidationError("backend", "must not be nil", nil)
		}
		f.backend = b
		return nil
	}
}

// WithRandomState seeds the bootstrap draws and the per-tree seeds.
func WithRandomState(seed int64) Option {
	return func(f *RandomForest) error {
		f.seed = seed
		return nil
	}
}

// NewRandomForest creates an untrained forest of 100 ClassificationTrees
// trained on bootstrap subsets of 20% of the training set.
func NewRandomForest(opts ...Option) (*RandomForest, error) {
	f := &RandomForest{
		estimators: 100,
		ratio:      0.2,
		backend:    backend.NewSerial(),
		seed:       time.Now().UnixNano(),
		id:         model.NewID(),
		state:      model.NewStateManager(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	if f.base == nil {
		t, err := tree.NewClassificationTree()
		if err != nil {
			return nil, err
		}
		f.base = t
	}
	return f, nil
}

func (f *RandomForest) Type() model.EstimatorType { return model.ClassifierType }

func (f *RandomForest) Capabilities() model.Capability {
	return model.Trainable | model.Probabilistic | model.Ranking
}

func (f *RandomForest) Compatibility() []dataset.DataType {
	return f.base.Compatibility()
}

func (f *RandomForest) Params() map[string]any {
	return map[string]any{
		"base":       model.Describe("base", f.base),
		"estimators": f.estimators,
		"ratio":      f.ratio,
		"balanced":   f.balanced,
		"backend":    f.backend.String(),
	}
}

func (f *RandomForest) Trained() bool { return f.state.IsFitted() }

// Fresh returns an untrained forest with the same settings and backend.
func (f *RandomForest) Fresh() model.Learner {
	return &RandomForest{
		base:       f.base,
		estimators: f.estimators,
		ratio:      f.ratio,
		balanced:   f.balanced,
		backend:    f.backend,
		seed:       f.seed,
		id:         model.NewID(),
		state:      model.NewStateManager(),
	}
}

// Seed implements model.Seeded.
func (f *RandomForest) Seed(seed int64) { f.seed = seed }

// Trees returns the trained trees.
func (f *RandomForest) Trees() []Tree { return f.trees }

// Classes returns the training outcomes in first-seen order.
func (f *RandomForest) Classes() []string { return f.classes }

func (f *RandomForest) logger() log.Logger {
	return log.GetLoggerWithName("ensemble").With(
		log.ModelNameKey, "RandomForest",
		log.EstimatorIDKey, f.id,
	)
}

// Train fits every tree on its own bootstrap subset of d and blocks until
// all of them are trained.
func (f *RandomForest) Train(d *dataset.Labeled) error {
	if err := model.CheckTrainingSet("RandomForest.Train", f, d); err != nil {
		return err
	}
	logger := f.logger()
	logger.Info("Training started",
		log.OperationKey, log.OperationTrain,
		log.SamplesKey, d.NumSamples(),
		log.FeaturesKey, d.NumFeatures(),
		log.TreesKey, f.estimators,
		log.BackendKey, f.backend.String(),
	)
	start := time.Now()

	rng := rand.New(rand.NewSource(f.seed))
	k := int(math.Ceil(f.ratio * float64(d.NumSamples())))

	var weights []float64
	if f.balanced {
		weights = balancedWeights(d)
	}

	f.backend.Flush()
	for i := 0; i < f.estimators; i++ {
		learner := f.base.Fresh()
		if s, ok := learner.(model.Seeded); ok {
			s.Seed(rng.Int63())
		}

		var subset *dataset.Labeled
		var err error
		if weights != nil {
			subset, err = d.RandomWeightedSubsetWithReplacement(k, weights, rng)
		} else {
			subset, err = d.RandomSubsetWithReplacement(k, rng)
		}
		if err != nil {
			f.backend.Flush()
			return err
		}
		f.backend.Enqueue(backend.TrainLearner(learner, subset), nil)
	}

	results, err := f.backend.Process()
	if err != nil {
		return errors.Wrap(err, "RandomForest.Train")
	}
	trees := make([]Tree, len(results))
	for i, r := range results {
		trees[i] = r.(Tree)
	}

	f.trees = trees
	f.classes = d.PossibleOutcomes()
	f.state.SetFitted(d.NumFeatures(), d.NumSamples())
	trainedForests.Inc()

	logger.Info("Training completed",
		log.TreesKey, len(trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// balancedWeights returns 1 / count(label) for every sample.
func balancedWeights(d *dataset.Labeled) []float64 {
	counts := make(map[string]int)
	for _, l := range d.Labels() {
		counts[l]++
	}
	weights := make([]float64, d.NumSamples())
	for i, l := range d.Labels() {
		weights[i] = 1 / float64(counts[l])
	}
	return weights
}

func (f *RandomForest) checkInference(op string, d dataset.Dataset) error {
	if err := f.state.RequireFitted("RandomForest", op); err != nil {
		return err
	}
	nFeatures, _ := f.state.GetDimensions()
	return model.CheckInferenceSet("RandomForest."+op, f, nFeatures, d)
}

// Predict returns the plurality vote of the trees for every sample. Ties go
// to the class seen first in the training set.
func (f *RandomForest) Predict(d dataset.Dataset) ([]string, error) {
	if err := f.checkInference("Predict", d); err != nil {
		return nil, err
	}

	f.backend.Flush()
	for _, t := range f.trees {
		f.backend.Enqueue(backend.Predict(t, d), nil)
	}
	results, err := f.backend.Process()
	if err != nil {
		return nil, errors.Wrap(err, "RandomForest.Predict")
	}

	votes := make([][]string, len(results))
	for i, r := range results {
		votes[i] = r.([]string)
	}
	out := make([]string, d.NumSamples())
	for s := range out {
		ballot := make([]string, len(votes))
		for t := range votes {
			ballot[t] = votes[t][s]
		}
		out[s] = plurality(ballot, f.classes)
	}
	return out, nil
}

// plurality returns the most frequent vote. Ties go to the earliest class
// in order.
func plurality(votes []string, order []string) string {
	counts := make(map[string]int, len(order))
	for _, v := range votes {
		counts[v]++
	}
	best, bestCount := "", -1
	for _, class := range order {
		if counts[class] > bestCount {
			best, bestCount = class, counts[class]
		}
	}
	return best
}

// Proba returns the mean of the trees' class probabilities.
func (f *RandomForest) Proba(d dataset.Dataset) ([]map[string]float64, error) {
	if err := f.checkInference("Proba", d); err != nil {
		return nil, err
	}

	f.backend.Flush()
	for _, t := range f.trees {
		f.backend.Enqueue(backend.Proba(t, d), nil)
	}
	results, err := f.backend.Process()
	if err != nil {
		return nil, errors.Wrap(err, "RandomForest.Proba")
	}

	out := make([]map[string]float64, d.NumSamples())
	for s := range out {
		dist := make(map[string]float64, len(f.classes))
		for _, class := range f.classes {
			dist[class] = 0
		}
		out[s] = dist
	}
	for _, r := range results {
		for s, dist := range r.([]map[string]float64) {
			for class, p := range dist {
				out[s][class] += p
			}
		}
	}
	n := float64(len(results))
	for _, dist := range out {
		for class := range dist {
			dist[class] /= n
		}
	}
	return out, nil
}

// FeatureImportances returns the mean importance over the trees.
func (f *RandomForest) FeatureImportances() ([]float64, error) {
	if err := f.state.RequireFitted("RandomForest", "FeatureImportances"); err != nil {
		return nil, err
	}
	nFeatures, _ := f.state.GetDimensions()
	out := make([]float64, nFeatures)
	for _, t := range f.trees {
		importances, err := t.FeatureImportances()
		if err != nil {
			return nil, err
		}
		for i, v := range importances {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(f.trees))
	}
	return out, nil
}

type persistedForest struct {
	Estimators int
	Ratio      float64
	Balanced   bool
	Seed       int64
	Trees      [][]byte
	Classes    []string
	State      model.TrainedState
}

// MarshalBinary implements encoding.BinaryMarshaler. The backend is not
// persisted; a loaded forest runs on the backend it was created with.
func (f *RandomForest) MarshalBinary() ([]byte, error) {
	if err := f.state.RequireFitted("RandomForest", "MarshalBinary"); err != nil {
		return nil, err
	}
	p := persistedForest{
		Estimators: f.estimators,
		Ratio:      f.ratio,
		Balanced:   f.balanced,
		Seed:       f.seed,
		Classes:    f.classes,
		State:      f.state.Snapshot(),
	}
	for _, t := range f.trees {
		m, ok := t.(interface{ MarshalBinary() ([]byte, error) })
		if !ok {
			return nil, errors.NewValueError("RandomForest.MarshalBinary", "tree is not serializable")
		}
		blob, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		p.Trees = append(p.Trees, blob)
	}
	return model.EncodeGob(p)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trees are decoded
// into fresh copies of the forest's base.
func (f *RandomForest) UnmarshalBinary(blob []byte) error {
	var p persistedForest
	if err := model.DecodeGob(blob, &p); err != nil {
		return errors.Wrap(err, "RandomForest.UnmarshalBinary")
	}
	trees := make([]Tree, len(p.Trees))
	for i, tb := range p.Trees {
		t, ok := f.base.Fresh().(Tree)
		if !ok {
			return errors.NewValueError("RandomForest.UnmarshalBinary", "base is not a tree")
		}
		u, ok := t.(interface{ UnmarshalBinary([]byte) error })
		if !ok {
			return errors.NewValueError("RandomForest.UnmarshalBinary", "tree is not serializable")
		}
		if err := u.UnmarshalBinary(tb); err != nil {
			return err
		}
		trees[i] = t
	}
	f.estimators = p.Estimators
	f.ratio = p.Ratio
	f.balanced = p.Balanced
	f.seed = p.Seed
	f.trees = trees
	f.classes = p.Classes
	f.state.Restore(p.State)
	return nil
}
