package tree

import (
	"math/rand"
	"time"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// base holds what every tree shares: the hyperparameters, the grown tree and
// the trained state.
type base struct {
	name   string
	id     string
	cfg    Config
	crit   criterion
	search splitSearch
	root   Node
	state  *model.StateManager
}

func newBase(name string, crit criterion, search splitSearch, opts []Option) (base, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return base{}, err
	}
	return base{
		name:   name,
		id:     model.NewID(),
		cfg:    cfg,
		crit:   crit,
		search: search,
		state:  model.NewStateManager(),
	}, nil
}

// fresh returns an untrained copy with the same hyperparameters.
func (b *base) fresh() base {
	return base{
		name:   b.name,
		id:     model.NewID(),
		cfg:    b.cfg,
		crit:   b.crit,
		search: b.search,
		state:  model.NewStateManager(),
	}
}

func (b *base) logger() log.Logger {
	return log.GetLoggerWithName("tree").With(
		log.ModelNameKey, b.name,
		log.EstimatorIDKey, b.id,
	)
}

// Compatibility implements model.Estimator. Trees split on both kinds of
// column.
func (b *base) Compatibility() []dataset.DataType {
	return []dataset.DataType{dataset.Categorical, dataset.Continuous}
}

// Params implements model.Estimator.
func (b *base) Params() map[string]any {
	return b.cfg.params()
}

// Trained implements model.Estimator.
func (b *base) Trained() bool {
	return b.state.IsFitted()
}

// Seed implements model.Seeded.
func (b *base) Seed(seed int64) {
	b.cfg.RandomState = seed
}

// grow builds the tree on a validated training set.
func (b *base) grow(d *dataset.Labeled) {
	logger := b.logger()
	logger.Info("Training started",
		log.OperationKey, log.OperationTrain,
		log.SamplesKey, d.NumSamples(),
		log.FeaturesKey, d.NumFeatures(),
	)
	start := time.Now()

	bld := &builder{
		cfg:    b.cfg,
		crit:   b.crit,
		search: b.search,
		rng:    rand.New(rand.NewSource(b.cfg.RandomState)),
	}
	b.root = bld.grow(d)
	b.state.SetFitted(d.NumFeatures(), d.NumSamples())

	logger.Info("Training completed",
		log.HeightKey, b.Height(),
		log.LeavesKey, b.NumLeaves(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// leaves finds the leaf of every sample of d after checking that the tree
// is trained and d is usable.
func (b *base) leaves(op string, e model.Estimator, d dataset.Dataset) ([]*Leaf, error) {
	if err := b.state.RequireFitted(b.name, op); err != nil {
		return nil, err
	}
	nFeatures, _ := b.state.GetDimensions()
	if err := model.CheckInferenceSet(b.name+"."+op, e, nFeatures, d); err != nil {
		return nil, err
	}
	out := make([]*Leaf, d.NumSamples())
	for i, sample := range d.Samples() {
		out[i] = Search(b.root, sample)
	}
	return out, nil
}

// Root returns the root node, nil before training.
func (b *base) Root() Node {
	return b.root
}

// Height returns the number of levels of the tree, 0 before training.
func (b *base) Height() int {
	return Height(b.root)
}

// NumLeaves returns the number of leaves.
func (b *base) NumLeaves() int {
	n := 0
	Walk(b.root, func(node Node) {
		if _, ok := node.(*Leaf); ok {
			n++
		}
	})
	return n
}

// FeatureImportances returns the size weighted impurity decrease of every
// column, normalized to sum to 1. Columns never split on get 0.
func (b *base) FeatureImportances() ([]float64, error) {
	if err := b.state.RequireFitted(b.name, "FeatureImportances"); err != nil {
		return nil, err
	}
	nFeatures, _ := b.state.GetDimensions()
	importances := make([]float64, nFeatures)
	total := 0.0
	Walk(b.root, func(node Node) {
		s, ok := node.(*Split)
		if !ok {
			return
		}
		gain := float64(s.N) * s.PurityIncrease()
		if gain > 0 {
			importances[s.Column] += gain
			total += gain
		}
	})
	if total > 0 {
		for i := range importances {
			importances[i] /= total
		}
	}
	return importances, nil
}

// persisted is the gob encoded form of a tree.
type persisted struct {
	Config  Config
	Root    Node
	Classes []string
	State   model.TrainedState
}

func (b *base) marshal(classes []string) ([]byte, error) {
	if err := b.state.RequireFitted(b.name, "MarshalBinary"); err != nil {
		return nil, err
	}
	return model.EncodeGob(persisted{
		Config:  b.cfg,
		Root:    b.root,
		Classes: classes,
		State:   b.state.Snapshot(),
	})
}

func (b *base) unmarshal(blob []byte) ([]string, error) {
	var p persisted
	if err := model.DecodeGob(blob, &p); err != nil {
		return nil, errors.Wrapf(err, "%s.UnmarshalBinary", b.name)
	}
	b.cfg = p.Config
	b.root = p.Root
	b.state.Restore(p.State)
	return p.Classes, nil
}
