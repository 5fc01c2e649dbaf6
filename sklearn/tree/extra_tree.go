// Package tree implements binary decision trees grown by recursive
// partitioning: the randomized Extra-Tree classifier and regressor and the
// exhaustive CART ClassificationTree.
//
// Classification trees minimize the entropy of the labels and regression
// trees the variance of the targets. Continuous columns split on <= and
// categorical columns on ==.
package tree

import (
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
)

// ExtraTreeClassifier is an extremely randomized classification tree. Each
// split considers MaxFeatures random columns with a single random split
// value each and keeps the purest.
type ExtraTreeClassifier struct {
	classifier
}

// NewExtraTreeClassifier creates an untrained tree.
//
// Defaults: unlimited depth, MaxLeafSize 3, MaxFeatures round(sqrt(columns)),
// MinPurityIncrease 1e-7.
func NewExtraTreeClassifier(opts ...Option) (*ExtraTreeClassifier, error) {
	b, err := newBase("ExtraTreeClassifier", entropyCriterion{}, randomSplit, opts)
	if err != nil {
		return nil, err
	}
	return &ExtraTreeClassifier{classifier{base: b}}, nil
}

// Fresh implements model.Learner.
func (t *ExtraTreeClassifier) Fresh() model.Learner {
	return &ExtraTreeClassifier{classifier{base: t.fresh()}}
}

// Train grows the tree on d.
func (t *ExtraTreeClassifier) Train(d *dataset.Labeled) error {
	return t.train(t, d)
}

// Predict returns the leaf outcome of every sample.
func (t *ExtraTreeClassifier) Predict(d dataset.Dataset) ([]string, error) {
	return t.predict(t, d)
}

// Proba returns the class distribution of the leaf of every sample.
func (t *ExtraTreeClassifier) Proba(d dataset.Dataset) ([]map[string]float64, error) {
	return t.proba(t, d)
}

// ExtraTreeRegressor is the regression counterpart of ExtraTreeClassifier:
// variance impurity and mean leaf outcome.
type ExtraTreeRegressor struct {
	base
}

// NewExtraTreeRegressor creates an untrained tree with the same defaults as
// NewExtraTreeClassifier.
func NewExtraTreeRegressor(opts ...Option) (*ExtraTreeRegressor, error) {
	b, err := newBase("ExtraTreeRegressor", varianceCriterion{}, randomSplit, opts)
	if err != nil {
		return nil, err
	}
	return &ExtraTreeRegressor{base: b}, nil
}

func (t *ExtraTreeRegressor) Type() model.EstimatorType {
	return model.RegressorType
}

func (t *ExtraTreeRegressor) Capabilities() model.Capability {
	return model.Trainable | model.Ranking
}

func (t *ExtraTreeRegressor) Fresh() model.Learner {
	return &ExtraTreeRegressor{base: t.fresh()}
}

func (t *ExtraTreeRegressor) Train(d *dataset.Labeled) error {
	if err := model.CheckTrainingSet(t.name+".Train", t, d); err != nil {
		return err
	}
	t.grow(d)
	return nil
}

// Predict returns the mean target of the leaf of every sample.
func (t *ExtraTreeRegressor) Predict(d dataset.Dataset) ([]float64, error) {
	leaves, err := t.leaves("Predict", t, d)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(leaves))
	for i, l := range leaves {
		out[i] = l.Value
	}
	return out, nil
}

func (t *ExtraTreeRegressor) MarshalBinary() ([]byte, error) {
	return t.marshal(nil)
}

func (t *ExtraTreeRegressor) UnmarshalBinary(blob []byte) error {
	_, err := t.unmarshal(blob)
	return err
}
