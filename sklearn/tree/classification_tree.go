package tree

import (
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
)

// ClassificationTree is a CART classifier. Each split tries every distinct
// value of MaxFeatures random columns; continuous columns with many values
// are reduced to MaxBins quantile candidates.
type ClassificationTree struct {
	classifier
}

// NewClassificationTree creates an untrained tree. Defaults match
// NewExtraTreeClassifier plus MaxBins 256.
func NewClassificationTree(opts ...Option) (*ClassificationTree, error) {
	b, err := newBase("ClassificationTree", entropyCriterion{}, exhaustiveSplit, opts)
	if err != nil {
		return nil, err
	}
	return &ClassificationTree{classifier{base: b}}, nil
}

func (t *ClassificationTree) Fresh() model.Learner {
	return &ClassificationTree{classifier{base: t.fresh()}}
}

func (t *ClassificationTree) Train(d *dataset.Labeled) error {
	return t.train(t, d)
}

func (t *ClassificationTree) Predict(d dataset.Dataset) ([]string, error) {
	return t.predict(t, d)
}

func (t *ClassificationTree) Proba(d dataset.Dataset) ([]map[string]float64, error) {
	return t.proba(t, d)
}

func (t *ClassificationTree) Params() map[string]any {
	p := t.cfg.params()
	p["max_bins"] = t.cfg.MaxBins
	return p
}
