package model_selection

import (
	"fmt"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// KFold cuts a shuffled copy of the dataset into k folds and scores k copies
// of the learner, each tested on one fold and trained on the others.
type KFold struct {
	settings
	k int
}

// NewKFold creates a k-fold validator. k must be at least 2.
func NewKFold(k int, opts ...Option) (*KFold, error) {
	if k < 2 {
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	}
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &KFold{settings: s, k: k}, nil
}

func (v *KFold) K() int { return v.k }

// Test returns the mean score over the k folds.
func (v *KFold) Test(learner model.Learner, d *dataset.Labeled, m metrics.Metric) (float64, error) {
	if err := precheck("KFold.Test", learner, d, m); err != nil {
		return 0, err
	}
	shuffled := d.Randomize(newRand(v.seed))

	var folds []*dataset.Labeled
	var err error
	if v.stratify(d) {
		folds, err = shuffled.StratifiedFold(v.k)
	} else {
		folds, err = shuffled.Fold(v.k)
	}
	if err != nil {
		return 0, err
	}

	splits := make([]split, v.k)
	for i := range folds {
		training, err := mergeExcept(folds, i)
		if err != nil {
			return 0, err
		}
		splits[i] = split{training: training, testing: folds[i]}
	}
	return evaluate("KFold", v.settings, learner, m, splits)
}

func (v *KFold) String() string {
	return fmt.Sprintf("KFold(k=%d, stratified=%t, backend=%s)", v.k, v.stratified, v.backend)
}
