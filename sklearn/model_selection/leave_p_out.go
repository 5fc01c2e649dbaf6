package model_selection

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// LeavePOut tests on every consecutive block of p samples in turn, training
// on the rest. The dataset is not shuffled.
type LeavePOut struct {
	settings
	p int
}

// NewLeavePOut creates a leave-p-out validator. p must be at least 1.
func NewLeavePOut(p int, opts ...Option) (*LeavePOut, error) {
	if p < 1 {
		return nil, errors.NewValidationError("p", "must be greater than 0", p)
	}
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &LeavePOut{settings: s, p: p}, nil
}

// Test returns the mean score over the blocks.
func (v *LeavePOut) Test(learner model.Learner, d *dataset.Labeled, m metrics.Metric) (float64, error) {
	if err := precheck("LeavePOut.Test", learner, d, m); err != nil {
		return 0, err
	}
	n := d.NumSamples()
	blocks := int(math.Round(float64(n) / float64(v.p)))

	var splits []split
	for i := 0; i < blocks; i++ {
		from := i * v.p
		to := min(from+v.p, n)
		if from >= to || to-from == n {
			continue
		}
		var train, test []int
		for k := 0; k < n; k++ {
			if k >= from && k < to {
				test = append(test, k)
			} else {
				train = append(train, k)
			}
		}
		splits = append(splits, split{training: d.Subset(train), testing: d.Subset(test)})
	}
	if len(splits) == 0 {
		return 0, errors.NewValidationError("p", "not enough samples to leave p out", v.p)
	}
	return evaluate("LeavePOut", v.settings, learner, m, splits)
}

func (v *LeavePOut) String() string {
	return fmt.Sprintf("LeavePOut(p=%d, backend=%s)", v.p, v.backend)
}
