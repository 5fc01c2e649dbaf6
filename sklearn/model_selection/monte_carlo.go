package model_selection

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// MonteCarlo repeats a random hold-out split. Every simulation shuffles the
// dataset and tests on the first ratio of it.
type MonteCarlo struct {
	settings
	simulations int
	ratio       float64
}

// NewMonteCarlo creates a Monte Carlo validator. Simulations must be at
// least 1 and ratio strictly between 0 and 1.
func NewMonteCarlo(simulations int, ratio float64, opts ...Option) (*MonteCarlo, error) {
	if simulations < 1 {
		return nil, errors.NewValidationError("simulations", "must be greater than 0", simulations)
	}
	if ratio <= 0 || ratio >= 1 || math.IsNaN(ratio) {
		return nil, errors.NewValidationError("ratio", "must be strictly between 0 and 1", ratio)
	}
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &MonteCarlo{settings: s, simulations: simulations, ratio: ratio}, nil
}

// Test returns the mean score over the simulations.
func (v *MonteCarlo) Test(learner model.Learner, d *dataset.Labeled, m metrics.Metric) (float64, error) {
	if err := precheck("MonteCarlo.Test", learner, d, m); err != nil {
		return 0, err
	}
	rng := newRand(v.seed)
	stratify := v.stratify(d)

	splits := make([]split, v.simulations)
	for i := range splits {
		shuffled := d.Randomize(rng)
		var testing, training *dataset.Labeled
		var err error
		if stratify {
			testing, training, err = shuffled.StratifiedSplit(v.ratio)
		} else {
			testing, training, err = shuffled.Split(v.ratio)
		}
		if err != nil {
			return 0, err
		}
		if testing.Empty() || training.Empty() {
			return 0, errors.NewValidationError("ratio", "leaves an empty training or testing set", v.ratio)
		}
		splits[i] = split{training: training, testing: testing}
	}
	return evaluate("MonteCarlo", v.settings, learner, m, splits)
}

func (v *MonteCarlo) String() string {
	return fmt.Sprintf("MonteCarlo(simulations=%d, ratio=%g, stratified=%t, backend=%s)",
		v.simulations, v.ratio, v.stratified, v.backend)
}
