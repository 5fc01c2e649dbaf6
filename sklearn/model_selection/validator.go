// Package model_selection estimates how well a learner generalizes by
// training fresh copies of it on resampled training sets and scoring them on
// the held out samples.
//
// Every split becomes one backend.TrainAndValidate task, so a Workers backend
// trains the copies in parallel. The returned score is the mean over splits.
package model_selection

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciforest/core/backend"
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// Validator scores a learner on a labeled dataset.
type Validator interface {
	Test(learner model.Learner, d *dataset.Labeled, m metrics.Metric) (float64, error)
	String() string
}

type settings struct {
	backend    backend.Backend
	stratified bool
	seed       int64
}

// Option configures a validator.
type Option func(*settings) error

// WithBackend sets the backend the train and validate tasks run on. Default
// is Serial.
func WithBackend(b backend.Backend) Option {
	return func(s *settings) error {
		if b == nil {
			return errors.NewValidationError("backend", "must not be nil", nil)
		}
		s.backend = b
		return nil
	}
}

// WithStratified keeps the class proportions of a categorical dataset in
// every split. It has no effect on continuous labels. Default is true.
func WithStratified(stratified bool) Option {
	return func(s *settings) error {
		s.stratified = stratified
		return nil
	}
}

// WithRandomState seeds the shuffling of the dataset.
func WithRandomState(seed int64) Option {
	return func(s *settings) error {
		s.seed = seed
		return nil
	}
}

func newSettings(opts []Option) (settings, error) {
	s := settings{
		backend:    backend.NewSerial(),
		stratified: true,
		seed:       time.Now().UnixNano(),
	}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s settings) stratify(d *dataset.Labeled) bool {
	return s.stratified && d.LabelType() == dataset.Categorical
}

// split is one training and testing pair.
type split struct {
	training, testing *dataset.Labeled
}

// evaluate trains a fresh copy of learner on every split through the backend
// and returns the mean score.
func evaluate(name string, s settings, learner model.Learner, m metrics.Metric, splits []split) (float64, error) {
	logger := log.GetLoggerWithName("model_selection").With(
		"validator", name,
		log.BackendKey, s.backend.String(),
	)
	logger.Info("Validation started",
		log.OperationKey, log.OperationValidate,
		log.TasksKey, len(splits),
	)
	start := time.Now()

	score := func(l model.Learner, testing *dataset.Labeled) (float64, error) {
		return metrics.Validate(l, testing, m)
	}
	s.backend.Flush()
	for _, sp := range splits {
		s.backend.Enqueue(backend.TrainAndValidate(learner.Fresh(), sp.training, sp.testing, score), nil)
	}
	results, err := s.backend.Process()
	if err != nil {
		return 0, errors.Wrap(err, name+".Test")
	}

	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.(float64)
	}
	mean := stat.Mean(scores, nil)
	logger.Info("Validation completed",
		log.ScoreKey, mean,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return mean, nil
}

func precheck(op string, learner model.Learner, d *dataset.Labeled, m metrics.Metric) error {
	if learner == nil || m == nil {
		return errors.NewValidationError("learner", "learner and metric are required", nil)
	}
	if err := metrics.CheckCompatible(learner, m); err != nil {
		return err
	}
	if d == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return model.CheckNotEmpty(op, d)
}

// mergeExcept joins every fold but the i-th.
func mergeExcept(folds []*dataset.Labeled, i int) (*dataset.Labeled, error) {
	var out *dataset.Labeled
	for j, f := range folds {
		if j == i {
			continue
		}
		if out == nil {
			out = f
			continue
		}
		merged, err := out.Merge(f)
		if err != nil {
			return nil, err
		}
		out = merged
	}
	return out, nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
