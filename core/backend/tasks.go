package backend

import (
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Scorer scores a trained learner on a testing set.
type Scorer func(learner model.Learner, testing *dataset.Labeled) (float64, error)

// TrainLearner trains learner on d. The result is the trained learner.
func TrainLearner(learner model.Learner, d *dataset.Labeled) Task {
	return Task{
		Name: "train_learner",
		Fn: func() (any, error) {
			if err := learner.Train(d); err != nil {
				return nil, err
			}
			return learner, nil
		},
	}
}

// Predict runs a classifier or regressor on d. The result is []string or
// []float64 depending on the estimator.
func Predict(estimator model.Estimator, d dataset.Dataset) Task {
	return Task{
		Name: "predict",
		Fn: func() (any, error) {
			switch e := estimator.(type) {
			case model.Classifier:
				return e.Predict(d)
			case model.Regressor:
				return e.Predict(d)
			default:
				return nil, errors.NewValueError("backend.Predict", "estimator does not predict")
			}
		},
	}
}

// Proba returns the class probabilities of a probabilistic classifier.
func Proba(estimator model.ProbabilisticClassifier, d dataset.Dataset) Task {
	return Task{
		Name: "proba",
		Fn: func() (any, error) {
			return estimator.Proba(d)
		},
	}
}

// TrainAndValidate trains learner on training and scores it on testing. The
// result is the float64 score.
func TrainAndValidate(learner model.Learner, training, testing *dataset.Labeled, score Scorer) Task {
	return Task{
		Name: "train_and_validate",
		Fn: func() (any, error) {
			if err := learner.Train(training); err != nil {
				return nil, err
			}
			return score(learner, testing)
		},
	}
}
