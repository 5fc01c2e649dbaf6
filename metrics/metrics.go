// Package metrics は学習器の予測を採点する評価指標を提供します。
//
// Metric の Score は大きいほど良い値を返します。誤差系の指標は符号を反転した
// 値を返すため、交差検証やホールドアウト検証では常に最大化すればよくなります。
package metrics

import (
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Metric は評価指標の共通部分
type Metric interface {
	// Range はスコアの最小値と最大値を返す
	Range() (min, max float64)

	String() string
}

// ClassificationMetric はクラスラベルの予測を採点する
type ClassificationMetric interface {
	Metric
	Score(predictions, labels []string) (float64, error)
}

// RegressionMetric は連続値の予測を採点する
type RegressionMetric interface {
	Metric
	Score(predictions, targets []float64) (float64, error)
}

// CheckCompatible は指標が推定器の種類に対応しているか検証します。
func CheckCompatible(e model.Estimator, m Metric) error {
	switch m.(type) {
	case ClassificationMetric:
		if e.Type() == model.ClassifierType {
			return nil
		}
	case RegressionMetric:
		if e.Type() == model.RegressorType {
			return nil
		}
	}
	return errors.NewValidationError("metric", "not compatible with a "+e.Type().String(), m.String())
}

// Validate は学習済みの推定器で testing を予測し、指標で採点します。
func Validate(e model.Estimator, testing *dataset.Labeled, m Metric) (float64, error) {
	if err := CheckCompatible(e, m); err != nil {
		return 0, err
	}
	switch metric := m.(type) {
	case ClassificationMetric:
		c, ok := e.(model.Classifier)
		if !ok {
			return 0, errors.NewValueError("metrics.Validate", "estimator does not predict class labels")
		}
		predictions, err := c.Predict(testing)
		if err != nil {
			return 0, err
		}
		return metric.Score(predictions, testing.Labels())
	case RegressionMetric:
		r, ok := e.(model.Regressor)
		if !ok {
			return 0, errors.NewValueError("metrics.Validate", "estimator does not predict values")
		}
		predictions, err := r.Predict(testing)
		if err != nil {
			return 0, err
		}
		return metric.Score(predictions, testing.Targets())
	}
	return 0, errors.NewValueError("metrics.Validate", "unknown metric kind")
}

func checkLengths(op string, predictions, labels int) error {
	if predictions == 0 {
		return errors.NewValueError(op, "empty predictions")
	}
	if predictions != labels {
		return errors.NewDimensionError(op, labels, predictions, 0)
	}
	return nil
}
