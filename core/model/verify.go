package model

import (
	"fmt"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// CheckNotEmpty returns ErrEmptyData wrapped for op when d has no samples.
func CheckNotEmpty(op string, d dataset.Dataset) error {
	if d == nil || d.Empty() {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return nil
}

// CheckSamplesCompatible verifies that every column type of d is accepted
// by e.
func CheckSamplesCompatible(op string, e Estimator, d dataset.Dataset) error {
	accepted := e.Compatibility()
	for i, t := range d.Types() {
		if !containsType(accepted, t) {
			return errors.NewIncompatibleDataError(op, i, t.String(), typeNames(accepted))
		}
	}
	return nil
}

// CheckLabelsCompatible verifies that the label type of d matches the
// estimator type of e.
func CheckLabelsCompatible(op string, e Estimator, d *dataset.Labeled) error {
	want := dataset.Categorical
	if e.Type() == RegressorType {
		want = dataset.Continuous
	}
	if got := d.LabelType(); got != want {
		return errors.NewIncompatibleDataError(op, -1, got.String(), []string{want.String()})
	}
	return nil
}

// CheckFeatureCount verifies that d has as many columns as seen in training.
func CheckFeatureCount(op string, expected int, d dataset.Dataset) error {
	if got := d.NumFeatures(); got != expected {
		return errors.NewDimensionError(op, expected, got, 1)
	}
	return nil
}

// CheckTrainingSet runs the precondition checks shared by every Train method.
func CheckTrainingSet(op string, e Estimator, d *dataset.Labeled) error {
	if d == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if err := CheckNotEmpty(op, d); err != nil {
		return err
	}
	if err := CheckSamplesCompatible(op, e, d); err != nil {
		return err
	}
	return CheckLabelsCompatible(op, e, d)
}

// CheckInferenceSet runs the precondition checks shared by Predict and Proba.
func CheckInferenceSet(op string, e Estimator, expectedFeatures int, d dataset.Dataset) error {
	if err := CheckNotEmpty(op, d); err != nil {
		return err
	}
	if err := CheckFeatureCount(op, expectedFeatures, d); err != nil {
		return err
	}
	return CheckSamplesCompatible(op, e, d)
}

// Describe renders an estimator and its parameters for logs and the CLI.
func Describe(name string, e Estimator) string {
	return fmt.Sprintf("%s(%s) %v", name, e.Capabilities(), e.Params())
}

func containsType(types []dataset.DataType, t dataset.DataType) bool {
	for _, c := range types {
		if c == t {
			return true
		}
	}
	return false
}

func typeNames(types []dataset.DataType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
