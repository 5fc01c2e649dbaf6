package metrics

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

func TestClassificationMetrics(t *testing.T) {
	f1, err := NewFBeta(1)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name        string
		metric      ClassificationMetric
		predictions []string
		labels      []string
		want        float64
		wantErr     bool
	}{
		{
			name:        "accuracy",
			metric:      Accuracy{},
			predictions: []string{"a", "b", "a"},
			labels:      []string{"a", "a", "a"},
			want:        2.0 / 3.0,
		},
		{
			name:        "MCC perfect",
			metric:      MCC{},
			predictions: []string{"a", "a", "b", "b"},
			labels:      []string{"a", "a", "b", "b"},
			want:        1,
		},
		{
			name:        "MCC inverted",
			metric:      MCC{},
			predictions: []string{"b", "a"},
			labels:      []string{"a", "b"},
			want:        -1,
		},
		{
			name:        "F1 perfect",
			metric:      f1,
			predictions: []string{"x", "y", "z"},
			labels:      []string{"x", "y", "z"},
			want:        1,
		},
		{
			name:        "F1 macro average",
			metric:      f1,
			predictions: []string{"a", "a", "b", "b"},
			labels:      []string{"a", "b", "b", "b"},
			want:        (2.0/3.0 + 0.8) / 2, // a: p=1/2 r=1, b: p=1 r=2/3
		},
		{
			name:        "length mismatch",
			metric:      Accuracy{},
			predictions: []string{"a"},
			labels:      []string{"a", "b"},
			wantErr:     true,
		},
		{
			name:    "empty",
			metric:  MCC{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.metric.Score(tt.predictions, tt.labels)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Score() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFBetaValidation(t *testing.T) {
	if _, err := NewFBeta(0); err == nil {
		t.Error("expected an error for beta 0")
	}
}

func TestUndefinedMetricWarning(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })

	// "b" is never predicted, so its precision and MCC are ill-defined
	predictions := []string{"a", "a", "a"}
	labels := []string{"a", "a", "b"}

	if _, err := (MCC{}).Score(predictions, labels); err != nil {
		t.Fatal(err)
	}
	f1, _ := NewFBeta(1)
	if _, err := f1.Score(predictions, labels); err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	for _, w := range warnings {
		var undefined *errors.UndefinedMetricWarning
		if !errors.As(w, &undefined) {
			t.Errorf("unexpected warning %T", w)
		}
	}
}
