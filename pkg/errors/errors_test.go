package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Train",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "sciforest: Train: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not trained",
			err:      nil,
			wantMsg:  "sciforest: Predict: not trained",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 4, 3, 1)

	want := "sciforest: Predict: dimension mismatch on axis 1 (features). Expected 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 4 || dimErr.Got != 3 {
		t.Errorf("unexpected fields: %+v", dimErr)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForest", "Predict")

	want := "sciforest: RandomForest: this model is not trained yet. Call Train() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		reason  string
		value   interface{}
		wantMsg string
	}{
		{
			name:    "estimators",
			param:   "estimators",
			reason:  "must be greater than 0",
			value:   0,
			wantMsg: "sciforest: validation failed for parameter 'estimators': must be greater than 0 (got: 0)",
		},
		{
			name:    "ratio",
			param:   "ratio",
			reason:  "must be in (0, 1.5]",
			value:   2.0,
			wantMsg: "sciforest: validation failed for parameter 'ratio': must be in (0, 1.5] (got: 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.param, tt.reason, tt.value)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			var valErr *ValidationError
			if !As(err, &valErr) {
				t.Error("Error should be castable to *ValidationError")
			}
		})
	}
}

func TestNewIncompatibleDataError(t *testing.T) {
	tests := []struct {
		name    string
		column  int
		wantMsg string
	}{
		{"feature column", 2, "sciforest: Adaline.Train: column 2 is categorical, expected one of [continuous]"},
		{"labels", -1, "sciforest: Adaline.Train: categorical labels are not compatible, expected one of [continuous]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewIncompatibleDataError("Adaline.Train", tt.column, "categorical", []string{"continuous"})
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestTaskErrorUnwrapsCause(t *testing.T) {
	cause := NewNotFittedError("ExtraTreeClassifier", "Predict")
	err := NewTaskError(3, "Predict", cause)

	var taskErr *TaskError
	if !As(err, &taskErr) {
		t.Fatal("Error should be castable to *TaskError")
	}
	if taskErr.Index != 3 {
		t.Errorf("Index = %d, want 3", taskErr.Index)
	}

	var notFitted *NotFittedError
	if !As(err, &notFitted) {
		t.Error("cause should stay reachable through TaskError")
	}
}

func TestViolationPanics(t *testing.T) {
	defer func() {
		r := recover()
		cv, ok := r.(*ContractViolation)
		if !ok {
			t.Fatalf("recovered %T, want *ContractViolation", r)
		}
		if !strings.Contains(cv.Error(), "Dense") {
			t.Errorf("unexpected message %q", cv.Error())
		}
	}()
	Violation("Dense", "forward pass must precede back")
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("Adaline", 1000, "loss did not settle")

	want := "Adaline failed to converge after 1000 iterations: loss did not settle"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}

	var convWarn *ConvergenceWarning
	if !As(warn, &convWarn) {
		t.Error("Warning should be castable to *ConvergenceWarning")
	}
}

func TestWarnUsesZerologFunc(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	SetZerologWarnFunc(func(w error) {
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			logger.Warn().Object("warning", m).Msg(w.Error())
		}
	})
	defer SetZerologWarnFunc(nil)

	Warn(NewUndefinedMetricWarning("MCC", "zero denominator", 0))

	if !strings.Contains(buf.String(), "UndefinedMetricWarning") {
		t.Errorf("expected structured warning in %q", buf.String())
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in RandomForest.Train")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in RandomForest.Train") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}

func TestNumericalChecks(t *testing.T) {
	if err := CheckScalar("loss", 0.5, 1); err != nil {
		t.Fatalf("finite loss reported unstable: %v", err)
	}
	var numErr *NumericalInstabilityError
	if err := CheckScalar("loss", math.NaN(), 3); !As(err, &numErr) {
		t.Fatalf("NaN loss not reported: %v", err)
	}

	m := mat.NewDense(2, 2, []float64{1, math.Inf(1), 2, 3})
	err := CheckMatrix("forward", m, 0)
	if !As(err, &numErr) {
		t.Fatalf("Inf element not reported: %v", err)
	}
	if len(numErr.Values) != 1 {
		t.Errorf("Values = %v, want one entry", numErr.Values)
	}
	if err := CheckMatrix("forward", mat.NewDense(1, 1, []float64{4}), 0); err != nil {
		t.Errorf("finite matrix reported unstable: %v", err)
	}
}
