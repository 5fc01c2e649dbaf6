package layer

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Placeholder1D is the input layer for one dimensional samples.
type Placeholder1D struct {
	Inputs int
}

// NewPlaceholder1D creates an input layer of the given width.
func NewPlaceholder1D(inputs int) (*Placeholder1D, error) {
	if inputs < 1 {
		return nil, errors.NewValidationError("inputs", "must be greater than 0", inputs)
	}
	return &Placeholder1D{Inputs: inputs}, nil
}

func (l *Placeholder1D) Width() int { return l.Inputs }

func (l *Placeholder1D) Initialize(int, *rand.Rand) (int, error) { return l.Inputs, nil }

func (l *Placeholder1D) Forward(input *mat.Dense) *mat.Dense { return l.Infer(input) }

func (l *Placeholder1D) Infer(input *mat.Dense) *mat.Dense {
	if _, c := input.Dims(); c != l.Inputs {
		errors.Violation("layer.Placeholder1D", fmt.Sprintf("expected %d input columns, got %d", l.Inputs, c))
	}
	return input
}

func (l *Placeholder1D) String() string { return fmt.Sprintf("Placeholder1D(inputs=%d)", l.Inputs) }
