// Package dataset provides the tabular datasets consumed by every estimator.
//
// Samples are stored row major as [][]float64. Columns are either continuous
// or categorical; categorical columns hold category codes which are only ever
// compared for equality. A Labeled dataset additionally carries either
// categorical labels ([]string) or continuous targets ([]float64).
//
// Datasets are treated as immutable by estimators: every operation that
// reorders, splits or samples returns a new dataset sharing the underlying
// rows.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// DataType is the type of a column or of a label vector.
type DataType int

const (
	Continuous DataType = iota
	Categorical
)

func (t DataType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Dataset is the read-only view shared by labeled and unlabeled datasets.
type Dataset interface {
	NumSamples() int
	NumFeatures() int
	Samples() [][]float64
	Sample(i int) []float64
	Column(i int) []float64
	ColumnType(i int) DataType
	Types() []DataType
	Empty() bool
}

// Option configures a dataset at construction.
type Option func(*Unlabeled) error

// WithTypes sets the type of each column. The number of types must match the
// number of columns.
func WithTypes(types ...DataType) Option {
	return func(d *Unlabeled) error {
		if len(d.samples) > 0 && len(types) != d.numFeatures {
			return errors.NewDimensionError("dataset.WithTypes", d.numFeatures, len(types), 1)
		}
		d.types = append([]DataType(nil), types...)
		return nil
	}
}

// WithCategorical marks the given column indices as categorical.
func WithCategorical(columns ...int) Option {
	return func(d *Unlabeled) error {
		for _, c := range columns {
			if c < 0 || c >= d.numFeatures {
				return errors.NewValidationError("columns", "categorical column out of range", c)
			}
			d.types[c] = Categorical
		}
		return nil
	}
}

// Unlabeled is a dataset without labels.
type Unlabeled struct {
	samples     [][]float64
	types       []DataType
	numFeatures int
}

// NewUnlabeled validates that every row has the same width. Columns default to
// continuous.
func NewUnlabeled(samples [][]float64, opts ...Option) (*Unlabeled, error) {
	d := &Unlabeled{samples: samples}
	if len(samples) > 0 {
		d.numFeatures = len(samples[0])
		for i, row := range samples {
			if len(row) != d.numFeatures {
				return nil, errors.Wrapf(
					errors.NewDimensionError("dataset.NewUnlabeled", d.numFeatures, len(row), 1),
					"row %d", i)
			}
		}
	}
	d.types = make([]DataType, d.numFeatures)
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// FromMatrix copies a gonum matrix into an Unlabeled dataset.
func FromMatrix(m mat.Matrix, opts ...Option) (*Unlabeled, error) {
	r, c := m.Dims()
	samples := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		samples[i] = row
	}
	return NewUnlabeled(samples, opts...)
}

func (d *Unlabeled) NumSamples() int  { return len(d.samples) }
func (d *Unlabeled) NumFeatures() int { return d.numFeatures }
func (d *Unlabeled) Empty() bool      { return len(d.samples) == 0 }

// Samples returns the rows. Callers must not modify them.
func (d *Unlabeled) Samples() [][]float64 { return d.samples }

func (d *Unlabeled) Sample(i int) []float64 { return d.samples[i] }

// Column returns a copy of column i.
func (d *Unlabeled) Column(i int) []float64 {
	col := make([]float64, len(d.samples))
	for r, row := range d.samples {
		col[r] = row[i]
	}
	return col
}

func (d *Unlabeled) ColumnType(i int) DataType { return d.types[i] }

// Types returns the column types. Callers must not modify the slice.
func (d *Unlabeled) Types() []DataType { return d.types }

// Matrix copies the samples into a dense samples x features matrix.
func (d *Unlabeled) Matrix() *mat.Dense {
	if d.Empty() || d.numFeatures == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(d.samples), d.numFeatures, nil)
	for i, row := range d.samples {
		m.SetRow(i, row)
	}
	return m
}

// withRows returns a dataset with the same schema and the given rows.
func (d *Unlabeled) withRows(rows [][]float64) *Unlabeled {
	return &Unlabeled{samples: rows, types: d.types, numFeatures: d.numFeatures}
}

// Head returns the first n samples.
func (d *Unlabeled) Head(n int) *Unlabeled {
	if n > len(d.samples) {
		n = len(d.samples)
	}
	return d.withRows(d.samples[:n])
}

// Unique returns the distinct values of column i in first-seen order.
func Unique(d Dataset, i int) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, row := range d.Samples() {
		v := row[i]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// HasCategorical reports whether any column is categorical.
func HasCategorical(d Dataset) bool {
	for _, t := range d.Types() {
		if t == Categorical {
			return true
		}
	}
	return false
}
