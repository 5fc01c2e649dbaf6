package dataset

import (
	"encoding/csv"
	"hash/fnv"
	"io"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// CSVOptions describes the layout of a CSV file.
type CSVOptions struct {
	// Header skips the first record.
	Header bool

	// LabelColumn is the index of the label column. Negative values count
	// from the end, so -1 is the last column.
	LabelColumn int

	// ContinuousLabels parses labels as float targets.
	ContinuousLabels bool

	Comma rune
}

// CategoryCode maps a categorical string value to its code. Codes come from a
// 32 bit FNV-1a hash so they are exactly representable as float64 and stable
// across files.
func CategoryCode(value string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return float64(h.Sum32())
}

func readRecords(r io.Reader, o CSVOptions) ([][]string, error) {
	cr := csv.NewReader(r)
	if o.Comma != 0 {
		cr.Comma = o.Comma
	}
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read csv")
	}
	if o.Header && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, errors.NewModelError("dataset.FromCSV", "empty data", errors.ErrEmptyData)
	}
	return records, nil
}

// parseFeatures converts string cells to floats. A column with any
// non-numeric cell becomes categorical and all its cells are encoded with
// CategoryCode.
func parseFeatures(cells [][]string) ([][]float64, []DataType) {
	width := len(cells[0])
	types := make([]DataType, width)
	for j := 0; j < width; j++ {
		for _, row := range cells {
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64); err != nil {
				types[j] = Categorical
				break
			}
		}
	}
	samples := make([][]float64, len(cells))
	for i, row := range cells {
		sample := make([]float64, width)
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if types[j] == Categorical {
				sample[j] = CategoryCode(cell)
				continue
			}
			sample[j], _ = strconv.ParseFloat(cell, 64)
		}
		samples[i] = sample
	}
	return samples, types
}

// FromCSV reads a labeled dataset.
func FromCSV(r io.Reader, o CSVOptions) (*Labeled, error) {
	records, err := readRecords(r, o)
	if err != nil {
		return nil, err
	}
	width := len(records[0])
	labelCol := o.LabelColumn
	if labelCol < 0 {
		labelCol += width
	}
	if labelCol < 0 || labelCol >= width {
		return nil, errors.NewValidationError("label_column", "out of range", o.LabelColumn)
	}

	cells := make([][]string, len(records))
	rawLabels := make([]string, len(records))
	for i, rec := range records {
		if len(rec) != width {
			return nil, errors.NewDimensionError("dataset.FromCSV", width, len(rec), 1)
		}
		rawLabels[i] = strings.TrimSpace(rec[labelCol])
		row := make([]string, 0, width-1)
		row = append(row, rec[:labelCol]...)
		cells[i] = append(row, rec[labelCol+1:]...)
	}

	samples, types := parseFeatures(cells)
	if !o.ContinuousLabels {
		return NewLabeled(samples, rawLabels, WithTypes(types...))
	}
	targets := make([]float64, len(rawLabels))
	for i, l := range rawLabels {
		if targets[i], err = strconv.ParseFloat(l, 64); err != nil {
			return nil, errors.Wrapf(err, "dataset: target on row %d", i)
		}
	}
	return NewContinuousLabeled(samples, targets, WithTypes(types...))
}

// FromCSVUnlabeled reads every column as a feature.
func FromCSVUnlabeled(r io.Reader, o CSVOptions) (*Unlabeled, error) {
	records, err := readRecords(r, o)
	if err != nil {
		return nil, err
	}
	samples, types := parseFeatures(records)
	return NewUnlabeled(samples, WithTypes(types...))
}

// ReadNPY decodes a 2-D float64 array stored in NumPy .npy format.
func ReadNPY(r io.Reader) (*mat.Dense, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "dataset: open npy")
	}
	var m mat.Dense
	if err := npy.Read(&m); err != nil {
		return nil, errors.Wrap(err, "dataset: read npy")
	}
	return &m, nil
}

// FromNPY builds a labeled dataset from a samples x features array and a
// label vector stored as a one column (or one row) array. Categorical labels
// are the decimal form of the stored numbers.
func FromNPY(features, labels io.Reader, continuous bool) (*Labeled, error) {
	x, err := ReadNPY(features)
	if err != nil {
		return nil, err
	}
	y, err := ReadNPY(labels)
	if err != nil {
		return nil, err
	}
	u, err := FromMatrix(x)
	if err != nil {
		return nil, err
	}
	r, c := y.Dims()
	values := mat.Col(nil, 0, y)
	if r == 1 && c > 1 {
		values = mat.Row(nil, 0, y)
	}
	if continuous {
		return NewContinuousLabeled(u.samples, values)
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return NewLabeled(u.samples, out)
}

// WriteNPY stores the samples as a 2-D float64 .npy array.
func WriteNPY(w io.Writer, d *Unlabeled) error {
	if d.Empty() {
		return errors.NewModelError("dataset.WriteNPY", "empty data", errors.ErrEmptyData)
	}
	return errors.Wrap(npyio.Write(w, d.Matrix()), "dataset: write npy")
}
