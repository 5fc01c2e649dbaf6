package initializer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func bounds(m *mat.Dense) (lower, upper float64) {
	data := m.RawMatrix().Data
	return floats.Min(data), floats.Max(data)
}

func TestUniformFamiliesStayInBounds(t *testing.T) {
	normal, err := NewNormal(0.05)
	require.NoError(t, err)
	uni, err := NewUniform(0.5)
	require.NoError(t, err)

	tests := []struct {
		init  Initializer
		limit float64
	}{
		{He{}, math.Pow(6.0/30, 1/math.Sqrt2)},
		{Xavier1{}, math.Sqrt(6.0 / 30)},
		{Xavier2{}, math.Pow(6.0/30, 0.25)},
		{LeCun{}, math.Sqrt(3.0 / 10)},
		{uni, 0.5},
		{normal, 0.05 * 6},
	}
	for _, tt := range tests {
		t.Run(tt.init.String(), func(t *testing.T) {
			w := tt.init.Initialize(10, 20, rand.New(rand.NewSource(3)))
			r, c := w.Dims()
			assert.Equal(t, 10, r)
			assert.Equal(t, 20, c)
			lower, upper := bounds(w)
			assert.GreaterOrEqual(t, lower, -tt.limit)
			assert.LessOrEqual(t, upper, tt.limit)
			assert.NotEqual(t, lower, upper)
		})
	}
}

func TestConstant(t *testing.T) {
	w := Constant{Value: 0.25}.Initialize(2, 3, nil)
	lower, upper := bounds(w)
	assert.Equal(t, 0.25, lower)
	assert.Equal(t, 0.25, upper)
}

func TestDeterministicForSeed(t *testing.T) {
	a := He{}.Initialize(4, 4, rand.New(rand.NewSource(9)))
	b := He{}.Initialize(4, 4, rand.New(rand.NewSource(9)))
	assert.True(t, mat.Equal(a, b))
}

func TestValidation(t *testing.T) {
	_, err := NewNormal(0)
	assert.Error(t, err)
	_, err = NewUniform(-1)
	assert.Error(t, err)
}
