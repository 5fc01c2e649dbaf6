package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxReportedValues は NumericalInstabilityError に記録する値の上限です。
const maxReportedValues = 10

func unstable(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// CheckScalar は損失などのスカラー値が NaN または Inf でないか検査します。
func CheckScalar(operation string, value float64, iteration int) error {
	if unstable(value) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// CheckMatrix は行列に NaN または Inf が含まれていないか検査します。
// 見つかった値は最大 10 個までエラーに記録されます。
func CheckMatrix(operation string, m mat.Matrix, iteration int) error {
	r, c := m.Dims()
	var values []float64
	for i := 0; i < r && len(values) < maxReportedValues; i++ {
		for j := 0; j < c && len(values) < maxReportedValues; j++ {
			if v := m.At(i, j); unstable(v) {
				values = append(values, v)
			}
		}
	}
	if len(values) > 0 {
		return NewNumericalInstabilityError(operation, values, iteration)
	}
	return nil
}
