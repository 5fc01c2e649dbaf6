package metrics

import (
	"math"
	"testing"
)

func TestRegressionErrors(t *testing.T) {
	type fn func(yTrue, yPred []float64) (float64, error)
	tests := []struct {
		name      string
		metric    fn
		yTrue     []float64
		yPred     []float64
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "MSE perfect prediction",
			metric:    MSE,
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			yPred:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			want:      0.0,
			tolerance: 1e-10,
		},
		{
			name:      "MSE larger errors",
			metric:    MSE,
			yTrue:     []float64{10.0, 20.0, 30.0},
			yPred:     []float64{12.0, 18.0, 33.0},
			want:      17.0 / 3.0, // (4 + 4 + 9) / 3
			tolerance: 1e-10,
		},
		{
			name:    "MSE dimension mismatch",
			metric:  MSE,
			yTrue:   []float64{1.0, 2.0, 3.0},
			yPred:   []float64{1.0, 2.0},
			wantErr: true,
		},
		{
			name:    "MSE empty",
			metric:  MSE,
			wantErr: true,
		},
		{
			name:      "RMSE simple case",
			metric:    RMSE,
			yTrue:     []float64{0.0, 0.0, 0.0, 0.0},
			yPred:     []float64{1.0, 1.0, 1.0, 1.0},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:      "MAE with negative differences",
			metric:    MAE,
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{2.0, 1.0, 4.0, 3.0},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:      "MedianAE odd length",
			metric:    MedianAE,
			yTrue:     []float64{1.0, 2.0, 3.0},
			yPred:     []float64{1.0, 4.0, 3.5},
			want:      0.5,
			tolerance: 1e-10,
		},
		{
			name:      "MedianAE even length",
			metric:    MedianAE,
			yTrue:     []float64{0, 0, 0, 0},
			yPred:     []float64{1, -3, 2, 10},
			want:      2.5,
			tolerance: 1e-10,
		},
		{
			name:      "SMAPE both zero",
			metric:    SMAPEScore,
			yTrue:     []float64{0, 1},
			yPred:     []float64{0, 3},
			want:      25.0, // (0 + 100*2/4) / 2
			tolerance: 1e-10,
		},
		{
			name:      "R2 perfect prediction",
			metric:    R2Score,
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			yPred:     []float64{1.0, 2.0, 3.0, 4.0, 5.0},
			want:      1.0,
			tolerance: 1e-10,
		},
		{
			name:    "R2 no variance in yTrue",
			metric:  R2Score,
			yTrue:   []float64{3.0, 3.0, 3.0},
			yPred:   []float64{2.0, 3.0, 4.0},
			wantErr: true,
		},
		{
			name:      "R2 worse than mean baseline",
			metric:    R2Score,
			yTrue:     []float64{1.0, 2.0, 3.0, 4.0},
			yPred:     []float64{4.0, 3.0, 2.0, 1.0},
			want:      -3.0,
			tolerance: 1e-10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.metric(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("got %v, want %v (tolerance: %v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestRegressionMetricsAreMaximized(t *testing.T) {
	targets := []float64{1, 2, 3, 4}
	good := []float64{1.1, 2.1, 2.9, 4.0}
	bad := []float64{4, 1, 1, 8}

	for _, m := range []RegressionMetric{
		MeanSquaredError{}, RootMeanSquaredError{}, MeanAbsoluteError{},
		MedianAbsoluteError{}, SMAPE{}, RSquared{},
	} {
		t.Run(m.String(), func(t *testing.T) {
			g, err := m.Score(good, targets)
			if err != nil {
				t.Fatal(err)
			}
			b, err := m.Score(bad, targets)
			if err != nil {
				t.Fatal(err)
			}
			if g <= b {
				t.Errorf("score of good predictions %v <= score of bad predictions %v", g, b)
			}
			lower, upper := m.Range()
			if g < lower || g > upper {
				t.Errorf("score %v outside range [%v, %v]", g, lower, upper)
			}
		})
	}
}

// Benchmark tests
func BenchmarkMSE(b *testing.B) {
	size := 10000
	yTrue := make([]float64, size)
	yPred := make([]float64, size)
	for i := 0; i < size; i++ {
		yTrue[i] = float64(i)
		yPred[i] = float64(i) + 0.1*float64(i%10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
