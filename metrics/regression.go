package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths("MSE", len(yPred), len(yTrue)); err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i, y := range yTrue {
		diff := y - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths("MAE", len(yPred), len(yTrue)); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// MedianAE は絶対誤差の中央値を計算する
func MedianAE(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths("MedianAE", len(yPred), len(yTrue)); err != nil {
		return 0, err
	}
	errs := make([]float64, len(yTrue))
	for i, y := range yTrue {
		errs[i] = math.Abs(y - yPred[i])
	}
	floats.Argsort(errs, make([]int, len(errs)))
	n := len(errs)
	if n%2 == 1 {
		return errs[n/2], nil
	}
	return (errs[n/2-1] + errs[n/2]) / 2, nil
}

// SMAPEScore は対称平均絶対パーセント誤差 (0 から 100) を計算する
func SMAPEScore(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths("SMAPE", len(yPred), len(yTrue)); err != nil {
		return 0, err
	}
	var sum float64
	for i, y := range yTrue {
		denominator := math.Abs(y) + math.Abs(yPred[i])
		if denominator == 0 {
			denominator = epsilon
		}
		sum += 100 * math.Abs(yPred[i]-y) / denominator
	}
	return sum / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths("R2Score", len(yPred), len(yTrue)); err != nil {
		return 0, err
	}

	yMean := stat.Mean(yTrue, nil)

	// 全変動（TSS）と残差変動（RSS）を計算
	var tss, rss float64
	for i, y := range yTrue {
		tss += (y - yMean) * (y - yMean)
		rss += (y - yPred[i]) * (y - yPred[i])
	}

	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// 以下は検証で最大化できるよう誤差の符号を反転した RegressionMetric

// MeanSquaredError は -MSE
type MeanSquaredError struct{}

func (MeanSquaredError) Score(predictions, targets []float64) (float64, error) {
	return negate(MSE(targets, predictions))
}

func (MeanSquaredError) Range() (float64, float64) { return math.Inf(-1), 0 }
func (MeanSquaredError) String() string            { return "MeanSquaredError" }

// RootMeanSquaredError は -RMSE
type RootMeanSquaredError struct{}

func (RootMeanSquaredError) Score(predictions, targets []float64) (float64, error) {
	return negate(RMSE(targets, predictions))
}

func (RootMeanSquaredError) Range() (float64, float64) { return math.Inf(-1), 0 }
func (RootMeanSquaredError) String() string            { return "RootMeanSquaredError" }

// MeanAbsoluteError は -MAE
type MeanAbsoluteError struct{}

func (MeanAbsoluteError) Score(predictions, targets []float64) (float64, error) {
	return negate(MAE(targets, predictions))
}

func (MeanAbsoluteError) Range() (float64, float64) { return math.Inf(-1), 0 }
func (MeanAbsoluteError) String() string            { return "MeanAbsoluteError" }

// MedianAbsoluteError は -MedianAE
type MedianAbsoluteError struct{}

func (MedianAbsoluteError) Score(predictions, targets []float64) (float64, error) {
	return negate(MedianAE(targets, predictions))
}

func (MedianAbsoluteError) Range() (float64, float64) { return math.Inf(-1), 0 }
func (MedianAbsoluteError) String() string            { return "MedianAbsoluteError" }

// SMAPE は -SMAPEScore
type SMAPE struct{}

func (SMAPE) Score(predictions, targets []float64) (float64, error) {
	return negate(SMAPEScore(targets, predictions))
}

func (SMAPE) Range() (float64, float64) { return -100, 0 }
func (SMAPE) String() string            { return "SMAPE" }

// RSquared は R2Score
type RSquared struct{}

func (RSquared) Score(predictions, targets []float64) (float64, error) {
	return R2Score(targets, predictions)
}

func (RSquared) Range() (float64, float64) { return math.Inf(-1), 1 }
func (RSquared) String() string            { return "RSquared" }

func negate(v float64, err error) (float64, error) {
	if err != nil {
		return 0, err
	}
	return -v, nil
}
