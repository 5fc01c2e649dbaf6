package metrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

const epsilon = 1e-8

// Accuracy は正解率
type Accuracy struct{}

func (Accuracy) Score(predictions, labels []string) (float64, error) {
	if err := checkLengths("Accuracy", len(predictions), len(labels)); err != nil {
		return 0, err
	}
	correct := 0
	for i, p := range predictions {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(predictions)), nil
}

func (Accuracy) Range() (float64, float64) { return 0, 1 }
func (Accuracy) String() string            { return "Accuracy" }

// confusion は一対他の混同行列の要素をクラスごとに数えたもの
type confusion struct {
	classes        []string
	tp, tn, fp, fn map[string]int
}

func countConfusion(predictions, labels []string) confusion {
	c := confusion{tp: map[string]int{}, tn: map[string]int{}, fp: map[string]int{}, fn: map[string]int{}}
	seen := make(map[string]struct{})
	for _, group := range [][]string{predictions, labels} {
		for _, class := range group {
			if _, ok := seen[class]; !ok {
				seen[class] = struct{}{}
				c.classes = append(c.classes, class)
			}
		}
	}
	for i, p := range predictions {
		label := labels[i]
		if p == label {
			c.tp[p]++
			for _, class := range c.classes {
				if class != p {
					c.tn[class]++
				}
			}
			continue
		}
		c.fp[p]++
		c.fn[label]++
	}
	return c
}

// MCC はクラスごとの Matthews 相関係数のマクロ平均
type MCC struct{}

func (MCC) Score(predictions, labels []string) (float64, error) {
	if err := checkLengths("MCC", len(predictions), len(labels)); err != nil {
		return 0, err
	}
	c := countConfusion(predictions, labels)
	total := 0.0
	var undefined []string
	for _, class := range c.classes {
		tp, tn := float64(c.tp[class]), float64(c.tn[class])
		fp, fn := float64(c.fp[class]), float64(c.fn[class])
		denominator := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
		if denominator == 0 {
			denominator = epsilon
			undefined = append(undefined, class)
		}
		total += (tp*tn - fp*fn) / denominator
	}
	if len(undefined) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("MCC", "a zero denominator for classes "+strings.Join(undefined, ", "), 0))
	}
	return total / float64(len(c.classes)), nil
}

func (MCC) Range() (float64, float64) { return -1, 1 }
func (MCC) String() string            { return "MCC" }

// FBeta は適合率と再現率の重み付き調和平均をクラスごとに求め、マクロ平均したもの。
// Beta > 1 は再現率を、Beta < 1 は適合率を重視する。
type FBeta struct {
	Beta float64
}

// NewFBeta は FBeta を作成します。beta は正の値で、既定値は 1 (F1) です。
func NewFBeta(beta float64) (*FBeta, error) {
	if beta <= 0 {
		return nil, errors.NewValidationError("beta", "must be greater than 0", beta)
	}
	return &FBeta{Beta: beta}, nil
}

func (f *FBeta) Score(predictions, labels []string) (float64, error) {
	if err := checkLengths("FBeta", len(predictions), len(labels)); err != nil {
		return 0, err
	}
	c := countConfusion(predictions, labels)
	beta2 := f.Beta * f.Beta
	total := 0.0
	for _, class := range c.classes {
		tp := float64(c.tp[class])
		if tp+float64(c.fp[class]) == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning(f.String(), "no predicted samples for class "+class, 0))
		}
		precision := tp / math.Max(tp+float64(c.fp[class]), epsilon)
		recall := tp / math.Max(tp+float64(c.fn[class]), epsilon)
		total += (1 + beta2) * precision * recall / math.Max(beta2*precision+recall, epsilon)
	}
	return total / float64(len(c.classes)), nil
}

func (f *FBeta) Range() (float64, float64) { return 0, 1 }
func (f *FBeta) String() string            { return fmt.Sprintf("FBeta(beta=%g)", f.Beta) }
