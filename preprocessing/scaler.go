// Package preprocessing はデータセットの特徴量を変換する前処理器を提供します。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/core/parallel"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// parallelThreshold はこれより多い行数の変換を並列に行う
const parallelThreshold = 2048

// Transformer はデータセットの統計量を学習し、サンプルを変換する
type Transformer interface {
	Fit(d dataset.Dataset) error
	Transform(d dataset.Dataset) ([][]float64, error)
	Fitted() bool
	String() string
}

// Apply は学習済みの Transformer でラベル付きデータセットを変換する。
// 列の型とラベルはそのまま引き継ぐ
func Apply(t Transformer, d *dataset.Labeled) (*dataset.Labeled, error) {
	samples, err := t.Transform(d)
	if err != nil {
		return nil, err
	}
	if d.LabelType() == dataset.Continuous {
		return dataset.NewContinuousLabeled(samples, d.Targets(), dataset.WithTypes(d.Types()...))
	}
	return dataset.NewLabeled(samples, d.Labels(), dataset.WithTypes(d.Types()...))
}

// ApplyUnlabeled は Apply のラベルなし版
func ApplyUnlabeled(t Transformer, d dataset.Dataset) (*dataset.Unlabeled, error) {
	samples, err := t.Transform(d)
	if err != nil {
		return nil, err
	}
	return dataset.NewUnlabeled(samples, dataset.WithTypes(d.Types()...))
}

// StandardScaler は連続値の列を平均0、標準偏差1に変換する
// カテゴリ列は変換しない
type StandardScaler struct {
	// Means は各列の平均値
	Means []float64

	// StdDevs は各列の標準偏差。分散が0の列は1
	StdDevs []float64

	// Center は平均を引くかどうか (デフォルト: true)
	Center bool

	state *model.StateManager
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true)
//	err := scaler.Fit(train)
//	scaled, err := preprocessing.Apply(scaler, train)
func NewStandardScaler(center bool) *StandardScaler {
	return &StandardScaler{Center: center, state: model.NewStateManager()}
}

// Fit は各連続値列の平均と標準偏差を計算する
func (s *StandardScaler) Fit(d dataset.Dataset) error {
	if err := model.CheckNotEmpty("StandardScaler.Fit", d); err != nil {
		return err
	}
	c := d.NumFeatures()
	s.Means = make([]float64, c)
	s.StdDevs = make([]float64, c)
	for j := 0; j < c; j++ {
		s.StdDevs[j] = 1
		if d.ColumnType(j) != dataset.Continuous {
			continue
		}
		mean, std := stat.PopMeanStdDev(d.Column(j), nil)
		if s.Center {
			s.Means[j] = mean
		}
		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if std >= 1e-8 {
			s.StdDevs[j] = std
		}
	}
	s.ensureState().SetFitted(c, d.NumSamples())
	return nil
}

// Transform は学習済みの統計情報を使ってサンプルを標準化したコピーを返す
func (s *StandardScaler) Transform(d dataset.Dataset) ([][]float64, error) {
	if err := s.check("Transform", d); err != nil {
		return nil, err
	}
	return mapRows(d, func(row, out []float64) {
		for j, v := range row {
			out[j] = (v - s.Means[j]) / s.StdDevs[j]
		}
	}), nil
}

// InverseTransform は標準化されたサンプルを元のスケールに戻す
func (s *StandardScaler) InverseTransform(d dataset.Dataset) ([][]float64, error) {
	if err := s.check("InverseTransform", d); err != nil {
		return nil, err
	}
	return mapRows(d, func(row, out []float64) {
		for j, v := range row {
			out[j] = v*s.StdDevs[j] + s.Means[j]
		}
	}), nil
}

func (s *StandardScaler) Fitted() bool { return s.ensureState().IsFitted() }

func (s *StandardScaler) check(op string, d dataset.Dataset) error {
	state := s.ensureState()
	if err := state.RequireFitted("StandardScaler", op); err != nil {
		return err
	}
	nFeatures, _ := state.GetDimensions()
	return model.CheckFeatureCount("StandardScaler."+op, nFeatures, d)
}

// ensureState はゼロ値のスケーラーにも StateManager を持たせる
func (s *StandardScaler) ensureState() *model.StateManager {
	if s.state == nil {
		s.state = model.NewStateManager()
	}
	return s.state
}

type standardState struct {
	Means   []float64
	StdDevs []float64
	Center  bool
	State   model.TrainedState
}

// MarshalBinary は学習済みの統計量と学習状態を gob でエンコードする
func (s *StandardScaler) MarshalBinary() ([]byte, error) {
	return model.EncodeGob(standardState{
		Means:   s.Means,
		StdDevs: s.StdDevs,
		Center:  s.Center,
		State:   s.ensureState().Snapshot(),
	})
}

// UnmarshalBinary は MarshalBinary の出力を復元する。NewStandardScaler で
// 作成したスケーラーにもゼロ値にも使える
func (s *StandardScaler) UnmarshalBinary(blob []byte) error {
	var p standardState
	if err := model.DecodeGob(blob, &p); err != nil {
		return errors.Wrap(err, "StandardScaler.UnmarshalBinary")
	}
	s.Means, s.StdDevs, s.Center = p.Means, p.StdDevs, p.Center
	s.ensureState().Restore(p.State)
	return nil
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(center=%t)", s.Center)
}

// MinMaxScaler は連続値の列を [Min, Max] の範囲に線形変換する
type MinMaxScaler struct {
	// Min, Max は変換後の範囲
	Min, Max float64

	// DataMin, Scales は学習データの最小値と値域 (max - min)
	DataMin []float64
	Scales  []float64

	state *model.StateManager
}

// NewMinMaxScaler は変換後の範囲を指定して MinMaxScaler を作成する
func NewMinMaxScaler(lo, hi float64) (*MinMaxScaler, error) {
	if !(lo < hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, errors.NewValidationError("feature_range", "min must be less than max", [2]float64{lo, hi})
	}
	return &MinMaxScaler{Min: lo, Max: hi, state: model.NewStateManager()}, nil
}

// Fit は各連続値列の最小値と最大値を計算する
func (m *MinMaxScaler) Fit(d dataset.Dataset) error {
	if err := model.CheckNotEmpty("MinMaxScaler.Fit", d); err != nil {
		return err
	}
	c := d.NumFeatures()
	m.DataMin = make([]float64, c)
	m.Scales = make([]float64, c)
	for j := 0; j < c; j++ {
		m.Scales[j] = 1
		if d.ColumnType(j) != dataset.Continuous {
			m.Scales[j] = 0
			continue
		}
		col := d.Column(j)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		m.DataMin[j] = lo
		// 定数特徴量の場合、値域を1に設定
		if hi-lo >= 1e-8 {
			m.Scales[j] = hi - lo
		}
	}
	m.ensureState().SetFitted(c, d.NumSamples())
	return nil
}

// Transform はサンプルを [Min, Max] に変換したコピーを返す。カテゴリ列はそのまま
func (m *MinMaxScaler) Transform(d dataset.Dataset) ([][]float64, error) {
	state := m.ensureState()
	if err := state.RequireFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}
	nFeatures, _ := state.GetDimensions()
	if err := model.CheckFeatureCount("MinMaxScaler.Transform", nFeatures, d); err != nil {
		return nil, err
	}
	width := m.Max - m.Min
	return mapRows(d, func(row, out []float64) {
		for j, v := range row {
			if m.Scales[j] == 0 {
				out[j] = v
				continue
			}
			out[j] = (v-m.DataMin[j])/m.Scales[j]*width + m.Min
		}
	}), nil
}

func (m *MinMaxScaler) Fitted() bool { return m.ensureState().IsFitted() }

func (m *MinMaxScaler) ensureState() *model.StateManager {
	if m.state == nil {
		m.state = model.NewStateManager()
	}
	return m.state
}

type minMaxState struct {
	Min, Max float64
	DataMin  []float64
	Scales   []float64
	State    model.TrainedState
}

func (m *MinMaxScaler) MarshalBinary() ([]byte, error) {
	return model.EncodeGob(minMaxState{
		Min:     m.Min,
		Max:     m.Max,
		DataMin: m.DataMin,
		Scales:  m.Scales,
		State:   m.ensureState().Snapshot(),
	})
}

func (m *MinMaxScaler) UnmarshalBinary(blob []byte) error {
	var p minMaxState
	if err := model.DecodeGob(blob, &p); err != nil {
		return errors.Wrap(err, "MinMaxScaler.UnmarshalBinary")
	}
	m.Min, m.Max, m.DataMin, m.Scales = p.Min, p.Max, p.DataMin, p.Scales
	m.ensureState().Restore(p.State)
	return nil
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.Min, m.Max)
}

// mapRows は各行に fn を適用した新しいサンプルを返す。行数が多い場合は並列に処理する
func mapRows(d dataset.Dataset, fn func(row, out []float64)) [][]float64 {
	samples := d.Samples()
	out := make([][]float64, len(samples))
	parallel.ParallelizeWithThreshold(len(samples), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = make([]float64, len(samples[i]))
			fn(samples[i], out[i])
		}
	})
	return out
}
