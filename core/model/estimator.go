// Package model は推定器の共通インターフェース、学習状態の管理、永続化を提供します。
package model

import (
	"strings"

	"github.com/YuminosukeSato/sciforest/core/dataset"
)

// EstimatorType は推定器の種類を表す
type EstimatorType int

const (
	// ClassifierType はカテゴリラベルを予測する推定器
	ClassifierType EstimatorType = iota
	// RegressorType は連続値を予測する推定器
	RegressorType
)

func (t EstimatorType) String() string {
	if t == RegressorType {
		return "regressor"
	}
	return "classifier"
}

// Capability は推定器が持つ能力のビットフラグ
//
// 合成する側 (RandomForest やバリデータ) は構築時に Has で能力を確認し、
// 実行時の型アサーションに頼らない。
type Capability uint8

const (
	// Trainable はラベル付きデータセットで学習できる
	Trainable Capability = 1 << iota
	// Online はミニバッチで逐次学習 (Partial) できる
	Online
	// Probabilistic はクラス確率 (Proba) を返せる
	Probabilistic
	// Ranking は特徴量の重要度を返せる
	Ranking
)

func (c Capability) String() string {
	var names []string
	for _, f := range []struct {
		flag Capability
		name string
	}{
		{Trainable, "trainable"},
		{Online, "online"},
		{Probabilistic, "probabilistic"},
		{Ranking, "ranking"},
	} {
		if c&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Estimator は全ての推定器の基本インターフェース
type Estimator interface {
	// Type は分類器か回帰器かを返す
	Type() EstimatorType

	// Capabilities は推定器の能力フラグを返す
	Capabilities() Capability

	// Compatibility は扱える特徴量の型を返す
	Compatibility() []dataset.DataType

	// Params はハイパーパラメータを返す
	Params() map[string]any

	// Trained は学習済みかどうかを返す
	Trained() bool
}

// Learner は学習可能な推定器
type Learner interface {
	Estimator

	// Train はラベル付きデータセットでモデルを学習させる
	Train(d *dataset.Labeled) error

	// Fresh は同じハイパーパラメータを持つ未学習のコピーを返す
	Fresh() Learner
}

// Classifier はカテゴリラベルを予測する学習器
type Classifier interface {
	Learner
	Predict(d dataset.Dataset) ([]string, error)
}

// Regressor は連続値を予測する学習器
type Regressor interface {
	Learner
	Predict(d dataset.Dataset) ([]float64, error)
}

// ProbabilisticClassifier はクラス確率を返す分類器
type ProbabilisticClassifier interface {
	Classifier

	// Proba はサンプルごとのクラス確率を返す。各サンプルの確率の和は 1
	Proba(d dataset.Dataset) ([]map[string]float64, error)
}

// OnlineLearner は逐次学習できる学習器
type OnlineLearner interface {
	Learner

	// Partial は既存の学習状態を保ったまま追加で学習する
	Partial(d *dataset.Labeled) error
}

// RanksFeatures は特徴量の重要度を返す推定器
type RanksFeatures interface {
	// FeatureImportances は正規化された重要度を列の順で返す
	FeatureImportances() ([]float64, error)
}

// Seeded は乱数シードを後から設定できる推定器
type Seeded interface {
	Seed(seed int64)
}

// LossHistory は学習中の損失の履歴を持つ推定器
type LossHistory interface {
	Steps() []float64
}

// Has は e が全ての能力 c を持つかどうかを返す
func Has(e Estimator, c Capability) bool {
	return e.Capabilities()&c == c
}
