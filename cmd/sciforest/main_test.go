package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/pkg/config"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/ensemble"
	"github.com/YuminosukeSato/sciforest/sklearn/neural_network"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// writeBlobs writes n labeled samples around (0, 0) and (8, 8) and the same
// samples without labels.
func writeBlobs(t *testing.T, dir string, n int) (labeled, unlabeled string) {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	var l, u strings.Builder
	l.WriteString("x1,x2,label\n")
	u.WriteString("x1,x2\n")
	for i := 0; i < n; i++ {
		center, label := 0.0, "low"
		if i%2 == 1 {
			center, label = 8, "high"
		}
		x1, x2 := center+rng.NormFloat64(), center+rng.NormFloat64()
		fmt.Fprintf(&l, "%g,%g,%s\n", x1, x2, label)
		fmt.Fprintf(&u, "%g,%g\n", x1, x2)
	}
	labeled = filepath.Join(dir, "train.csv")
	unlabeled = filepath.Join(dir, "new.csv")
	require.NoError(t, os.WriteFile(labeled, []byte(l.String()), 0o644))
	require.NoError(t, os.WriteFile(unlabeled, []byte(u.String()), 0o644))
	return labeled, unlabeled
}

func writeYAML(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "sciforest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	a.close()
	return out.String(), err
}

func TestTrainPredictExportTree(t *testing.T) {
	dir := t.TempDir()
	train, samples := writeBlobs(t, dir, 40)
	cfg := writeYAML(t, dir, fmt.Sprintf(`
data:
  path: %s
model:
  kind: classification_tree
preprocess:
  standardize: true
persist:
  path: %s
`, train, filepath.Join(dir, "tree.gob")))

	out, err := execute(t, "train", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "trained classification_tree on 40 samples")
	assert.Contains(t, out, "feature 1")

	out, err = execute(t, "predict", "--config", cfg, "--data", samples)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 40)
	for i, l := range lines {
		want := "low"
		if i%2 == 1 {
			want = "high"
		}
		assert.Equal(t, want, l, "sample %d", i)
	}

	out, err = execute(t, "predict", "--config", cfg, "--data", samples, "--proba")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "high,low", lines[0])
	assert.Len(t, lines, 41)

	out, err = execute(t, "export-tree", "--config", cfg, "--features", "x1,x2", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	_, err = execute(t, "plot-loss", "--config", cfg, filepath.Join(dir, "loss.png"))
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation), "trees have no loss history: %v", err)
}

func TestTrainForestWithBadger(t *testing.T) {
	dir := t.TempDir()
	train, samples := writeBlobs(t, dir, 30)
	cfg := writeYAML(t, dir, fmt.Sprintf(`
data:
  path: %s
model:
  kind: random_forest
  base: extra_tree
  estimators: 5
  ratio: 0.5
backend:
  workers: 2
persist:
  kind: badger
  path: %s
  key: forest
`, train, filepath.Join(dir, "db")))

	_, err := execute(t, "train", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "predict", "--config", cfg, "--data", samples)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 30)

	_, err = execute(t, "export-tree", "--config", cfg, "--tree", "4", "-")
	assert.NoError(t, err)
	_, err = execute(t, "export-tree", "--config", cfg, "--tree", "5", "-")
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestTrainNetworkAndPlotLoss(t *testing.T) {
	dir := t.TempDir()
	train, _ := writeBlobs(t, dir, 40)
	cfg := writeYAML(t, dir, fmt.Sprintf(`
data:
  path: %s
model:
  kind: mlp
  hidden: [4]
  batch_size: 8
  learning_rate: 0.01
  epochs: 10
persist:
  path: %s
`, train, filepath.Join(dir, "mlp.gob")))

	_, err := execute(t, "train", "--config", cfg, "--log-format", "console")
	require.NoError(t, err)
	_, err = execute(t, "train", "--config", cfg, "--partial", "--log-format", "slog")
	require.NoError(t, err)

	png := filepath.Join(dir, "loss.png")
	_, err = execute(t, "plot-loss", "--config", cfg, png)
	require.NoError(t, err)
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	train, _ := writeBlobs(t, dir, 40)
	cfg := writeYAML(t, dir, fmt.Sprintf(`
data:
  path: %s
model:
  kind: classification_tree
validation:
  method: kfold
  k: 4
`, train))

	out, err := execute(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Accuracy: 1.000000")
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeYAML(t, dir, "model:\n  kind: mlp\n")

	var validation *errors.ValidationError
	_, err := execute(t, "train", "--config", cfg)
	assert.True(t, errors.As(err, &validation), "data.path is required: %v", err)

	_, err = execute(t, "train", "--config", cfg, "--log-level", "loud")
	assert.True(t, errors.As(err, &validation))

	cfg = writeYAML(t, dir, fmt.Sprintf("persist:\n  path: %s\n", filepath.Join(dir, "missing.gob")))
	_, err = execute(t, "predict", "--config", cfg, "--data", filepath.Join(dir, "new.csv"))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMetricsServer(t *testing.T) {
	a := &app{metricsAddr: "127.0.0.1:0"}
	require.NoError(t, a.setup(io.Discard))
	assert.NotNil(t, a.metrics)
	a.close()
	assert.Nil(t, a.metrics)
}

func TestBuildLearner(t *testing.T) {
	tests := []struct {
		kind string
		want any
	}{
		{config.KindClassificationTree, &tree.ClassificationTree{}},
		{config.KindExtraTree, &tree.ExtraTreeClassifier{}},
		{config.KindExtraTreeRegressor, &tree.ExtraTreeRegressor{}},
		{config.KindRandomForest, &ensemble.RandomForest{}},
		{config.KindMLP, &neural_network.MultilayerPerceptron{}},
		{config.KindAdaline, &neural_network.Adaline{}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := config.Default()
			cfg.Model.Kind = tt.kind
			cfg.Model.Hidden = []int{3, 2}
			cfg.Model.Dropout = 0.1
			learner, err := buildLearner(cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, learner)
			assert.False(t, learner.Trained())
		})
	}

	cfg := config.Default()
	cfg.Model.Kind = config.KindMLP
	cfg.Model.Hidden = []int{3}
	cfg.Model.Activation = "swish"
	_, err := buildLearner(cfg)
	var validation *errors.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "model.activation", validation.ParamName)
}

func TestParseMetric(t *testing.T) {
	classifier, err := tree.NewClassificationTree()
	require.NoError(t, err)
	regressor, err := tree.NewExtraTreeRegressor()
	require.NoError(t, err)

	m, err := parseMetric("", classifier)
	require.NoError(t, err)
	assert.Equal(t, metrics.Accuracy{}, m)

	m, err = parseMetric("", regressor)
	require.NoError(t, err)
	assert.Equal(t, metrics.RSquared{}, m)

	m, err = parseMetric("F1", classifier)
	require.NoError(t, err)
	assert.Equal(t, "FBeta(beta=1)", m.String())

	_, err = parseMetric("auc", classifier)
	assert.Error(t, err)
}
