package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/performance"
	"github.com/YuminosukeSato/sciforest/pkg/config"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
	"github.com/YuminosukeSato/sciforest/preprocessing"
	"github.com/YuminosukeSato/sciforest/sklearn/ensemble"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

func newTrainCmd(a *app) *cobra.Command {
	var partial bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the configured estimator and persist it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.train(cmd.OutOrStdout(), partial)
		},
	}
	cmd.Flags().BoolVar(&partial, "partial", false, "continue training the persisted estimator instead of starting over")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Estimate the generalization score of the configured estimator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.validate(cmd.OutOrStdout())
		},
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var (
		data   string
		header bool
		proba  bool
		chunk  int
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the samples of a CSV or NPY file with the persisted estimator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.predict(cmd.Context(), cmd.OutOrStdout(), data, header, proba, chunk)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "samples to predict, without a label column")
	cmd.Flags().BoolVar(&header, "header", true, "the CSV file starts with a header row")
	cmd.Flags().BoolVar(&proba, "proba", false, "print class probabilities instead of labels")
	cmd.Flags().IntVar(&chunk, "chunk", 4096, "rows predicted per block; blocks run in parallel")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newExportTreeCmd(a *app) *cobra.Command {
	var (
		features []string
		index    int
	)
	cmd := &cobra.Command{
		Use:   "export-tree <output.dot|svg|png|->",
		Short: "Render the persisted decision tree with Graphviz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.exportTree(cmd.OutOrStdout(), args[0], features, index)
		},
	}
	cmd.Flags().StringSliceVar(&features, "features", nil, "column names used in the split labels")
	cmd.Flags().IntVar(&index, "tree", 0, "tree of a random forest to render")
	return cmd
}

func newPlotLossCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plot-loss <output.png|svg|pdf>",
		Short: "Plot the training loss of the persisted network",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.plotLoss(args[0])
		},
	}
}

func (a *app) logger() log.Logger {
	return log.GetLoggerWithName("sciforest").With(log.ModelNameKey, a.cfg.Model.Kind)
}

func (a *app) train(out io.Writer, partial bool) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	d, err := loadLabeled(cfg.Data)
	if err != nil {
		return err
	}

	var (
		learner model.Learner
		scaler  *preprocessing.StandardScaler
	)
	if partial {
		learner, scaler, err = loadBundle(cfg)
		if err != nil {
			return err
		}
		if _, ok := learner.(model.OnlineLearner); !ok {
			return errors.NewValidationError("partial", "estimator does not support online training", learner.Type().String())
		}
	} else {
		if learner, err = buildLearner(cfg); err != nil {
			return err
		}
		if cfg.Preprocess.Standardize {
			scaler = preprocessing.NewStandardScaler(true)
			if err := scaler.Fit(d); err != nil {
				return err
			}
		}
	}
	if scaler != nil {
		if d, err = preprocessing.Apply(scaler, d); err != nil {
			return err
		}
	}

	logger := a.logger()
	start := time.Now()
	if online, ok := learner.(model.OnlineLearner); ok && partial {
		err = online.Partial(d)
	} else {
		err = learner.Train(d)
	}
	if err != nil {
		logger.Error("Training failed", err, log.ErrorCodeKey, log.ErrorCode(err))
		return err
	}
	logger.Info("Training completed",
		log.SamplesKey, d.NumSamples(),
		log.FeaturesKey, d.NumFeatures(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if err := saveBundle(cfg, learner, scaler); err != nil {
		return err
	}
	logger.Info("Model saved", log.PathKey, cfg.Persist.Path)

	fmt.Fprintf(out, "trained %s on %d samples, saved to %s\n", cfg.Model.Kind, d.NumSamples(), cfg.Persist.Path)
	if r, ok := learner.(model.RanksFeatures); ok {
		importances, err := r.FeatureImportances()
		if err != nil {
			return err
		}
		for i, v := range importances {
			fmt.Fprintf(out, "feature %d\t%.4f\n", i, v)
		}
	}
	return nil
}

func (a *app) validate(out io.Writer) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	d, err := loadLabeled(cfg.Data)
	if err != nil {
		return err
	}
	if cfg.Preprocess.Standardize {
		scaler := preprocessing.NewStandardScaler(true)
		if err := scaler.Fit(d); err != nil {
			return err
		}
		if d, err = preprocessing.Apply(scaler, d); err != nil {
			return err
		}
	}

	learner, err := buildLearner(cfg)
	if err != nil {
		return err
	}
	m, err := parseMetric(cfg.Validation.Metric, learner)
	if err != nil {
		return err
	}
	v, err := buildValidator(cfg)
	if err != nil {
		return err
	}
	score, err := v.Test(learner, d, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s: %.6f\n", v, m, score)
	return nil
}

func (a *app) predict(ctx context.Context, out io.Writer, path string, header, proba bool, chunk int) error {
	learner, scaler, err := loadBundle(a.cfg)
	if err != nil {
		return err
	}
	var d dataset.Dataset
	if d, err = loadUnlabeled(path, header); err != nil {
		return err
	}
	if scaler != nil {
		if d, err = preprocessing.ApplyUnlabeled(scaler, d); err != nil {
			return err
		}
	}

	if proba {
		p, ok := learner.(model.ProbabilisticClassifier)
		if !ok {
			return errors.NewValidationError("proba", "estimator does not output probabilities", learner.Type().String())
		}
		probs, err := p.Proba(d)
		if err != nil {
			return err
		}
		return writeProbabilities(out, probs)
	}

	proc, err := performance.NewChunkedProcessor(chunk, true)
	if err != nil {
		return err
	}
	switch e := learner.(type) {
	case model.Classifier:
		labels, err := performance.PredictClasses(ctx, proc, e, d)
		if err != nil {
			return err
		}
		for _, l := range labels {
			fmt.Fprintln(out, l)
		}
	case model.Regressor:
		values, err := performance.PredictValues(ctx, proc, e, d)
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Fprintf(out, "%g\n", v)
		}
	default:
		return errors.NewValueError("predict", "estimator cannot predict")
	}
	return nil
}

// writeProbabilities prints a header of the classes in sorted order followed
// by one row per sample.
func writeProbabilities(out io.Writer, probs []map[string]float64) error {
	if len(probs) == 0 {
		return nil
	}
	classes := make([]string, 0, len(probs[0]))
	for c := range probs[0] {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	if _, err := fmt.Fprintln(out, strings.Join(classes, ",")); err != nil {
		return err
	}
	row := make([]string, len(classes))
	for _, p := range probs {
		for i, c := range classes {
			row[i] = fmt.Sprintf("%.6f", p[c])
		}
		if _, err := fmt.Fprintln(out, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}

type rooted interface {
	Root() tree.Node
}

func (a *app) exportTree(out io.Writer, path string, features []string, index int) error {
	learner, _, err := loadBundle(a.cfg)
	if err != nil {
		return err
	}
	var root tree.Node
	switch e := learner.(type) {
	case rooted:
		root = e.Root()
	case *ensemble.RandomForest:
		trees := e.Trees()
		if index < 0 || index >= len(trees) {
			return errors.NewValidationError("tree", fmt.Sprintf("must be in [0, %d)", len(trees)), index)
		}
		r, ok := trees[index].(rooted)
		if !ok {
			return errors.NewValueError("export-tree", "forest member is not a decision tree")
		}
		root = r.Root()
	default:
		return errors.NewValidationError("model.kind", "is not a decision tree", a.cfg.Model.Kind)
	}

	if path == "-" {
		return tree.ExportGraphviz(out, root, features, tree.DOT)
	}
	format, err := tree.ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := tree.ExportGraphvizFile(path, root, features, format); err != nil {
		return err
	}
	a.logger().Info("Tree exported", log.PathKey, path)
	return nil
}

func (a *app) plotLoss(path string) error {
	learner, _, err := loadBundle(a.cfg)
	if err != nil {
		return err
	}
	h, ok := learner.(model.LossHistory)
	if !ok {
		return errors.NewValidationError("model.kind", "does not record a loss history", a.cfg.Model.Kind)
	}
	var scores []float64
	if s, ok := learner.(interface{ Scores() []float64 }); ok {
		scores = s.Scores()
	}
	if err := plotLoss(a.cfg.Model.Kind, h.Steps(), scores, path); err != nil {
		return err
	}
	a.logger().Info("Loss plotted", log.PathKey, path)
	return nil
}

func loadLabeled(c config.DataConfig) (*dataset.Labeled, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", c.Path)
	}
	defer f.Close()

	if c.Format == "npy" {
		l, err := os.Open(c.Labels)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", c.Labels)
		}
		defer l.Close()
		return dataset.FromNPY(f, l, c.Continuous)
	}
	return dataset.FromCSV(f, dataset.CSVOptions{
		Header:           c.Header,
		LabelColumn:      c.LabelColumn,
		ContinuousLabels: c.Continuous,
	})
}

// loadUnlabeled reads a .npy array or, for any other extension, a CSV file.
func loadUnlabeled(path string, header bool) (*dataset.Unlabeled, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".npy") {
		m, err := dataset.ReadNPY(f)
		if err != nil {
			return nil, err
		}
		return dataset.FromMatrix(m)
	}
	return dataset.FromCSVUnlabeled(f, dataset.CSVOptions{Header: header})
}
