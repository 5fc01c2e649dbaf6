package main

import (
	"strings"

	"github.com/YuminosukeSato/sciforest/core/backend"
	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/metrics"
	"github.com/YuminosukeSato/sciforest/neural/activation"
	"github.com/YuminosukeSato/sciforest/neural/initializer"
	"github.com/YuminosukeSato/sciforest/neural/layer"
	"github.com/YuminosukeSato/sciforest/neural/optimizer"
	"github.com/YuminosukeSato/sciforest/pkg/config"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/sklearn/ensemble"
	"github.com/YuminosukeSato/sciforest/sklearn/model_selection"
	"github.com/YuminosukeSato/sciforest/sklearn/neural_network"
	"github.com/YuminosukeSato/sciforest/sklearn/tree"
)

// newBackend returns the serial backend for zero workers and a worker pool
// otherwise.
func newBackend(workers int) backend.Backend {
	if workers > 0 {
		return backend.NewWorkers(workers)
	}
	return backend.NewSerial()
}

// buildLearner creates the untrained estimator described by cfg.
func buildLearner(cfg *config.Config) (model.Learner, error) {
	switch cfg.Model.Kind {
	case config.KindExtraTree, config.KindClassificationTree:
		return buildTree(cfg.Model.Kind, cfg)
	case config.KindExtraTreeRegressor:
		return tree.NewExtraTreeRegressor(treeOptions(cfg)...)
	case config.KindRandomForest:
		base, err := buildTree(cfg.Model.Base, cfg)
		if err != nil {
			return nil, err
		}
		return ensemble.NewRandomForest(
			ensemble.WithBase(base),
			ensemble.WithEstimators(cfg.Model.Estimators),
			ensemble.WithRatio(cfg.Model.Ratio),
			ensemble.WithBalanced(cfg.Model.Balanced),
			ensemble.WithBackend(newBackend(cfg.Backend.Workers)),
			ensemble.WithRandomState(cfg.Seed),
		)
	case config.KindMLP:
		opts, err := networkOptions(cfg)
		if err != nil {
			return nil, err
		}
		hidden, err := hiddenLayers(cfg.Model)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			neural_network.WithHiddenLayers(hidden...),
			neural_network.WithHoldOut(cfg.Model.HoldOut),
		)
		return neural_network.NewMultilayerPerceptron(opts...)
	case config.KindAdaline:
		opts, err := networkOptions(cfg)
		if err != nil {
			return nil, err
		}
		return neural_network.NewAdaline(opts...)
	default:
		return nil, errors.NewValidationError("model.kind", "unknown estimator", cfg.Model.Kind)
	}
}

func buildTree(kind string, cfg *config.Config) (ensemble.Tree, error) {
	switch kind {
	case config.KindClassificationTree:
		return tree.NewClassificationTree(treeOptions(cfg)...)
	case config.KindExtraTree:
		return tree.NewExtraTreeClassifier(treeOptions(cfg)...)
	default:
		return nil, errors.NewValidationError("model.base", "must be classification_tree or extra_tree", kind)
	}
}

func treeOptions(cfg *config.Config) []tree.Option {
	opts := []tree.Option{
		tree.WithMaxLeafSize(cfg.Model.MaxLeafSize),
		tree.WithMinPurityIncrease(cfg.Model.MinPurityIncrease),
		tree.WithRandomState(cfg.Seed),
	}
	if cfg.Model.MaxDepth > 0 {
		opts = append(opts, tree.WithMaxDepth(cfg.Model.MaxDepth))
	}
	if cfg.Model.MaxFeatures > 0 {
		opts = append(opts, tree.WithMaxFeatures(cfg.Model.MaxFeatures))
	}
	return opts
}

func networkOptions(cfg *config.Config) ([]neural_network.Option, error) {
	adam, err := optimizer.NewAdam(cfg.Model.LearningRate, 0.1, 0.001)
	if err != nil {
		return nil, err
	}
	return []neural_network.Option{
		neural_network.WithOptimizer(adam),
		neural_network.WithBatchSize(cfg.Model.BatchSize),
		neural_network.WithAlpha(cfg.Model.Alpha),
		neural_network.WithEpochs(cfg.Model.Epochs),
		neural_network.WithMinChange(cfg.Model.MinChange),
		neural_network.WithWindow(cfg.Model.Window),
		neural_network.WithRandomState(cfg.Seed),
	}, nil
}

// hiddenLayers expands model.hidden into Dense, activation and optional
// dropout layers.
func hiddenLayers(m config.ModelConfig) ([]layer.Hidden, error) {
	var hidden []layer.Hidden
	for _, neurons := range m.Hidden {
		dense, err := layer.NewDense(neurons, m.Alpha, true, initializer.He{}, nil)
		if err != nil {
			return nil, err
		}
		fn, err := parseActivation(m.Activation)
		if err != nil {
			return nil, err
		}
		act, err := layer.NewActivation(fn)
		if err != nil {
			return nil, err
		}
		hidden = append(hidden, dense, act)
		if m.Dropout > 0 {
			dropout, err := layer.NewDropout(m.Dropout)
			if err != nil {
				return nil, err
			}
			hidden = append(hidden, dropout)
		}
	}
	return hidden, nil
}

func parseActivation(name string) (activation.Function, error) {
	switch strings.ToLower(name) {
	case "relu", "":
		return activation.ReLU{}, nil
	case "leaky_relu":
		return activation.NewLeakyReLU(0.1)
	case "elu":
		return activation.NewELU(1)
	case "sigmoid":
		return activation.Sigmoid{}, nil
	case "softplus":
		return activation.SoftPlus{}, nil
	case "softsign":
		return activation.Softsign{}, nil
	default:
		return nil, errors.NewValidationError("model.activation", "unknown activation function", name)
	}
}

// parseMetric resolves validation.metric. An empty name picks accuracy for
// classifiers and R squared for regressors.
func parseMetric(name string, e model.Estimator) (metrics.Metric, error) {
	switch strings.ToLower(name) {
	case "":
		if e.Type() == model.RegressorType {
			return metrics.RSquared{}, nil
		}
		return metrics.Accuracy{}, nil
	case "accuracy":
		return metrics.Accuracy{}, nil
	case "mcc":
		return metrics.MCC{}, nil
	case "f1":
		return metrics.NewFBeta(1)
	case "mse":
		return metrics.MeanSquaredError{}, nil
	case "rmse":
		return metrics.RootMeanSquaredError{}, nil
	case "mae":
		return metrics.MeanAbsoluteError{}, nil
	case "median_ae":
		return metrics.MedianAbsoluteError{}, nil
	case "smape":
		return metrics.SMAPE{}, nil
	case "r2":
		return metrics.RSquared{}, nil
	default:
		return nil, errors.NewValidationError("validation.metric", "unknown metric", name)
	}
}

func buildValidator(cfg *config.Config) (model_selection.Validator, error) {
	opts := []model_selection.Option{
		model_selection.WithBackend(newBackend(cfg.Backend.Workers)),
		model_selection.WithRandomState(cfg.Seed),
	}
	v := cfg.Validation
	switch v.Method {
	case config.MethodKFold:
		return model_selection.NewKFold(v.K, opts...)
	case config.MethodMonteCarlo:
		return model_selection.NewMonteCarlo(v.Simulations, v.Ratio, opts...)
	case config.MethodLeavePOut:
		return model_selection.NewLeavePOut(v.P, opts...)
	default:
		return nil, errors.NewValidationError("validation.method", "must be kfold, monte_carlo or leave_p_out", v.Method)
	}
}
