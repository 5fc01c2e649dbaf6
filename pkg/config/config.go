// Package config loads the YAML training configuration used by the sciforest
// command.
//
// Values are resolved in three steps: built-in defaults, then the YAML file,
// then SCIFOREST_* environment variables. Validate reports the first invalid
// setting as a *errors.ValidationError.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Estimator kinds accepted in model.kind.
const (
	KindExtraTree          = "extra_tree"
	KindClassificationTree = "classification_tree"
	KindExtraTreeRegressor = "extra_tree_regressor"
	KindRandomForest       = "random_forest"
	KindMLP                = "mlp"
	KindAdaline            = "adaline"
)

// Validation methods accepted in validation.method.
const (
	MethodKFold      = "kfold"
	MethodMonteCarlo = "monte_carlo"
	MethodLeavePOut  = "leave_p_out"
)

// Config is the complete training configuration.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Model      ModelConfig      `yaml:"model"`
	Validation ValidationConfig `yaml:"validation"`
	Persist    PersistConfig    `yaml:"persist"`
	Backend    BackendConfig    `yaml:"backend"`
	Logging    LoggingConfig    `yaml:"logging"`
	Seed       int64            `yaml:"seed"`
}

// DataConfig locates the training set.
type DataConfig struct {
	// Format is "csv" or "npy".
	Format string `yaml:"format"`
	Path   string `yaml:"path"`

	// Labels is the .npy label vector; only used with the npy format.
	Labels string `yaml:"labels"`

	// LabelColumn is the CSV label column, negative values count from the end.
	LabelColumn int  `yaml:"label_column"`
	Header      bool `yaml:"header"`

	// Continuous reads labels as regression targets.
	Continuous bool `yaml:"continuous"`
}

// PreprocessConfig selects the transformers fitted before training.
type PreprocessConfig struct {
	Standardize bool `yaml:"standardize"`
}

// ModelConfig holds the hyperparameters of every estimator kind. Fields that
// do not apply to Kind are ignored.
type ModelConfig struct {
	Kind string `yaml:"kind"`

	MaxDepth          int     `yaml:"max_depth"`
	MaxLeafSize       int     `yaml:"max_leaf_size"`
	MinPurityIncrease float64 `yaml:"min_purity_increase"`
	MaxFeatures       int     `yaml:"max_features"`

	Estimators int     `yaml:"estimators"`
	Ratio      float64 `yaml:"ratio"`
	Balanced   bool    `yaml:"balanced"`
	Base       string  `yaml:"base"`

	Hidden       []int   `yaml:"hidden"`
	Activation   string  `yaml:"activation"`
	Dropout      float64 `yaml:"dropout"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Alpha        float64 `yaml:"alpha"`
	Epochs       int     `yaml:"epochs"`
	MinChange    float64 `yaml:"min_change"`
	Window       int     `yaml:"window"`
	HoldOut      float64 `yaml:"hold_out"`
}

// ValidationConfig selects the cross validation method and metric.
type ValidationConfig struct {
	Method      string  `yaml:"method"`
	K           int     `yaml:"k"`
	Simulations int     `yaml:"simulations"`
	Ratio       float64 `yaml:"ratio"`
	P           int     `yaml:"p"`
	Metric      string  `yaml:"metric"`
}

// PersistConfig selects where trained models are stored.
type PersistConfig struct {
	// Kind is "filesystem" or "badger".
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
	History bool   `yaml:"history"`
}

// BackendConfig sizes the task backend. Zero workers selects the serial
// backend.
type BackendConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig configures the log provider.
type LoggingConfig struct {
	Level string `yaml:"level"`

	// Format is "json", "console" or "slog".
	Format string `yaml:"format"`
}

// Default returns the configuration used when a setting is not given.
func Default() *Config {
	return &Config{
		Data: DataConfig{Format: "csv", LabelColumn: -1, Header: true},
		Model: ModelConfig{
			Kind:              KindRandomForest,
			MaxLeafSize:       3,
			MinPurityIncrease: 1e-7,
			Estimators:        100,
			Ratio:             0.2,
			Base:              KindClassificationTree,
			Activation:        "relu",
			BatchSize:         128,
			LearningRate:      0.001,
			Alpha:             1e-4,
			Epochs:            1000,
			MinChange:         1e-4,
			Window:            3,
			HoldOut:           0.1,
		},
		Validation: ValidationConfig{
			Method:      MethodKFold,
			K:           5,
			Simulations: 10,
			Ratio:       0.2,
			P:           10,
		},
		Persist: PersistConfig{Kind: "filesystem", Path: "model.gob", Key: "model"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Seed:    1,
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "config: marshal")
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.NewValidationError(key, "must be an integer", v)
		}
		*dst = n
		return nil
	}

	str("SCIFOREST_DATA_PATH", &c.Data.Path)
	str("SCIFOREST_MODEL_KIND", &c.Model.Kind)
	str("SCIFOREST_PERSIST_KIND", &c.Persist.Kind)
	str("SCIFOREST_PERSIST_PATH", &c.Persist.Path)
	str("SCIFOREST_LOG_LEVEL", &c.Logging.Level)
	str("SCIFOREST_LOG_FORMAT", &c.Logging.Format)
	if err := integer("SCIFOREST_WORKERS", &c.Backend.Workers); err != nil {
		return err
	}
	if v, ok := lookup("SCIFOREST_SEED"); ok {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.NewValidationError("SCIFOREST_SEED", "must be an integer", v)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks the settings that can be checked without building the
// estimator. Hyperparameter ranges are checked again by the estimator
// constructors.
func (c *Config) Validate() error {
	switch c.Data.Format {
	case "csv":
	case "npy":
		if c.Data.Labels == "" {
			return errors.NewValidationError("data.labels", "required for the npy format", c.Data.Labels)
		}
	default:
		return errors.NewValidationError("data.format", "must be csv or npy", c.Data.Format)
	}
	if c.Data.Path == "" {
		return errors.NewValidationError("data.path", "must not be empty", c.Data.Path)
	}

	switch c.Model.Kind {
	case KindExtraTree, KindClassificationTree, KindRandomForest, KindMLP:
		if c.Data.Continuous {
			return errors.NewValidationError("model.kind", "is a classifier but data.continuous is set", c.Model.Kind)
		}
	case KindExtraTreeRegressor, KindAdaline:
		if !c.Data.Continuous {
			return errors.NewValidationError("model.kind", "is a regressor but data.continuous is not set", c.Model.Kind)
		}
	default:
		return errors.NewValidationError("model.kind", "unknown estimator", c.Model.Kind)
	}
	if c.Model.Kind == KindRandomForest && c.Model.Base != KindClassificationTree && c.Model.Base != KindExtraTree {
		return errors.NewValidationError("model.base", "must be classification_tree or extra_tree", c.Model.Base)
	}
	for i, n := range c.Model.Hidden {
		if n < 1 {
			return errors.NewValidationError("model.hidden", "every layer needs at least one neuron", i)
		}
	}

	switch c.Validation.Method {
	case MethodKFold, MethodMonteCarlo, MethodLeavePOut:
	default:
		return errors.NewValidationError("validation.method", "must be kfold, monte_carlo or leave_p_out", c.Validation.Method)
	}

	switch c.Persist.Kind {
	case "filesystem", "badger":
	default:
		return errors.NewValidationError("persist.kind", "must be filesystem or badger", c.Persist.Kind)
	}
	if c.Persist.Path == "" {
		return errors.NewValidationError("persist.path", "must not be empty", c.Persist.Path)
	}
	if c.Backend.Workers < 0 {
		return errors.NewValidationError("backend.workers", "must be non-negative", c.Backend.Workers)
	}
	switch c.Logging.Format {
	case "json", "console", "slog":
	default:
		return errors.NewValidationError("logging.format", "must be json, console or slog", c.Logging.Format)
	}
	return nil
}
