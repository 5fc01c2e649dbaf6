package tree

import (
	"math"
	"time"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Config holds the hyperparameters shared by every tree.
type Config struct {
	// MaxHeight is the maximum number of levels of the tree.
	MaxHeight int

	// MaxLeafSize is the largest number of samples a node may hold without
	// being split further.
	MaxLeafSize int

	// MaxFeatures is the number of columns considered per split. 0 selects
	// round(sqrt(columns)).
	MaxFeatures int

	// MinPurityIncrease is the smallest impurity decrease a split must
	// achieve.
	MinPurityIncrease float64

	// MaxBins caps the number of split candidates per continuous column of a
	// ClassificationTree.
	MaxBins int

	RandomState int64
}

func defaultConfig() Config {
	return Config{
		MaxHeight:         math.MaxInt,
		MaxLeafSize:       3,
		MinPurityIncrease: 1e-7,
		MaxBins:           256,
		RandomState:       time.Now().UnixNano(),
	}
}

// Option configures a tree.
type Option func(*Config) error

// WithMaxDepth sets the maximum height of the tree.
func WithMaxDepth(depth int) Option {
	return func(c *Config) error {
		if depth < 1 {
			return errors.NewValidationError("max_depth", "must be at least 1", depth)
		}
		c.MaxHeight = depth
		return nil
	}
}

// WithMaxLeafSize sets the number of samples below which a node is not split.
func WithMaxLeafSize(size int) Option {
	return func(c *Config) error {
		if size < 1 {
			return errors.NewValidationError("max_leaf_size", "must be at least 1", size)
		}
		c.MaxLeafSize = size
		return nil
	}
}

// WithMaxFeatures sets the number of columns considered per split.
func WithMaxFeatures(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return errors.NewValidationError("max_features", "must be at least 1", n)
		}
		c.MaxFeatures = n
		return nil
	}
}

// WithMinPurityIncrease sets the minimum impurity decrease of a split.
func WithMinPurityIncrease(v float64) Option {
	return func(c *Config) error {
		if v < 0 || math.IsNaN(v) {
			return errors.NewValidationError("min_purity_increase", "must be non-negative", v)
		}
		c.MinPurityIncrease = v
		return nil
	}
}

// WithMaxBins sets the number of quantile split candidates per continuous
// column.
func WithMaxBins(bins int) Option {
	return func(c *Config) error {
		if bins < 2 {
			return errors.NewValidationError("max_bins", "must be at least 2", bins)
		}
		c.MaxBins = bins
		return nil
	}
}

// WithRandomState seeds the random number generator.
func WithRandomState(seed int64) Option {
	return func(c *Config) error {
		c.RandomState = seed
		return nil
	}
}

func newConfig(opts []Option) (Config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

func (c Config) params() map[string]any {
	return map[string]any{
		"max_depth":           c.MaxHeight,
		"max_leaf_size":       c.MaxLeafSize,
		"max_features":        c.MaxFeatures,
		"min_purity_increase": c.MinPurityIncrease,
	}
}
