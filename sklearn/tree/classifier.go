package tree

import (
	"github.com/YuminosukeSato/sciforest/core/dataset"
	"github.com/YuminosukeSato/sciforest/core/model"
)

// classifier implements the classification side shared by
// ExtraTreeClassifier and ClassificationTree.
type classifier struct {
	base

	// classes are the training outcomes in first-seen order.
	classes []string
}

// Type implements model.Estimator.
func (c *classifier) Type() model.EstimatorType {
	return model.ClassifierType
}

// Capabilities implements model.Estimator.
func (c *classifier) Capabilities() model.Capability {
	return model.Trainable | model.Probabilistic | model.Ranking
}

// Classes returns the training outcomes in first-seen order.
func (c *classifier) Classes() []string {
	return c.classes
}

func (c *classifier) train(e model.Estimator, d *dataset.Labeled) error {
	if err := model.CheckTrainingSet(c.name+".Train", e, d); err != nil {
		return err
	}
	c.classes = d.PossibleOutcomes()
	c.grow(d)
	return nil
}

func (c *classifier) predict(e model.Estimator, d dataset.Dataset) ([]string, error) {
	leaves, err := c.leaves("Predict", e, d)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Class
	}
	return out, nil
}

// proba returns a distribution over every training class. Classes absent
// from the leaf get probability 0.
func (c *classifier) proba(e model.Estimator, d dataset.Dataset) ([]map[string]float64, error) {
	leaves, err := c.leaves("Proba", e, d)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]float64, len(leaves))
	for i, l := range leaves {
		dist := make(map[string]float64, len(c.classes))
		for _, class := range c.classes {
			dist[class] = 0
		}
		for class, p := range l.Probabilities {
			dist[class] = p
		}
		out[i] = dist
	}
	return out, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *classifier) MarshalBinary() ([]byte, error) {
	return c.marshal(c.classes)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *classifier) UnmarshalBinary(blob []byte) error {
	classes, err := c.unmarshal(blob)
	if err != nil {
		return err
	}
	c.classes = classes
	return nil
}
