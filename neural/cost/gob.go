package cost

import "encoding/gob"

func init() {
	gob.Register(LeastSquares{})
	gob.Register(&HuberLoss{})
	gob.Register(CrossEntropy{})
	gob.Register(RelativeEntropy{})
}

// Losses without hyperparameters travel as their name.

func (c LeastSquares) MarshalText() ([]byte, error)    { return []byte(c.String()), nil }
func (c CrossEntropy) MarshalText() ([]byte, error)    { return []byte(c.String()), nil }
func (c RelativeEntropy) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (*LeastSquares) UnmarshalText([]byte) error    { return nil }
func (*CrossEntropy) UnmarshalText([]byte) error    { return nil }
func (*RelativeEntropy) UnmarshalText([]byte) error { return nil }
