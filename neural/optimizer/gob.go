package optimizer

import "encoding/gob"

// Optimizers are persisted with their hyperparameters only. Per-parameter
// state starts over after decoding.
func init() {
	gob.Register(&Stochastic{})
	gob.Register(&Momentum{})
	gob.Register(&Adam{})
	gob.Register(&AdaMax{})
}
