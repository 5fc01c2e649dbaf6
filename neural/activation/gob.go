package activation

import "encoding/gob"

func init() {
	gob.Register(ReLU{})
	gob.Register(&LeakyReLU{})
	gob.Register(&ELU{})
	gob.Register(Sigmoid{})
	gob.Register(Softmax{})
	gob.Register(SoftPlus{})
	gob.Register(Softsign{})
	gob.Register(&ThresholdedReLU{})
}

// Functions without hyperparameters have no fields for gob to encode, so
// they travel as their name.

func (f ReLU) MarshalText() ([]byte, error)     { return []byte(f.String()), nil }
func (f Sigmoid) MarshalText() ([]byte, error)  { return []byte(f.String()), nil }
func (f Softmax) MarshalText() ([]byte, error)  { return []byte(f.String()), nil }
func (f SoftPlus) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
func (f Softsign) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (*ReLU) UnmarshalText([]byte) error     { return nil }
func (*Sigmoid) UnmarshalText([]byte) error  { return nil }
func (*Softmax) UnmarshalText([]byte) error  { return nil }
func (*SoftPlus) UnmarshalText([]byte) error { return nil }
func (*Softsign) UnmarshalText([]byte) error { return nil }
