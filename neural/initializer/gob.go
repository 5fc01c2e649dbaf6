package initializer

import "encoding/gob"

func init() {
	gob.Register(He{})
	gob.Register(Xavier1{})
	gob.Register(Xavier2{})
	gob.Register(LeCun{})
	gob.Register(&Normal{})
	gob.Register(&Uniform{})
	gob.Register(Constant{})
}

// Initializers without hyperparameters travel as their name.

func (i He) MarshalText() ([]byte, error)      { return []byte(i.String()), nil }
func (i Xavier1) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i Xavier2) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i LeCun) MarshalText() ([]byte, error)   { return []byte(i.String()), nil }

func (*He) UnmarshalText([]byte) error      { return nil }
func (*Xavier1) UnmarshalText([]byte) error { return nil }
func (*Xavier2) UnmarshalText([]byte) error { return nil }
func (*LeCun) UnmarshalText([]byte) error   { return nil }
