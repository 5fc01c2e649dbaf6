package layer

import "encoding/gob"

func init() {
	gob.Register(&Placeholder1D{})
	gob.Register(&Dense{})
	gob.Register(&Activation{})
	gob.Register(&Dropout{})
	gob.Register(&Noise{})
	gob.Register(&PReLU{})
	gob.Register(&BatchNorm{})
	gob.Register(&Continuous{})
	gob.Register(&Binary{})
	gob.Register(&Multiclass{})
}
