package neural

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Snapshot is a copy of the parameters of a network at one point in
// training.
type Snapshot struct {
	network *FeedForward
	values  []*mat.Dense
}

// TakeSnapshot copies every parameter of n.
func TakeSnapshot(n *FeedForward) *Snapshot {
	params := n.Parameters()
	values := make([]*mat.Dense, len(params))
	for i, p := range params {
		values[i] = mat.DenseCopyOf(p.Value)
	}
	return &Snapshot{network: n, values: values}
}

// Restore writes the copied values back into the network's parameters. The
// parameters keep their ids, so optimizer state stays attached.
func (s *Snapshot) Restore() error {
	params := s.network.Parameters()
	if len(params) != len(s.values) {
		return errors.NewDimensionError("neural.Snapshot.Restore", len(s.values), len(params), 0)
	}
	for i, p := range params {
		pr, pc := p.Dims()
		vr, vc := s.values[i].Dims()
		if pr != vr || pc != vc {
			return errors.NewDimensionError("neural.Snapshot.Restore", vr*vc, pr*pc, 1)
		}
	}
	for i, p := range params {
		p.Value.Copy(s.values[i])
	}
	return nil
}
