// Package param holds trainable tensors and the per-network registry that
// assigns them stable ids.
package param

import (
	"gonum.org/v1/gonum/mat"
)

// Parameter is a trainable weight or bias tensor. ID is assigned by the
// Registry of the network the parameter belongs to and keys optimizer state.
type Parameter struct {
	ID    int
	Value *mat.Dense
}

// New wraps w in an unregistered parameter.
func New(w *mat.Dense) *Parameter {
	return &Parameter{ID: -1, Value: w}
}

// Update subtracts step from the value in place.
func (p *Parameter) Update(step mat.Matrix) {
	p.Value.Sub(p.Value, step)
}

// Dims returns the shape of the value.
func (p *Parameter) Dims() (r, c int) {
	return p.Value.Dims()
}

// Clone returns a deep copy with the same id.
func (p *Parameter) Clone() *Parameter {
	return &Parameter{ID: p.ID, Value: mat.DenseCopyOf(p.Value)}
}

// Registry is the arena of a single network's parameters. Ids are indices
// into the registry, so two networks never share id space.
type Registry struct {
	params []*Parameter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register assigns the next id to p and returns it.
func (r *Registry) Register(p *Parameter) *Parameter {
	p.ID = len(r.params)
	r.params = append(r.params, p)
	return p
}

// Get returns the parameter with the given id.
func (r *Registry) Get(id int) *Parameter {
	if id < 0 || id >= len(r.params) {
		return nil
	}
	return r.params[id]
}

// All returns the parameters in id order.
func (r *Registry) All() []*Parameter {
	return r.params
}

// Len returns the number of registered parameters.
func (r *Registry) Len() int {
	return len(r.params)
}

// Reset forgets every parameter. Ids restart at 0.
func (r *Registry) Reset() {
	r.params = nil
}
