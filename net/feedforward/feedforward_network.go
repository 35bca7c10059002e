// Package feedforward implements a sequential network of layers
package feedforward

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
)

// FeedforwardNetwork is a chain of layers, each consuming the output of the previous one
type FeedforwardNetwork struct {
	layers []layer.Layer
}

// NewLayer adds a layer to the end of network.
func (f *FeedforwardNetwork) NewLayer(l layer.Layer) {
	f.layers = append(f.layers, l)
}

// Len returns the number of layers.
func (f FeedforwardNetwork) Len() int {
	return len(f.layers)
}

// Init initializes every layer that has random parameters.
func (f FeedforwardNetwork) Init(rng *rand.Rand) {
	for _, l := range f.layers {
		if init, ok := l.(layer.Initializer); ok {
			init.Init(rng)
		}
	}
}

// Params returns the parameters of all layers in network order.
func (f FeedforwardNetwork) Params() (o []*layer.Param) {
	for _, l := range f.layers {
		o = append(o, l.Params()...)
	}
	return
}

// SetFrozen freezes or unfreezes every parameter of the network.
func (f FeedforwardNetwork) SetFrozen(frozen bool) {
	for _, p := range f.Params() {
		p.Frozen = frozen
	}
}

// OutputShape propagates an input shape through all layers.
func (f FeedforwardNetwork) OutputShape(in []int) ([]int, error) {
	shape := in
	for _, l := range f.layers {
		var err error
		if shape, err = l.OutputShape(shape); err != nil {
			return nil, err
		}
	}
	return shape, nil
}

// Forward runs the input through all layers.
func (f *FeedforwardNetwork) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	var err error
	for _, l := range f.layers {
		if x, err = l.Forward(x, training); err != nil {
			return nil, fmt.Errorf("forward %s: %w", l.Name(), err)
		}
	}
	return x, nil
}

// Backward back-propagates the output gradient through all layers in reverse
// and returns the gradient with respect to the network input.
func (f *FeedforwardNetwork) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for i := len(f.layers) - 1; i >= 0; i-- {
		if dy, err = f.layers[i].Backward(dy); err != nil {
			return nil, fmt.Errorf("backward %s: %w", f.layers[i].Name(), err)
		}
	}
	return dy, nil
}
