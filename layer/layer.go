// Package layer defines the trainable layer interface and its parameters
package layer

import (
	"math/rand"
	"runtime"

	"github.com/neurlang/blazepose/tensor"
)

// Threads bounds the goroutines a single layer uses for one Forward or Backward call.
var Threads = runtime.NumCPU()

// Layer is one differentiable stage of a network.
type Layer interface {

	// Name identifies the layer inside its network. Parameter names are prefixed with it.
	Name() string

	// Forward computes the layer output for a batch. When training is set the
	// layer keeps whatever it needs for the following Backward call.
	Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error)

	// Backward receives the gradient of the loss with respect to the last
	// Forward output, stores the parameter gradients (replacing any previous
	// ones) and returns the gradient with respect to the last Forward input.
	Backward(dy *tensor.Tensor) (*tensor.Tensor, error)

	// Params lists the trainable parameters, nil for stateless layers.
	Params() []*Param

	// OutputShape reports the output shape for an input shape, batch dimension included.
	OutputShape(in []int) ([]int, error)
}

// Initializer is implemented by layers with randomly initialized parameters.
type Initializer interface {
	Init(rng *rand.Rand)
}
