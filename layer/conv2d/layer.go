// Package conv2d implements a 2D convolution layer with "same" padding
package conv2d

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
)

// Conv2D convolves an NHWC input with a kernel×kernel×in×out filter bank.
type Conv2D struct {
	name                    string
	kernel, stride, in, out int

	w, b *layer.Param

	x        *tensor.Tensor
	outShape []int
}

// MustNew creates a new Conv2D layer with kernel size, stride and channel counts
func MustNew(name string, kernel, stride, in, out int) *Conv2D {
	o, err := New(name, kernel, stride, in, out)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new Conv2D layer with kernel size, stride and channel counts
func New(name string, kernel, stride, in, out int) (o *Conv2D, err error) {
	if kernel < 1 || stride < 1 {
		return nil, fmt.Errorf("New Conv2D: Kernel %d and Stride %d must be positive", kernel, stride)
	}
	if in < 1 || out < 1 {
		return nil, fmt.Errorf("New Conv2D: Channels %d -> %d must be positive", in, out)
	}
	o = new(Conv2D)
	o.name = name
	o.kernel = kernel
	o.stride = stride
	o.in = in
	o.out = out
	o.w = layer.NewParam(name+"/kernel", kernel, kernel, in, out)
	o.b = layer.NewParam(name+"/bias", out)
	return
}

// Name identifies the layer
func (c *Conv2D) Name() string {
	return c.name
}

// Params returns kernel and bias
func (c *Conv2D) Params() []*layer.Param {
	return []*layer.Param{c.w, c.b}
}

// Init draws He-normal kernel weights and zeroes the bias
func (c *Conv2D) Init(rng *rand.Rand) {
	c.w.HeNormal(rng, c.kernel*c.kernel*c.in)
	c.b.Value.Zero()
}

// OutputShape reports the NHWC output shape
func (c *Conv2D) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 || in[3] != c.in {
		return nil, fmt.Errorf("%s: %w: want [N H W %d], got %v", c.name, tensor.ErrShapeMismatch, c.in, in)
	}
	oh, _ := layer.SamePadding(in[1], c.kernel, c.stride)
	ow, _ := layer.SamePadding(in[2], c.kernel, c.stride)
	return []int{in[0], oh, ow, c.out}, nil
}
