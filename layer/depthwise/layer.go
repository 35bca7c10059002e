// Package depthwise implements a depthwise 2D convolution, one filter per channel
package depthwise

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
)

// Depthwise convolves each input channel with its own kernel×kernel filter.
type Depthwise struct {
	name                     string
	kernel, stride, channels int

	w, b *layer.Param

	x        *tensor.Tensor
	outShape []int
}

// MustNew creates a new Depthwise layer
func MustNew(name string, kernel, stride, channels int) *Depthwise {
	o, err := New(name, kernel, stride, channels)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new Depthwise layer
func New(name string, kernel, stride, channels int) (*Depthwise, error) {
	if kernel < 1 || stride < 1 || channels < 1 {
		return nil, fmt.Errorf("New Depthwise: Kernel %d, Stride %d and Channels %d must be positive", kernel, stride, channels)
	}
	return &Depthwise{
		name:     name,
		kernel:   kernel,
		stride:   stride,
		channels: channels,
		w:        layer.NewParam(name+"/depthwise_kernel", kernel, kernel, channels),
		b:        layer.NewParam(name+"/bias", channels),
	}, nil
}

func (d *Depthwise) Name() string { return d.name }

func (d *Depthwise) Params() []*layer.Param { return []*layer.Param{d.w, d.b} }

func (d *Depthwise) Init(rng *rand.Rand) {
	d.w.HeNormal(rng, d.kernel*d.kernel)
	d.b.Value.Zero()
}

func (d *Depthwise) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 || in[3] != d.channels {
		return nil, fmt.Errorf("%s: %w: want [N H W %d], got %v", d.name, tensor.ErrShapeMismatch, d.channels, in)
	}
	oh, _ := layer.SamePadding(in[1], d.kernel, d.stride)
	ow, _ := layer.SamePadding(in[2], d.kernel, d.stride)
	return []int{in[0], oh, ow, d.channels}, nil
}
