// Package blazeblock implements the BlazeBlock: a 5x5 depthwise convolution
// followed by a 1x1 projection, added to a (pooled, zero channel padded)
// shortcut and passed through ReLU.
package blazeblock

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/layer/activation"
	"github.com/neurlang/blazepose/layer/conv2d"
	"github.com/neurlang/blazepose/layer/depthwise"
	"github.com/neurlang/blazepose/layer/maxpool2d"
	"github.com/neurlang/blazepose/tensor"
)

// Kernel is the depthwise kernel size.
const Kernel = 5

// BlazeBlock is a residual depthwise-separable block
type BlazeBlock struct {
	name            string
	in, out, stride int

	dw   *depthwise.Depthwise
	pw   *conv2d.Conv2D
	pool *maxpool2d.MaxPool2D

	y         *tensor.Tensor
	skipShape []int
}

// MustNew creates a new BlazeBlock
func MustNew(name string, in, out, stride int) *BlazeBlock {
	o, err := New(name, in, out, stride)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new BlazeBlock. The block may widen but never narrow channels.
func New(name string, in, out, stride int) (*BlazeBlock, error) {
	if out < in {
		return nil, fmt.Errorf("New BlazeBlock: Out channels %d lower than In channels %d", out, in)
	}
	if stride != 1 && stride != 2 {
		return nil, fmt.Errorf("New BlazeBlock: Stride %d is not 1 or 2", stride)
	}
	dw, err := depthwise.New(name+"/dw", Kernel, stride, in)
	if err != nil {
		return nil, err
	}
	pw, err := conv2d.New(name+"/pw", 1, 1, in, out)
	if err != nil {
		return nil, err
	}
	b := &BlazeBlock{name: name, in: in, out: out, stride: stride, dw: dw, pw: pw}
	if stride == 2 {
		b.pool = maxpool2d.MustNew(name+"/pool", 2)
	}
	return b, nil
}

func (b *BlazeBlock) Name() string { return b.name }

func (b *BlazeBlock) Params() []*layer.Param {
	return append(b.dw.Params(), b.pw.Params()...)
}

func (b *BlazeBlock) Init(rng *rand.Rand) {
	b.dw.Init(rng)
	b.pw.Init(rng)
}

func (b *BlazeBlock) OutputShape(in []int) ([]int, error) {
	s, err := b.dw.OutputShape(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return b.pw.OutputShape(s)
}

func (b *BlazeBlock) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	main, err := b.dw.Forward(x, training)
	if err != nil {
		return nil, err
	}
	main, err = b.pw.Forward(main, training)
	if err != nil {
		return nil, err
	}
	skip := x
	if b.pool != nil {
		if skip, err = b.pool.Forward(x, training); err != nil {
			return nil, err
		}
	}
	if skip.Shape[1] != main.Shape[1] || skip.Shape[2] != main.Shape[2] {
		return nil, fmt.Errorf("%s: %w: shortcut %v, main %v", b.name, tensor.ErrShapeMismatch, skip.Shape, main.Shape)
	}

	y := main
	pixels := y.Len() / b.out
	for p := 0; p < pixels; p++ {
		out := y.Data[p*b.out : (p+1)*b.out]
		for c, v := range skip.Data[p*b.in : (p+1)*b.in] {
			out[c] += v
		}
		for c, v := range out {
			if v < 0 {
				out[c] = 0
			}
		}
	}

	if training {
		b.y = y
		b.skipShape = append([]int(nil), skip.Shape...)
	}
	return y, nil
}

func (b *BlazeBlock) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if b.y == nil {
		return nil, fmt.Errorf("%s: backward without training forward", b.name)
	}
	if err := layer.CheckShape(b.name, dy, b.y.Shape); err != nil {
		return nil, err
	}
	g := activation.Mask(dy, b.y)

	dmain, err := b.pw.Backward(g)
	if err != nil {
		return nil, err
	}
	dx, err := b.dw.Backward(dmain)
	if err != nil {
		return nil, err
	}

	dskip := tensor.New(b.skipShape...)
	pixels := g.Len() / b.out
	for p := 0; p < pixels; p++ {
		copy(dskip.Data[p*b.in:(p+1)*b.in], g.Data[p*b.out:p*b.out+b.in])
	}
	if b.pool != nil {
		if dskip, err = b.pool.Backward(dskip); err != nil {
			return nil, err
		}
	}
	if err := dx.AddInPlace(dskip); err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return dx, nil
}
