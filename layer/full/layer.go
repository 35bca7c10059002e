// Package full implements a fully connected layer
package full

import (
	"fmt"
	"math/rand"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

// Full maps [N, in] to [N, out] with a weight matrix and bias.
type Full struct {
	name    string
	in, out int

	w, b *layer.Param

	x *tensor.Tensor
}

// MustNew creates a new full layer with input and output size
func MustNew(name string, in, out int) *Full {
	o, err := New(name, in, out)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new full layer with input and output size
func New(name string, in, out int) (o *Full, err error) {
	if in < 1 || out < 1 {
		return nil, fmt.Errorf("New Full: Sizes %d -> %d must be positive", in, out)
	}
	o = new(Full)
	o.name = name
	o.in = in
	o.out = out
	o.w = layer.NewParam(name+"/kernel", in, out)
	o.b = layer.NewParam(name+"/bias", out)
	return
}

func (f *Full) Name() string { return f.name }

func (f *Full) Params() []*layer.Param { return []*layer.Param{f.w, f.b} }

// Init uses Glorot-like scaling, the head is linear.
func (f *Full) Init(rng *rand.Rand) {
	f.w.HeNormal(rng, f.in+f.out)
	f.b.Value.Zero()
}

func (f *Full) OutputShape(in []int) ([]int, error) {
	if len(in) != 2 || in[1] != f.in {
		return nil, fmt.Errorf("%s: %w: want [N %d], got %v", f.name, tensor.ErrShapeMismatch, f.in, in)
	}
	return []int{in[0], f.out}, nil
}

func (f *Full) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	shape, err := f.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	y := tensor.New(shape...)
	wd, bd := f.w.Value.Data, f.b.Value.Data
	parallel.ForEach(shape[0], layer.Threads, func(n int) {
		out := y.Data[n*f.out : (n+1)*f.out]
		copy(out, bd)
		for i, xv := range x.Data[n*f.in : (n+1)*f.in] {
			row := wd[i*f.out : (i+1)*f.out]
			for o, wv := range row {
				out[o] += xv * wv
			}
		}
	})
	if training {
		f.x = x
	}
	return y, nil
}

func (f *Full) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if f.x == nil {
		return nil, fmt.Errorf("%s: backward without training forward", f.name)
	}
	if err := layer.CheckShape(f.name, dy, []int{f.x.Shape[0], f.out}); err != nil {
		return nil, err
	}
	n := f.x.Shape[0]
	xd, dyd, wd := f.x.Data, dy.Data, f.w.Value.Data

	db := f.b.Grad.Data
	for o := range db {
		db[o] = 0
	}
	for s := 0; s < n; s++ {
		for o, g := range dyd[s*f.out : (s+1)*f.out] {
			db[o] += g
		}
	}

	dw := f.w.Grad.Data
	parallel.ForEach(f.in, layer.Threads, func(i int) {
		row := dw[i*f.out : (i+1)*f.out]
		for o := range row {
			row[o] = 0
		}
		for s := 0; s < n; s++ {
			xv := xd[s*f.in+i]
			for o, g := range dyd[s*f.out : (s+1)*f.out] {
				row[o] += xv * g
			}
		}
	})

	dx := tensor.New(f.x.Shape...)
	parallel.ForEach(n, layer.Threads, func(s int) {
		g := dyd[s*f.out : (s+1)*f.out]
		for i := 0; i < f.in; i++ {
			row := wd[i*f.out : (i+1)*f.out]
			var sum float32
			for o, wv := range row {
				sum += wv * g[o]
			}
			dx.Data[s*f.in+i] = sum
		}
	})
	return dx, nil
}
