// Package upsample implements nearest-neighbour 2D upsampling
package upsample

import (
	"fmt"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

// Upsample repeats every pixel factor×factor times.
type Upsample struct {
	name   string
	factor int

	inShape []int
}

// New creates a new Upsample layer
func New(name string, factor int) *Upsample {
	if factor < 1 {
		factor = 1
	}
	return &Upsample{name: name, factor: factor}
}

func (u *Upsample) Name() string { return u.name }

func (u *Upsample) Params() []*layer.Param { return nil }

func (u *Upsample) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 {
		return nil, fmt.Errorf("%s: %w: want [N H W C], got %v", u.name, tensor.ErrShapeMismatch, in)
	}
	return []int{in[0], in[1] * u.factor, in[2] * u.factor, in[3]}, nil
}

func (u *Upsample) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	shape, err := u.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	h, w, c := x.Shape[1], x.Shape[2], x.Shape[3]
	oh, ow := shape[1], shape[2]
	y := tensor.New(shape...)
	parallel.ForEach(shape[0]*oh, layer.Threads, func(r int) {
		b, oy := r/oh, r%oh
		iy := oy / u.factor
		for ox := 0; ox < ow; ox++ {
			ix := ox / u.factor
			copy(y.Data[((b*oh+oy)*ow+ox)*c:((b*oh+oy)*ow+ox+1)*c], x.Data[((b*h+iy)*w+ix)*c:((b*h+iy)*w+ix+1)*c])
		}
	})
	if training {
		u.inShape = append([]int(nil), x.Shape...)
	}
	return y, nil
}

func (u *Upsample) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if u.inShape == nil {
		return nil, fmt.Errorf("%s: backward without training forward", u.name)
	}
	want, _ := u.OutputShape(u.inShape)
	if err := layer.CheckShape(u.name, dy, want); err != nil {
		return nil, err
	}
	n, h, w, c := u.inShape[0], u.inShape[1], u.inShape[2], u.inShape[3]
	oh, ow := want[1], want[2]
	dx := tensor.New(u.inShape...)
	parallel.ForEach(n*h, layer.Threads, func(r int) {
		b, iy := r/h, r%h
		for ix := 0; ix < w; ix++ {
			out := dx.Data[((b*h+iy)*w+ix)*c : ((b*h+iy)*w+ix+1)*c]
			for dy2 := 0; dy2 < u.factor; dy2++ {
				for dx2 := 0; dx2 < u.factor; dx2++ {
					oy, ox := iy*u.factor+dy2, ix*u.factor+dx2
					g := dy.Data[((b*oh+oy)*ow+ox)*c:]
					for ch := range out {
						out[ch] += g[ch]
					}
				}
			}
		}
	})
	return dx, nil
}
