// Package sum implements global average pooling, summing each channel over the spatial plane
package sum

import (
	"fmt"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
)

// Sum reduces [N, H, W, C] to the per-channel mean [N, C].
type Sum struct {
	name    string
	inShape []int
}

// New creates a new global average pooling layer
func New(name string) *Sum {
	return &Sum{name: name}
}

func (s *Sum) Name() string { return s.name }

func (s *Sum) Params() []*layer.Param { return nil }

func (s *Sum) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 {
		return nil, fmt.Errorf("%s: %w: want [N H W C], got %v", s.name, tensor.ErrShapeMismatch, in)
	}
	return []int{in[0], in[3]}, nil
}

func (s *Sum) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	shape, err := s.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	n, plane, c := x.Shape[0], x.Shape[1]*x.Shape[2], x.Shape[3]
	y := tensor.New(shape...)
	inv := 1 / float32(plane)
	for b := 0; b < n; b++ {
		out := y.Data[b*c : (b+1)*c]
		for p := 0; p < plane; p++ {
			for ch, v := range x.Data[(b*plane+p)*c : (b*plane+p+1)*c] {
				out[ch] += v
			}
		}
		for ch := range out {
			out[ch] *= inv
		}
	}
	if training {
		s.inShape = append([]int(nil), x.Shape...)
	}
	return y, nil
}

func (s *Sum) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if s.inShape == nil {
		return nil, fmt.Errorf("%s: backward without training forward", s.name)
	}
	n, plane, c := s.inShape[0], s.inShape[1]*s.inShape[2], s.inShape[3]
	if err := layer.CheckShape(s.name, dy, []int{n, c}); err != nil {
		return nil, err
	}
	dx := tensor.New(s.inShape...)
	inv := 1 / float32(plane)
	for b := 0; b < n; b++ {
		g := dy.Data[b*c : (b+1)*c]
		for p := 0; p < plane; p++ {
			out := dx.Data[(b*plane+p)*c : (b*plane+p+1)*c]
			for ch := range out {
				out[ch] = g[ch] * inv
			}
		}
	}
	return dx, nil
}
