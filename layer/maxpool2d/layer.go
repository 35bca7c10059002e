// Package maxpool2d implements 2D max pooling with a square window equal to its stride
package maxpool2d

import (
	"fmt"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

// MaxPool2D keeps the maximum of every size×size window. Odd edges are
// pooled over the partial window.
type MaxPool2D struct {
	name string
	size int

	inShape []int
	argmax  []int
}

// MustNew creates a new MaxPool2D layer
func MustNew(name string, size int) *MaxPool2D {
	o, err := New(name, size)
	if err != nil {
		panic(err.Error())
	}
	return o
}

// New creates a new MaxPool2D layer
func New(name string, size int) (*MaxPool2D, error) {
	if size < 1 {
		return nil, fmt.Errorf("New MaxPool2D: Size %d must be positive", size)
	}
	return &MaxPool2D{name: name, size: size}, nil
}

func (m *MaxPool2D) Name() string { return m.name }

func (m *MaxPool2D) Params() []*layer.Param { return nil }

func (m *MaxPool2D) OutputShape(in []int) ([]int, error) {
	if len(in) != 4 {
		return nil, fmt.Errorf("%s: %w: want [N H W C], got %v", m.name, tensor.ErrShapeMismatch, in)
	}
	return []int{in[0], (in[1] + m.size - 1) / m.size, (in[2] + m.size - 1) / m.size, in[3]}, nil
}

func (m *MaxPool2D) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	shape, err := m.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	n, h, w, c := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	oh, ow := shape[1], shape[2]
	y := tensor.New(shape...)
	argmax := make([]int, y.Len())

	parallel.ForEach(n*oh, layer.Threads, func(r int) {
		b, oy := r/oh, r%oh
		for ox := 0; ox < ow; ox++ {
			o := ((b*oh+oy)*ow + ox) * c
			for ch := 0; ch < c; ch++ {
				best := -1
				for dy := 0; dy < m.size; dy++ {
					iy := oy*m.size + dy
					if iy >= h {
						break
					}
					for dx := 0; dx < m.size; dx++ {
						ix := ox*m.size + dx
						if ix >= w {
							break
						}
						i := ((b*h+iy)*w+ix)*c + ch
						if best < 0 || x.Data[i] > x.Data[best] {
							best = i
						}
					}
				}
				y.Data[o+ch] = x.Data[best]
				argmax[o+ch] = best
			}
		}
	})

	if training {
		m.inShape = append([]int(nil), x.Shape...)
		m.argmax = argmax
	}
	return y, nil
}

func (m *MaxPool2D) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if m.inShape == nil {
		return nil, fmt.Errorf("%s: backward without training forward", m.name)
	}
	if dy.Len() != len(m.argmax) {
		return nil, fmt.Errorf("%s: %w: gradient %v", m.name, tensor.ErrShapeMismatch, dy.Shape)
	}
	dx := tensor.New(m.inShape...)
	for o, i := range m.argmax {
		dx.Data[i] += dy.Data[o]
	}
	return dx, nil
}
