// Package activation implements element-wise activations
package activation

import (
	"fmt"
	"math"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
)

// ReLU computes max(x, 0).
type ReLU struct {
	name string
	y    *tensor.Tensor
}

// NewReLU creates a new ReLU layer
func NewReLU(name string) *ReLU {
	return &ReLU{name: name}
}

func (r *ReLU) Name() string { return r.name }

func (r *ReLU) Params() []*layer.Param { return nil }

func (r *ReLU) OutputShape(in []int) ([]int, error) {
	return append([]int(nil), in...), nil
}

func (r *ReLU) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	y := tensor.New(x.Shape...)
	for i, v := range x.Data {
		if v > 0 {
			y.Data[i] = v
		}
	}
	if training {
		r.y = y
	}
	return y, nil
}

func (r *ReLU) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if r.y == nil {
		return nil, fmt.Errorf("%s: backward without training forward", r.name)
	}
	if err := layer.CheckShape(r.name, dy, r.y.Shape); err != nil {
		return nil, err
	}
	return Mask(dy, r.y), nil
}

// Mask zeroes the gradient wherever the ReLU output was not positive.
func Mask(dy, y *tensor.Tensor) *tensor.Tensor {
	dx := tensor.New(dy.Shape...)
	for i, v := range y.Data {
		if v > 0 {
			dx.Data[i] = dy.Data[i]
		}
	}
	return dx
}

// Sigmoid maps logits to probabilities in a new tensor.
func Sigmoid(x *tensor.Tensor) *tensor.Tensor {
	y := tensor.New(x.Shape...)
	for i, v := range x.Data {
		y.Data[i] = float32(SigmoidScalar(float64(v)))
	}
	return y
}

// SigmoidScalar is the numerically stable logistic function.
func SigmoidScalar(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
