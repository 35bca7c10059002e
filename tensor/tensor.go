// Package tensor implements the dense float32 tensor passed between layers.
// Image tensors are laid out NHWC.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when two tensors (or a tensor and a shape) disagree.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// Tensor is a dense row-major float32 tensor
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, Volume(shape)),
	}
}

// FromData wraps data into a tensor without copying it.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if Volume(shape) != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Volume is the number of elements of a shape.
func Volume(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, v := range shape {
		n *= v
	}
	return n
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dims returns the rank.
func (t *Tensor) Dims() int {
	return len(t.Shape)
}

// Batch returns the leading dimension.
func (t *Tensor) Batch() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// Sample returns a view of the i-th entry along the leading dimension.
// The view shares memory with t.
func (t *Tensor) Sample(i int) *Tensor {
	inner := t.Shape[1:]
	n := Volume(inner)
	return &Tensor{Shape: append([]int(nil), inner...), Data: t.Data[i*n : (i+1)*n]}
}

// SameShape reports whether o has exactly the shape of t.
func (t *Tensor) SameShape(o *Tensor) bool {
	return EqualShape(t.Shape, o.Shape)
}

// EqualShape compares two shapes.
func EqualShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Reshape returns a view of t with a new shape of the same volume.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	return FromData(t.Data, shape...)
}

// Zero sets all elements to 0.
func (t *Tensor) Zero() {
	for i := range t.Data {
		t.Data[i] = 0
	}
}

// Clone deep copies t.
func (t *Tensor) Clone() *Tensor {
	o := New(t.Shape...)
	copy(o.Data, t.Data)
	return o
}

// Index computes the flat offset of a multi-dimensional index.
func (t *Tensor) Index(idx ...int) int {
	off := 0
	for i, v := range idx {
		off = off*t.Shape[i] + v
	}
	return off
}

// At reads the element at idx.
func (t *Tensor) At(idx ...int) float32 {
	return t.Data[t.Index(idx...)]
}

// Set writes the element at idx.
func (t *Tensor) Set(v float32, idx ...int) {
	t.Data[t.Index(idx...)] = v
}

// AddInPlace accumulates o into t.
func (t *Tensor) AddInPlace(o *Tensor) error {
	if !t.SameShape(o) {
		return fmt.Errorf("%w: %v += %v", ErrShapeMismatch, t.Shape, o.Shape)
	}
	for i, v := range o.Data {
		t.Data[i] += v
	}
	return nil
}

// Stack joins equally shaped samples along a new leading dimension.
func Stack(samples []*Tensor) (*Tensor, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShapeMismatch)
	}
	shape := append([]int{len(samples)}, samples[0].Shape...)
	o := New(shape...)
	n := samples[0].Len()
	for i, s := range samples {
		if !s.SameShape(samples[0]) {
			return nil, fmt.Errorf("%w: sample %d is %v, want %v", ErrShapeMismatch, i, s.Shape, samples[0].Shape)
		}
		copy(o.Data[i*n:], s.Data)
	}
	return o, nil
}
