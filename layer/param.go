package layer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/neurlang/blazepose/tensor"
)

// Param is a trainable tensor together with its gradient.
type Param struct {
	Name   string
	Value  *tensor.Tensor
	Grad   *tensor.Tensor
	Frozen bool
}

// NewParam allocates a zeroed parameter and gradient.
func NewParam(name string, shape ...int) *Param {
	return &Param{
		Name:  name,
		Value: tensor.New(shape...),
		Grad:  tensor.New(shape...),
	}
}

// HeNormal fills the parameter with N(0, sqrt(2/fanIn)).
func (p *Param) HeNormal(rng *rand.Rand, fanIn int) {
	std := math.Sqrt(2 / float64(fanIn))
	for i := range p.Value.Data {
		p.Value.Data[i] = float32(rng.NormFloat64() * std)
	}
}

// CheckRank validates the rank of a layer input.
func CheckRank(layer string, x *tensor.Tensor, rank int) error {
	if x.Dims() != rank {
		return fmt.Errorf("%s: %w: want rank %d input, got %v", layer, tensor.ErrShapeMismatch, rank, x.Shape)
	}
	return nil
}

// CheckShape validates a gradient against the cached forward output shape.
func CheckShape(layer string, dy *tensor.Tensor, want []int) error {
	if !tensor.EqualShape(dy.Shape, want) {
		return fmt.Errorf("%s: %w: gradient %v, output %v", layer, tensor.ErrShapeMismatch, dy.Shape, want)
	}
	return nil
}

// SamePadding returns the output size and leading pad of a "same" padded
// window of size k and stride s over n inputs.
func SamePadding(n, k, s int) (out, pad int) {
	out = (n + s - 1) / s
	total := (out-1)*s + k - n
	if total < 0 {
		total = 0
	}
	return out, total / 2
}
