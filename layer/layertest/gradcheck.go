// Package layertest checks layer gradients against central finite differences.
package layertest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/tensor"
	"github.com/stretchr/testify/require"
)

// Options tunes GradCheck.
type Options struct {
	Seed int64

	// Checks is the number of input and parameter entries compared per tensor.
	Checks int

	// Epsilon is the finite difference step.
	Epsilon float64

	// Tolerance is the absolute plus relative error allowed per entry.
	Tolerance float64

	// Mismatches is the number of entries allowed to fail, for layers with kinks (ReLU, max).
	Mismatches int
}

func (o *Options) defaults() {
	if o.Checks == 0 {
		o.Checks = 12
	}
	if o.Epsilon == 0 {
		o.Epsilon = 1e-2
	}
	if o.Tolerance == 0 {
		o.Tolerance = 3e-2
	}
}

// Random returns a tensor of N(0,1) values.
func Random(rng *rand.Rand, shape ...int) *tensor.Tensor {
	t := tensor.New(shape...)
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64())
	}
	return t
}

// GradCheck runs l forward on random input, back-propagates the gradient of
// loss = sum(y * r) for a random r and compares the input and parameter
// gradients with finite differences of the same loss.
func GradCheck(t *testing.T, l layer.Layer, inShape []int, opts Options) {
	t.Helper()
	opts.defaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	if init, ok := l.(layer.Initializer); ok {
		init.Init(rng)
	}
	for _, p := range l.Params() {
		for i := range p.Value.Data {
			p.Value.Data[i] += float32(0.1 * rng.NormFloat64())
		}
	}

	x := Random(rng, inShape...)
	y, err := l.Forward(x, true)
	require.NoError(t, err)
	wantShape, err := l.OutputShape(inShape)
	require.NoError(t, err)
	require.Equal(t, wantShape, y.Shape)

	r := Random(rng, y.Shape...)
	dx, err := l.Backward(r)
	require.NoError(t, err)
	require.Equal(t, x.Shape, dx.Shape)

	grads := make([]*tensor.Tensor, 0)
	for _, p := range l.Params() {
		grads = append(grads, p.Grad.Clone())
	}

	loss := func() float64 {
		y, err := l.Forward(x, false)
		require.NoError(t, err)
		var sum float64
		for i, v := range y.Data {
			sum += float64(v) * float64(r.Data[i])
		}
		return sum
	}

	var mismatches int
	compare := func(what string, data []float32, analytic []float32) {
		for j := 0; j < opts.Checks && j < len(data); j++ {
			i := j * len(data) / opts.Checks
			if opts.Checks > len(data) {
				i = j
			}
			orig := data[i]
			data[i] = orig + float32(opts.Epsilon)
			plus := loss()
			data[i] = orig - float32(opts.Epsilon)
			minus := loss()
			data[i] = orig
			numeric := (plus - minus) / (2 * opts.Epsilon)
			got := float64(analytic[i])
			if math.Abs(numeric-got) > opts.Tolerance*(1+math.Abs(numeric)) {
				mismatches++
				t.Logf("%s[%d]: analytic %g numeric %g", what, i, got, numeric)
			}
		}
	}

	compare("input", x.Data, dx.Data)
	for k, p := range l.Params() {
		compare(p.Name, p.Value.Data, grads[k].Data)
	}
	require.LessOrEqual(t, mismatches, opts.Mismatches, "gradient mismatches in %s", l.Name())
}
