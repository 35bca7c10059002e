package conv2d

import (
	"testing"

	"github.com/neurlang/blazepose/layer/layertest"
	"github.com/neurlang/blazepose/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConv2D_OutputShape(t *testing.T) {
	c := MustNew("c", 3, 2, 3, 8)
	shape, err := c.OutputShape([]int{2, 17, 16, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9, 8, 8}, shape)

	_, err = c.OutputShape([]int{2, 16, 16, 4})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestConv2D_KnownValues(t *testing.T) {
	// 3x3 ones kernel over a 3x3 ramp computes neighbourhood sums
	c := MustNew("c", 3, 1, 1, 1)
	for i := range c.w.Value.Data {
		c.w.Value.Data[i] = 1
	}
	c.b.Value.Data[0] = 0.5
	x, _ := tensor.FromData([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 3, 3, 1)
	y, err := c.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{12.5, 21.5, 16.5, 27.5, 45.5, 33.5, 24.5, 39.5, 28.5}, y.Data)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("c", 0, 1, 1, 1)
	assert.Error(t, err)
	_, err = New("c", 3, 1, 0, 1)
	assert.Error(t, err)
}

func TestConv2D_Gradients(t *testing.T) {
	layertest.GradCheck(t, MustNew("c3", 3, 1, 2, 3), []int{2, 5, 4, 2}, layertest.Options{Seed: 1})
	layertest.GradCheck(t, MustNew("c3s2", 3, 2, 3, 2), []int{1, 7, 6, 3}, layertest.Options{Seed: 2})
	layertest.GradCheck(t, MustNew("c1", 1, 1, 4, 3), []int{2, 3, 3, 4}, layertest.Options{Seed: 3})
}

func TestConv2D_BackwardWithoutForward(t *testing.T) {
	c := MustNew("c", 1, 1, 1, 1)
	_, err := c.Backward(tensor.New(1, 1, 1, 1))
	assert.Error(t, err)
}
