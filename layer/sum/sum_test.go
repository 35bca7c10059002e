package sum

import (
	"testing"

	"github.com/neurlang/blazepose/layer/layertest"
	"github.com/neurlang/blazepose/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_Mean(t *testing.T) {
	x, _ := tensor.FromData([]float32{1, 10, 2, 20, 3, 30, 4, 40}, 1, 2, 2, 2)
	y, err := New("gap").Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, y.Shape)
	assert.Equal(t, []float32{2.5, 25}, y.Data)
}

func TestSum_Gradients(t *testing.T) {
	layertest.GradCheck(t, New("gap"), []int{2, 3, 2, 4}, layertest.Options{Seed: 7})
}
