package depthwise

import (
	"testing"

	"github.com/neurlang/blazepose/layer/layertest"
	"github.com/neurlang/blazepose/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthwise_ChannelsIndependent(t *testing.T) {
	d := MustNew("dw", 1, 1, 2)
	d.w.Value.Data[0] = 2
	d.w.Value.Data[1] = -1
	x, _ := tensor.FromData([]float32{1, 10, 3, 30}, 1, 1, 2, 2)
	y, err := d.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, -10, 6, -30}, y.Data)
}

func TestDepthwise_Gradients(t *testing.T) {
	layertest.GradCheck(t, MustNew("dw5", 5, 1, 3), []int{2, 6, 5, 3}, layertest.Options{Seed: 4})
	layertest.GradCheck(t, MustNew("dw5s2", 5, 2, 2), []int{1, 8, 7, 2}, layertest.Options{Seed: 5})
}
