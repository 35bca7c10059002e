package full

import (
	"testing"

	"github.com/neurlang/blazepose/layer/layertest"
	"github.com/neurlang/blazepose/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFull_Forward(t *testing.T) {
	f := MustNew("fc", 2, 1)
	f.w.Value.Data[0] = 3
	f.w.Value.Data[1] = -2
	f.b.Value.Data[0] = 1
	x, _ := tensor.FromData([]float32{1, 1, 2, 0}, 2, 2)
	y, err := f.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 7}, y.Data)
}

func TestFull_Gradients(t *testing.T) {
	layertest.GradCheck(t, MustNew("fc", 5, 4), []int{3, 5}, layertest.Options{Seed: 6})
}
