package blazeblock

import (
	"testing"

	"github.com/neurlang/blazepose/layer/layertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Invalid(t *testing.T) {
	_, err := New("b", 8, 4, 1)
	assert.Error(t, err)
	_, err = New("b", 4, 8, 3)
	assert.Error(t, err)
}

func TestBlazeBlock_OutputShape(t *testing.T) {
	shape, err := MustNew("b", 4, 8, 2).OutputShape([]int{2, 16, 12, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8, 6, 8}, shape)
}

func TestBlazeBlock_Params(t *testing.T) {
	names := []string{}
	for _, p := range MustNew("b", 2, 3, 1).Params() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"b/dw/depthwise_kernel", "b/dw/bias", "b/pw/kernel", "b/pw/bias"}, names)
}

func TestBlazeBlock_Gradients(t *testing.T) {
	layertest.GradCheck(t, MustNew("same", 3, 3, 1), []int{1, 6, 5, 3}, layertest.Options{Seed: 11, Epsilon: 1e-3, Mismatches: 2})
	layertest.GradCheck(t, MustNew("down", 2, 4, 2), []int{2, 6, 6, 2}, layertest.Options{Seed: 12, Epsilon: 1e-3, Mismatches: 2})
}
