package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensor_IndexNHWC(t *testing.T) {
	x := New(2, 3, 4, 5)
	x.Set(7, 1, 2, 3, 4)
	assert.Equal(t, float32(7), x.Data[((1*3+2)*4+3)*5+4])
	assert.Equal(t, float32(7), x.At(1, 2, 3, 4))
}

func TestTensor_SampleSharesMemory(t *testing.T) {
	x := New(2, 2, 2, 1)
	s := x.Sample(1)
	s.Data[0] = 3
	assert.Equal(t, []int{2, 2, 1}, s.Shape)
	assert.Equal(t, float32(3), x.At(1, 0, 0, 0))
}

func TestFromData_ShapeMismatch(t *testing.T) {
	_, err := FromData(make([]float32, 5), 2, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestStack(t *testing.T) {
	a, _ := FromData([]float32{1, 2}, 2)
	b, _ := FromData([]float32{3, 4}, 2)
	s, err := Stack([]*Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, s.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4}, s.Data)

	c := New(3)
	_, err = Stack([]*Tensor{a, c})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAddInPlace(t *testing.T) {
	a, _ := FromData([]float32{1, 2}, 2)
	b, _ := FromData([]float32{3, 4}, 2)
	require.NoError(t, a.AddInPlace(b))
	assert.Equal(t, []float32{4, 6}, a.Data)
	assert.ErrorIs(t, a.AddInPlace(New(1, 2)), ErrShapeMismatch)
}
