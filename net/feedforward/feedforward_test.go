package feedforward

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/neurlang/blazepose/layer/activation"
	"github.com/neurlang/blazepose/layer/conv2d"
	"github.com/neurlang/blazepose/layer/full"
	"github.com/neurlang/blazepose/layer/sum"
	"github.com/neurlang/blazepose/tensor"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyNet() *FeedforwardNetwork {
	var net FeedforwardNetwork
	net.NewLayer(conv2d.MustNew("conv", 3, 2, 1, 4))
	net.NewLayer(activation.NewReLU("relu"))
	net.NewLayer(sum.New("gap"))
	net.NewLayer(full.MustNew("fc", 4, 2))
	net.Init(rand.New(rand.NewSource(1)))
	return &net
}

func TestFeedforwardNetwork_ForwardBackward(t *testing.T) {
	net := tinyNet()
	shape, err := net.OutputShape([]int{3, 8, 8, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, shape)

	x := tensor.New(3, 8, 8, 1)
	for i := range x.Data {
		x.Data[i] = float32(i%7) / 7
	}
	y, err := net.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, shape, y.Shape)

	dx, err := net.Backward(tensor.New(y.Shape...))
	require.NoError(t, err)
	assert.Equal(t, x.Shape, dx.Shape)
	assert.Len(t, net.Params(), 4)
}

func TestFeedforwardNetwork_ShapeErrorNamesLayer(t *testing.T) {
	net := tinyNet()
	_, err := net.Forward(tensor.New(1, 8, 8, 2), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "conv")
}

func TestWeights_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := tinyNet()
	require.NoError(t, src.WriteCompressedWeightsToFile(fs, "w.h5"))
	exists, _ := afero.Exists(fs, "w.h5.tmp")
	assert.False(t, exists)

	dst := tinyNet()
	dst.Init(rand.New(rand.NewSource(2)))
	require.NoError(t, dst.ReadCompressedWeightsFromFile(fs, "w.h5"))
	for i, p := range dst.Params() {
		assert.Equal(t, src.Params()[i].Value.Data, p.Value.Data, p.Name)
	}
}

func TestWeights_Mismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParams(&buf, tinyNet().Params()))

	var other FeedforwardNetwork
	other.NewLayer(conv2d.MustNew("conv", 3, 2, 1, 5))
	err := ReadParams(bytes.NewReader(buf.Bytes()), other.Params())
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	var renamed FeedforwardNetwork
	renamed.NewLayer(full.MustNew("head", 4, 2))
	err = ReadParams(bytes.NewReader(buf.Bytes()), renamed.Params())
	assert.ErrorIs(t, err, ErrMissingWeights)
}
