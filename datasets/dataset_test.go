package datasets

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/neurlang/blazepose/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countdown struct {
	left int
	err  error
}

func (c *countdown) Next() (Batch, error) {
	if c.left == 0 {
		return Batch{}, c.err
	}
	c.left--
	img := tensor.New(1, 2, 2, 3)
	img.Data[0] = float32(c.left)
	return Batch{Images: img}, nil
}

func TestPrefetch_Order(t *testing.T) {
	p := Prefetch(context.Background(), &countdown{left: 3, err: io.EOF}, 2)
	for want := 2; want >= 0; want-- {
		b, err := p.Next()
		require.NoError(t, err)
		assert.Equal(t, 1, b.Size())
		assert.Equal(t, float32(want), b.Images.Data[0])
	}
	_, err := p.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, p.Close())
}

func TestPrefetch_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	p := Prefetch(context.Background(), &countdown{left: 1, err: boom}, 1)
	_, err := p.Next()
	require.NoError(t, err)
	_, err = p.Next()
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, p.Close())
}

func TestPrefetch_CloseReportsUnseenError(t *testing.T) {
	boom := errors.New("boom")
	p := Prefetch(context.Background(), &countdown{err: boom}, 1)
	assert.ErrorIs(t, p.Close(), boom)
}

func TestPrefetch_CloseStopsInfiniteProducer(t *testing.T) {
	p := Prefetch(context.Background(), &countdown{left: -1}, 1)
	_, err := p.Next()
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestBatch_SizeOfEmpty(t *testing.T) {
	assert.Equal(t, 0, Batch{}.Size())
}
