// Package datasets implements the batch type fed to the networks
package datasets

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/neurlang/blazepose/tensor"
	"golang.org/x/sync/errgroup"
)

// Meta describes how a sample was produced from its source image.
type Meta struct {
	ImagePath string
	Center    [2]float64
	Scale     float64
	Rotation  float64 // degrees
	Flipped   bool

	// Joints are the ground truth keypoints at heatmap resolution: x, y, visibility.
	Joints [][3]float64
}

// Batch is one step worth of training data.
type Batch struct {
	Images    *tensor.Tensor // [N, H, W, 3] in [0, 1]
	Heatmaps  *tensor.Tensor // [N, h, w, J]
	Keypoints *tensor.Tensor // [N, J*3], coordinates normalised by the input size
	Meta      []Meta         // only filled when requested
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int {
	if b.Images == nil {
		return 0
	}
	return b.Images.Batch()
}

// Iterator yields batches. Generators never end, finite iterators return io.EOF.
type Iterator interface {
	Next() (Batch, error)
}

// Prefetcher runs an iterator ahead of its consumer.
type Prefetcher struct {
	ch     chan Batch
	cancel context.CancelFunc
	g      *errgroup.Group
	once   sync.Once
	err    error

	reported bool
}

// Prefetch starts producing up to n batches in advance.
func Prefetch(ctx context.Context, it Iterator, n int) *Prefetcher {
	if n < 1 {
		n = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	p := &Prefetcher{
		ch:     make(chan Batch, n),
		cancel: cancel,
		g:      g,
	}
	g.Go(func() error {
		defer close(p.ch)
		for {
			b, err := it.Next()
			if err != nil {
				return err
			}
			select {
			case p.ch <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	return p
}

// Next returns the next prefetched batch, or the error that stopped the producer.
func (p *Prefetcher) Next() (Batch, error) {
	if b, ok := <-p.ch; ok {
		return b, nil
	}
	p.wait()
	if p.err == nil {
		return Batch{}, io.EOF
	}
	p.reported = true
	return Batch{}, p.err
}

// Close stops the producer and waits for it to exit. It returns the producer
// error unless Next already did.
func (p *Prefetcher) Close() error {
	p.cancel()
	for range p.ch {
	}
	p.wait()
	if p.reported || errors.Is(p.err, context.Canceled) || errors.Is(p.err, io.EOF) {
		return nil
	}
	return p.err
}

func (p *Prefetcher) wait() {
	p.once.Do(func() {
		p.err = p.g.Wait()
	})
}
