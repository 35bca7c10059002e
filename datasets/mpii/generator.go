package mpii

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/neurlang/blazepose/datasets"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

// GeneratorOptions select the targets and augmentations of a generator.
type GeneratorOptions struct {
	Sigma    float64 // heatmap Gaussian sigma (default: 2)
	WithMeta bool
	Shuffle  bool
	Rotate   bool
	Scale    bool
	Flip     bool
	Threads  int   // concurrent image loads (default: 1)
	Seed     int64 // 0 seeds from the clock
}

// Generator cycles over a dataset forever, one batch per Next.
type Generator struct {
	d     *Dataset
	batch int
	opts  GeneratorOptions

	mut   sync.Mutex
	rng   *rand.Rand
	order []int
	pos   int
}

// Generator creates an endless batch iterator.
func (d *Dataset) Generator(batchSize int, opts GeneratorOptions) (*Generator, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("mpii: batch size %d", batchSize)
	}
	if opts.Sigma <= 0 {
		opts.Sigma = 2
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if !d.IsTrain() {
		// evaluation splits are never augmented
		opts.Rotate, opts.Scale, opts.Flip = false, false, false
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Generator{
		d:     d,
		batch: batchSize,
		opts:  opts,
		rng:   rand.New(rand.NewSource(seed)),
		order: make([]int, d.Len()),
	}
	for i := range g.order {
		g.order[i] = i
	}
	if opts.Shuffle {
		g.shuffle()
	}
	return g, nil
}

func (g *Generator) shuffle() {
	g.rng.Shuffle(len(g.order), func(i, j int) {
		g.order[i], g.order[j] = g.order[j], g.order[i]
	})
}

// Next assembles the next batch, wrapping around at the end of the dataset.
func (g *Generator) Next() (datasets.Batch, error) {
	idx := make([]int, g.batch)
	aug := make([]Augmentation, g.batch)

	g.mut.Lock()
	for i := range idx {
		if g.pos == len(g.order) {
			g.pos = 0
			if g.opts.Shuffle {
				g.shuffle()
			}
		}
		idx[i] = g.order[g.pos]
		g.pos++
		aug[i] = Draw(g.rng, g.opts.Scale, g.opts.Rotate, g.opts.Flip)
	}
	g.mut.Unlock()

	samples := make([]*Sample, g.batch)
	err := parallel.ForEachErr(g.batch, g.opts.Threads, func(i int) (err error) {
		samples[i], err = g.d.Sample(idx[i], aug[i], g.opts.Sigma)
		return err
	})
	if err != nil {
		return datasets.Batch{}, err
	}

	images := make([]*tensor.Tensor, g.batch)
	heatmaps := make([]*tensor.Tensor, g.batch)
	keypoints := make([]*tensor.Tensor, g.batch)
	for i, s := range samples {
		images[i], heatmaps[i], keypoints[i] = s.Image, s.Heatmap, s.Keypoints
	}
	var b datasets.Batch
	if b.Images, err = tensor.Stack(images); err != nil {
		return b, err
	}
	if b.Heatmaps, err = tensor.Stack(heatmaps); err != nil {
		return b, err
	}
	if b.Keypoints, err = tensor.Stack(keypoints); err != nil {
		return b, err
	}
	if g.opts.WithMeta {
		b.Meta = make([]datasets.Meta, g.batch)
		for i, s := range samples {
			b.Meta[i] = s.Meta
		}
	}
	return b, nil
}
