package learning

import (
	"math"
	"sync"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
)

// Optimizer updates parameters from their gradients.
type Optimizer interface {
	Step(params []*layer.Param)
}

// Adam is the Adam optimizer with bias correction.
type Adam struct {
	h HyperParameters

	mut  sync.Mutex
	step int
	m, v map[*layer.Param][]float32
}

// NewAdam creates an Adam optimizer
func NewAdam(h HyperParameters) *Adam {
	h.Defaults()
	return &Adam{
		h: h,
		m: make(map[*layer.Param][]float32),
		v: make(map[*layer.Param][]float32),
	}
}

// LearningRate reports the configured step size
func (a *Adam) LearningRate() float64 {
	return a.h.LearningRate
}

// Step applies one update to every parameter that is not frozen.
func (a *Adam) Step(params []*layer.Param) {
	a.mut.Lock()
	a.step++
	t := float64(a.step)
	trainable := make([]*layer.Param, 0, len(params))
	moments := make([][2][]float32, 0, len(params))
	for _, p := range params {
		if p.Frozen {
			continue
		}
		m, ok := a.m[p]
		if !ok {
			m = make([]float32, p.Value.Len())
			a.m[p] = m
			a.v[p] = make([]float32, p.Value.Len())
		}
		trainable = append(trainable, p)
		moments = append(moments, [2][]float32{m, a.v[p]})
	}
	a.mut.Unlock()

	b1, b2 := a.h.Beta1, a.h.Beta2
	lr := a.h.LearningRate * math.Sqrt(1-math.Pow(b2, t)) / (1 - math.Pow(b1, t))
	eps := a.h.Epsilon

	parallel.ForEach(len(trainable), a.h.Threads, func(i int) {
		p, m, v := trainable[i], moments[i][0], moments[i][1]
		for j, g := range p.Grad.Data {
			gf := float64(g)
			mj := b1*float64(m[j]) + (1-b1)*gf
			vj := b2*float64(v[j]) + (1-b2)*gf*gf
			m[j], v[j] = float32(mj), float32(vj)
			p.Value.Data[j] -= float32(lr * mj / (math.Sqrt(vj) + eps))
		}
	})
}
