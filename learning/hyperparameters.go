// Package learning implements the optimizer and losses used to fit a network
package learning

import "runtime"

// HyperParameters configure the Adam optimizer
type HyperParameters struct {
	LearningRate float64 // step size

	Beta1   float64 // decay of the first moment estimate (default: 0.9)
	Beta2   float64 // decay of the second moment estimate (default: 0.999)
	Epsilon float64 // denominator fuzz (default: 1e-7, as Keras)

	Threads int // number of goroutines updating parameters (default: runtime.NumCPU())
}

// Defaults fills unset fields.
func (h *HyperParameters) Defaults() {
	if h.LearningRate == 0 {
		h.LearningRate = 0.001
	}
	if h.Beta1 == 0 {
		h.Beta1 = 0.9
	}
	if h.Beta2 == 0 {
		h.Beta2 = 0.999
	}
	if h.Epsilon == 0 {
		h.Epsilon = 1e-7
	}
	if h.Threads <= 0 {
		h.Threads = runtime.NumCPU()
	}
}
