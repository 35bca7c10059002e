// Package device reports the compute devices available for training.
package device

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// GPU is a CUDA device.
type GPU struct {
	Index        int
	Name         string
	TotalMem     int64 // bytes
	ClockRateKHz int
	ComputeMajor int
	ComputeMinor int
}

// Info describes the host.
type Info struct {
	CPU           string
	PhysicalCores int
	LogicalCores  int
	AVX2          bool
	AVX512        bool

	CUDAVersion int // 0 without CUDA support
	GPUs        []GPU
}

// Describe inspects the CPU and, when built with the cuda tag, the GPUs.
func Describe() (Info, error) {
	info := Info{
		CPU:           cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:        cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
	var err error
	info.GPUs, info.CUDAVersion, err = gpus()
	return info, err
}

// Threads returns the worker count for a requested value, 0 picks one
// goroutine per physical core.
func Threads(requested int) int {
	if requested > 0 {
		return requested
	}
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// MemoryBudget is the share of a GPU's memory a run may claim: 1/portion
// of the total, the whole device for portion 0 or 1.
func (g GPU) MemoryBudget(portion uint16) int64 {
	if portion <= 1 {
		return g.TotalMem
	}
	return g.TotalMem / int64(portion)
}
