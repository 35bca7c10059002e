//go:build cuda

package device

import "gorgonia.org/cu"

func gpus() ([]GPU, int, error) {
	devices, err := cu.NumDevices()
	if err != nil {
		return nil, 0, err
	}
	var list []GPU
	for d := 0; d < devices; d++ {
		dev := cu.Device(d)
		name, err := dev.Name()
		if err != nil {
			return nil, 0, err
		}
		mem, _ := dev.TotalMem()
		cr, _ := dev.Attribute(cu.ClockRate)
		major, _ := dev.Attribute(cu.ComputeCapabilityMajor)
		minor, _ := dev.Attribute(cu.ComputeCapabilityMinor)
		list = append(list, GPU{
			Index:        d,
			Name:         name,
			TotalMem:     int64(mem),
			ClockRateKHz: cr,
			ComputeMajor: major,
			ComputeMinor: minor,
		})
	}
	return list, cu.Version(), nil
}
