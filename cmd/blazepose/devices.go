package main

import (
	"fmt"

	"github.com/neurlang/blazepose/device"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	var portion uint16

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the CPU and CUDA devices",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := device.Describe()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CPU       :\t%s\n", info.CPU)
			fmt.Fprintf(out, "Cores     :\t%d physical, %d logical\n", info.PhysicalCores, info.LogicalCores)
			fmt.Fprintf(out, "AVX2      :\t%v\n", info.AVX2)
			fmt.Fprintf(out, "AVX512    :\t%v\n", info.AVX512)
			fmt.Fprintf(out, "Threads   :\t%d\n", device.Threads(0))
			if info.CUDAVersion == 0 {
				fmt.Fprintln(out, "CUDA      :\tnot available")
				return nil
			}
			fmt.Fprintf(out, "CUDA      :\t%d\n", info.CUDAVersion)
			for _, g := range info.GPUs {
				fmt.Fprintf(out, "\nDevice %d\n========\nName      :\t%q\n", g.Index, g.Name)
				fmt.Fprintf(out, "Clock Rate:\t%v kHz\n", g.ClockRateKHz)
				fmt.Fprintf(out, "Memory    :\t%v bytes (budget %v)\n", g.TotalMem, g.MemoryBudget(portion))
				fmt.Fprintf(out, "Compute   :\t%d.%d\n", g.ComputeMajor, g.ComputeMinor)
			}
			return nil
		},
	}

	cmd.Flags().Uint16Var(&portion, "memory-portion", 0, "Report the memory budget for 1/N of each GPU, 0 for all of it")
	return cmd
}

// logDevices logs the hardware a run is using.
func logDevices() {
	info, err := device.Describe()
	if err != nil {
		log.WithError(err).Warn("cannot list devices")
	}
	fields := log.Fields{
		"cpu":            info.CPU,
		"physical_cores": info.PhysicalCores,
		"avx2":           info.AVX2,
		"avx512":         info.AVX512,
	}
	for _, g := range info.GPUs {
		log.WithField("gpu", g.Index).WithField("name", g.Name).Info("CUDA device available, training runs on the CPU")
	}
	log.WithFields(fields).Info("compute devices")
}
