package main

import (
	"fmt"
	"math"

	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/trainer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newEvalCmd(fs afero.Fs) *cobra.Command {
	var (
		confFile     string
		modelPath    string
		significance uint8
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Report loss and PCKh@0.5 of a checkpoint on the validation set",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(fs, confFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			report, err := trainer.Evaluate(cmd.Context(), fs, cfg, modelPath, trainer.EvaluateOptions{
				Significance: significance,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "samples: %d\n", report.Samples)
			fmt.Fprintf(out, "loss:    %.6f\n", report.Loss)
			if math.IsNaN(report.PCKh) {
				fmt.Fprintln(out, "PCKh:    n/a")
				return nil
			}
			fmt.Fprintf(out, "PCKh:    %.2f%%\n", 100*report.PCKh)
			for j, v := range report.PerJoint {
				if math.IsNaN(v) {
					fmt.Fprintf(out, "  joint %2d:    n/a\n", j)
					continue
				}
				fmt.Fprintf(out, "  joint %2d: %6.2f%%\n", j, 100*v)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&confFile, "conf_file", "c", "config.json", "Configuration file")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Checkpoint to evaluate")
	cmd.Flags().Uint8Var(&significance, "significance", 0, "Evaluate a statistically sufficient sample at this significance (0-100), 0 evaluates everything")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
