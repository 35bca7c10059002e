package main

import (
	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/experiment"
	"github.com/neurlang/blazepose/trainer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newTrainCmd(fs afero.Fs) *cobra.Command {
	var (
		confFile       string
		experimentsDir string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model as configured",
		Long: `Train a model as configured.

The experiment folder <experiments_dir>/<experiment_name> receives a copy of
the configuration file, TensorBoard logs in tb_logs/ and one checkpoint per
epoch in models/model_ep###.h5.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(fs, confFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := trainer.Lookup(cfg.Trainer); err != nil {
				return err
			}

			run, err := experiment.New(fs, experimentsDir, cfg.ExperimentName)
			if err != nil {
				return err
			}
			if err := run.CopyConfig(confFile); err != nil {
				return err
			}
			logDevices()
			log.WithFields(log.Fields{
				"experiment": run.Dir,
				"trainer":    cfg.Trainer,
				"run":        run.ID,
			}).Info("training")

			return trainer.Train(cmd.Context(), cfg, run)
		},
	}

	cmd.Flags().StringVarP(&confFile, "conf_file", "c", "config.json", "Configuration file")
	cmd.Flags().StringVarP(&experimentsDir, "experiments_dir", "e", "experiments", "Experiments dir")
	return cmd
}
