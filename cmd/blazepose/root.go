package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// usageError marks bad command line arguments.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usageArgs marks positional argument errors as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

// NewRootCmd creates the command tree. All file access goes through fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	var (
		logLevel  string
		logFormat string
		pgo       bool
		stopPGO   func() error
	)

	rootCmd := &cobra.Command{
		Use:     "blazepose",
		Short:   "BlazePose keypoint heatmap training",
		Version: Version,
		// unknown subcommands land here as positional arguments
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initLogger(cmd, logLevel, logFormat); err != nil {
				return &usageError{err}
			}
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return &usageError{err}
			}
			if pgo && stopPGO == nil {
				var err error
				if stopPGO, err = startPGO(fs, defaultPGO); err != nil {
					return err
				}
				cobra.OnFinalize(func() {
					if stopPGO == nil {
						return
					}
					if err := stopPGO(); err != nil {
						log.WithError(err).Error("write profile")
					}
					stopPGO = nil
				})
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text|json)")
	rootCmd.PersistentFlags().BoolVar(&pgo, "pgo", false, "Write a CPU profile to "+defaultPGO)

	rootCmd.AddCommand(newTrainCmd(fs))
	rootCmd.AddCommand(newEvalCmd(fs))
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func initLogger(cmd *cobra.Command, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(cmd.ErrOrStderr())
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
