package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// CLI exit codes.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates training or evaluation failed.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid command line arguments.
	ExitInvalidArgs = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd(afero.NewOsFs()).ExecuteContext(ctx)
	if err != nil {
		log.Error(err)
	}
	stop()
	os.Exit(exitCodeFromError(err))
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
