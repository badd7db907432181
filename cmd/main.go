package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/plsync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.app().Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrSessionInvalid), errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error("session is not usable, run `plsync auth login`", "error", err)
		case errors.Is(err, shared.ErrConflictUnresolved):
			logger.Error("rerun with --strategy append-start, append-end or overwrite")
		default:
			logger.Errorf("application error: %v", err)
		}
		os.Exit(1)
	}
}
