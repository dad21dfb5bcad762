package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dbforge/xbak/cmd"
	"github.com/dbforge/xbak/pkg/buildinfo"
	"github.com/dbforge/xbak/pkg/exitcode"
	"github.com/dbforge/xbak/pkg/flagparse"
	"github.com/dbforge/xbak/pkg/plog"
)

// run encapsulates the main application logic and returns an error if
// something goes wrong, allowing main to translate it into an exit status.
func run(ctx context.Context) error {
	command, flagMap, err := flagparse.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	switch command {
	case flagparse.Backup:
		plog.Info("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid())
		return cmd.RunBackup(ctx, flagMap)
	case flagparse.Prune:
		plog.Info("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid())
		return cmd.RunPrune(ctx, flagMap)
	case flagparse.Init:
		return cmd.RunInit(ctx, flagMap)
	case flagparse.Version:
		return cmd.RunVersion()
	case flagparse.None:
		return nil // Help was printed.
	default:
		return fmt.Errorf("internal error: unknown command %s", command)
	}
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	// The engine adapter kills the whole engine process group on cancel, so a
	// Ctrl+C never leaves a half-running xtrabackup behind.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		plog.Warn("Interrupt received, shutting down")
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(exitcode.FromError(err))
	}
}
