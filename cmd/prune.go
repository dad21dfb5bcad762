package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dbforge/xbak/pkg/buildinfo"
	"github.com/dbforge/xbak/pkg/plog"
)

// RunPrune handles the logic for the prune command.
func RunPrune(ctx context.Context, flagMap map[string]interface{}) error {
	dest, err := resolveDestination(flagMap)
	if err != nil {
		return err
	}

	// A prune run against a destination that never held a backup is almost
	// certainly a typo in -dest.
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return fmt.Errorf("destination path '%s' does not exist", dest)
	}

	runConfig, err := loadRunConfig(flagMap)
	if err != nil {
		return err
	}

	runConfig.LogSummary()

	force := false
	if f, ok := flagMap["force"]; ok {
		force = f.(bool)
	}

	if !runConfig.Runtime.DryRun && !force {
		fmt.Printf("This operation permanently deletes backup generations older than %d day(s) of history.\n",
			runConfig.Retention.FullLifeSeconds*(runConfig.Retention.KeepGenerations+1)/86400)
		if !PromptForConfirmation("Are you sure you want to continue?", false) {
			plog.Info(buildinfo.Name + " prune operation canceled.")
			return nil
		}
	}

	runner := buildRunner(runConfig)

	startTime := time.Now()
	err = runner.ExecutePrune(ctx)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err
	}
	plog.Info(buildinfo.Name+" prune finished successfully.", "duration", duration)
	return nil
}
