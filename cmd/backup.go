package cmd

import (
	"context"
	"time"

	"github.com/dbforge/xbak/pkg/buildinfo"
	"github.com/dbforge/xbak/pkg/plog"
)

// RunBackup handles the logic for the backup command.
func RunBackup(ctx context.Context, flagMap map[string]interface{}) error {
	runConfig, err := loadRunConfig(flagMap)
	if err != nil {
		return err
	}

	runConfig.LogSummary()

	runner := buildRunner(runConfig)

	startTime := time.Now()
	err = runner.ExecuteBackup(ctx)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	plog.Info(buildinfo.Name+" backup finished successfully.", "duration", duration)
	return nil
}
