package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbforge/xbak/pkg/buildinfo"
	"github.com/dbforge/xbak/pkg/config"
	"github.com/dbforge/xbak/pkg/plog"
	"github.com/dbforge/xbak/pkg/preflight"
)

// RunInit writes a configuration file into the destination root so later
// backup runs pick it up without flags.
func RunInit(ctx context.Context, flagMap map[string]interface{}) error {
	dest, err := resolveDestination(flagMap)
	if err != nil {
		return err
	}

	runConfig := config.MergeConfigWithFlags(config.NewDefault(), flagMap)
	runConfig.Destination = dest
	if err := runConfig.Validate(); err != nil {
		return err
	}

	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	// Creating the tree here means the very first backup run starts against
	// a valid destination.
	if err := preflight.CheckDestination(ctx, runConfig.FullRoot(), runConfig.IncrRoot()); err != nil {
		return err
	}

	configPath := filepath.Join(dest, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		force := false
		if f, ok := flagMap["force"]; ok {
			force = f.(bool)
		}
		if !force {
			return fmt.Errorf("configuration file %s already exists, use -force to overwrite", configPath)
		}
	}

	if err := runConfig.Write(); err != nil {
		return err
	}

	plog.Info(buildinfo.Name+" destination initialized.", "path", dest, "config", configPath)
	return nil
}
