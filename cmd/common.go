// Package cmd glues the parsed command line to the orchestration core: it
// loads and merges configuration, builds the collaborators, and dispatches to
// the runner.
package cmd

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbforge/xbak/pkg/config"
	"github.com/dbforge/xbak/pkg/dbcheck"
	"github.com/dbforge/xbak/pkg/engine"
	"github.com/dbforge/xbak/pkg/notify"
	"github.com/dbforge/xbak/pkg/orchestrator"
	"github.com/dbforge/xbak/pkg/plog"
	"github.com/dbforge/xbak/pkg/retention"
	"github.com/dbforge/xbak/pkg/util"
)

// resolveDestination expands and absolutizes the destination root from the
// flag map, falling back to the built-in default.
func resolveDestination(flagMap map[string]interface{}) (string, error) {
	dest, ok := flagMap["dest"].(string)
	if !ok || dest == "" {
		dest = config.NewDefault().Destination
	}

	dest, err := util.ExpandPath(dest)
	if err != nil {
		return "", fmt.Errorf("could not expand destination path: %w", err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("could not determine absolute destination path for %s: %w", dest, err)
	}
	return absDest, nil
}

// loadRunConfig assembles the effective configuration for one run: defaults,
// then the config file in the destination root, then explicit flags.
func loadRunConfig(flagMap map[string]interface{}) (config.Config, error) {
	dest, err := resolveDestination(flagMap)
	if err != nil {
		return config.Config{}, err
	}

	loaded, err := config.Load(dest)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration from destination: %w", err)
	}

	runConfig := config.MergeConfigWithFlags(loaded, flagMap)
	if err := runConfig.Validate(); err != nil {
		return config.Config{}, err
	}

	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))
	return runConfig, nil
}

// buildRunner wires the production collaborators for the given configuration.
func buildRunner(cfg config.Config) *orchestrator.Runner {
	notifier := notify.LogNotifier{}
	pruner := retention.NewPruner(retention.Params{
		FullRoot: cfg.FullRoot(),
		IncrRoot: cfg.IncrRoot(),
		Window: retention.Window{
			FullLife:        time.Duration(cfg.Retention.FullLifeSeconds) * time.Second,
			KeepGenerations: cfg.Retention.KeepGenerations,
		},
		DryRun:        cfg.Runtime.DryRun,
		DeleteWorkers: cfg.EffectiveParallel(),
		Notifier:      notifier,
		Metrics:       &retention.SweepMetrics{},
	})

	return orchestrator.NewRunner(
		cfg,
		engine.NewXtraBackup(exec.CommandContext),
		dbcheck.NewMySQLPinger("", exec.CommandContext),
		pruner,
		notifier,
	)
}

// PromptForConfirmation asks a yes/no question on stdin.
func PromptForConfirmation(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
