// Package orchestrator wires the run together: lock, chain inspection,
// planning, engine invocation, log archival, and retention.
//
// The Runner holds its collaborators behind interfaces so each can be
// replaced in tests; the orchestration itself stays free of filesystem and
// process details beyond sequencing them.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dbforge/xbak/pkg/backupid"
	"github.com/dbforge/xbak/pkg/buildinfo"
	"github.com/dbforge/xbak/pkg/chain"
	"github.com/dbforge/xbak/pkg/config"
	"github.com/dbforge/xbak/pkg/dbcheck"
	"github.com/dbforge/xbak/pkg/engine"
	"github.com/dbforge/xbak/pkg/enginelog"
	"github.com/dbforge/xbak/pkg/lockfile"
	"github.com/dbforge/xbak/pkg/notify"
	"github.com/dbforge/xbak/pkg/planner"
	"github.com/dbforge/xbak/pkg/plog"
	"github.com/dbforge/xbak/pkg/preflight"
)

// logTailBytes bounds how much engine output is repeated in a failure
// notification.
const logTailBytes = 2048

// Sweeper is the retention boundary.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) ([]backupid.ID, error)
}

// Runner executes backup and prune runs against one destination.
type Runner struct {
	cfg      config.Config
	adapter  engine.Adapter
	pinger   dbcheck.Pinger
	sweeper  Sweeper
	notifier notify.Notifier

	// checkInstalled and clock are swappable for tests.
	checkInstalled func(binary string) error
	clock          func() time.Time
}

// NewRunner creates a Runner with the given collaborators.
func NewRunner(cfg config.Config, adapter engine.Adapter, pinger dbcheck.Pinger, sweeper Sweeper, notifier notify.Notifier) *Runner {
	return &Runner{
		cfg:            cfg,
		adapter:        adapter,
		pinger:         pinger,
		sweeper:        sweeper,
		notifier:       notifier,
		checkInstalled: engine.CheckInstalled,
		clock:          time.Now,
	}
}

// SetInstallChecker replaces the engine binary lookup. Intended for tests.
func (r *Runner) SetInstallChecker(check func(binary string) error) {
	r.checkInstalled = check
}

// SetClock replaces the time source. Intended for tests.
func (r *Runner) SetClock(clock func() time.Time) {
	r.clock = clock
}

// ExecuteBackup runs one backup: preflight, lock, plan, engine run, engine
// log archival, and, on success, the retention sweep. The lock is released on
// every path out, including failure and interruption.
func (r *Runner) ExecuteBackup(ctx context.Context) error {
	if err := r.prepare(ctx); err != nil {
		return err
	}

	lock, err := lockfile.Acquire(ctx, r.cfg.Destination, buildinfo.Name)
	if err != nil {
		return err
	}
	defer lock.Release()

	now := r.clock().UTC()

	state, err := chain.Inspect(r.cfg.FullRoot(), r.cfg.IncrRoot())
	if err != nil {
		return err
	}

	plan := planner.Decide(now, state, planner.Params{
		ForceFull: r.cfg.Runtime.ForceFull,
		FullLife:  time.Duration(r.cfg.Retention.FullLifeSeconds) * time.Second,
		FullRoot:  r.cfg.FullRoot(),
		IncrRoot:  r.cfg.IncrRoot(),
	})

	id := backupid.New(now)
	artifactDir := filepath.Join(plan.TargetDir, id.String())

	plog.Info("Backup plan decided", "kind", plan.Kind.String(), "target", artifactDir, "base", plan.BaseDir)

	if r.cfg.Runtime.DryRun {
		r.notifier.Notify(fmt.Sprintf("[DRY RUN] Would take %s backup into %s", plan.Kind, artifactDir))
		return nil
	}

	result, err := r.runEngine(ctx, plan, artifactDir)
	if err != nil {
		if result.LogPath != "" {
			if tail := engine.LogTail(result.LogPath, logTailBytes); tail != "" {
				r.notifier.Notify(fmt.Sprintf("Backup failed, engine output tail:\n%s", tail))
			}
		}
		r.notifier.Notify(fmt.Sprintf("Backup failed: %v", err))
		// A failed run must not leave a directory behind that the next chain
		// inspection would mistake for a valid backup set.
		if rmErr := os.RemoveAll(artifactDir); rmErr != nil {
			plog.Warn("Could not remove failed backup artifact directory", "path", artifactDir, "error", rmErr)
		}
		return err
	}

	if archivePath, err := enginelog.Archive(result.LogPath, enginelog.Format(r.cfg.Engine.LogFormat)); err != nil {
		// The backup itself succeeded; a failed log archive is not worth
		// failing the run over.
		plog.Warn("Could not archive engine log", "path", result.LogPath, "error", err)
	} else {
		plog.Debug("Engine log archived", "path", archivePath)
	}

	r.notifier.Notify(fmt.Sprintf("%s backup completed: %s", plan.Kind, result.ArtifactPath))

	deleted, err := r.sweeper.Sweep(ctx, now)
	if err != nil {
		// Same reasoning as the log archive: the backup is on disk, report
		// the cleanup problem without failing the run.
		plog.Warn("Retention sweep failed", "error", err)
		r.notifier.Notify(fmt.Sprintf("Retention sweep failed: %v", err))
		return nil
	}
	if len(deleted) > 0 {
		plog.Info("Retention sweep deleted expired generations", "count", len(deleted))
	}

	return nil
}

// ExecutePrune runs the retention sweep on its own, under the same lock a
// backup run takes.
func (r *Runner) ExecutePrune(ctx context.Context) error {
	if err := preflight.CheckDestination(ctx, r.cfg.FullRoot(), r.cfg.IncrRoot()); err != nil {
		return err
	}

	lock, err := lockfile.Acquire(ctx, r.cfg.Destination, buildinfo.Name)
	if err != nil {
		return err
	}
	defer lock.Release()

	deleted, err := r.sweeper.Sweep(ctx, r.clock().UTC())
	if err != nil {
		return err
	}

	r.notifier.Notify(fmt.Sprintf("Prune completed, %d expired generation(s) deleted", len(deleted)))
	return nil
}

// prepare runs the fail-fast checks that need no lock: destination writable,
// engine installed, database reachable.
func (r *Runner) prepare(ctx context.Context) error {
	if err := preflight.CheckDestination(ctx, r.cfg.FullRoot(), r.cfg.IncrRoot()); err != nil {
		return err
	}
	if err := r.checkInstalled(r.cfg.Engine.Binary); err != nil {
		return err
	}
	return r.pinger.Ping(ctx, dbcheck.Target{
		Host:     r.cfg.Database.Host,
		Port:     r.cfg.Database.Port,
		User:     r.cfg.Database.User,
		Password: r.cfg.Database.Password,
	})
}

// runEngine dispatches the plan to the adapter and optionally prepares a
// fresh full backup.
func (r *Runner) runEngine(ctx context.Context, plan planner.Plan, artifactDir string) (engine.Result, error) {
	params := engine.Params{
		Binary:    r.cfg.Engine.Binary,
		Host:      r.cfg.Database.Host,
		Port:      r.cfg.Database.Port,
		User:      r.cfg.Database.User,
		Password:  r.cfg.Database.Password,
		Parallel:  r.cfg.EffectiveParallel(),
		TargetDir: artifactDir,
		BaseDir:   plan.BaseDir,
	}

	var result engine.Result
	var err error
	switch plan.Kind {
	case planner.Incremental:
		result, err = r.adapter.RunIncremental(ctx, params)
	default:
		result, err = r.adapter.RunFull(ctx, params)
	}
	if err != nil {
		return result, err
	}

	// Applying the log makes a full backup directly restorable. Incremental
	// bases must stay unprepared or later deltas no longer apply.
	if plan.Kind == planner.Full && r.cfg.Runtime.ApplyLog {
		if _, err := r.adapter.ApplyLog(ctx, engine.Params{
			Binary:    r.cfg.Engine.Binary,
			Parallel:  r.cfg.EffectiveParallel(),
			TargetDir: artifactDir,
		}); err != nil {
			return result, err
		}
	}

	return result, nil
}
