// Package retention implements the logic for cleaning up expired backup
// generations.
//
// A generation is one full backup together with every incremental chained off
// it. Generations are only ever deleted whole; dropping a full backup while
// its incrementals remain (or vice versa) would leave artifacts that can
// never be restored. The incremental subtree is removed before the full
// backup, so an interrupted sweep leaves the generation eligible for the next
// sweep instead of orphaning its incrementals.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbforge/xbak/pkg/backupid"
	"github.com/dbforge/xbak/pkg/chain"
	"github.com/dbforge/xbak/pkg/notify"
	"github.com/dbforge/xbak/pkg/plog"
)

// Window describes when a generation expires.
type Window struct {
	// FullLife is the lifetime of one full backup as the base for incrementals.
	FullLife time.Duration
	// KeepGenerations is how many expired generations to retain beyond the
	// active one.
	KeepGenerations int
}

// Cutoff is the age past which a generation is deleted. The active generation
// accrues up to one FullLife of age before rotation, so keeping N generations
// means tolerating N+1 lifetimes.
func (w Window) Cutoff() time.Duration {
	return w.FullLife * time.Duration(w.KeepGenerations+1)
}

// Params configures a Pruner.
type Params struct {
	FullRoot string
	IncrRoot string
	Window   Window
	DryRun   bool
	// DeleteWorkers bounds how many generations are removed concurrently.
	// Values below 1 mean sequential deletion.
	DeleteWorkers int
	Notifier      notify.Notifier
	Metrics       Metrics
}

// Pruner deletes expired backup generations.
type Pruner struct {
	p Params
}

// NewPruner creates a Pruner. A nil Notifier or Metrics is replaced with a
// no-op implementation.
func NewPruner(p Params) *Pruner {
	if p.Notifier == nil {
		p.Notifier = notify.LogNotifier{}
	}
	if p.Metrics == nil {
		p.Metrics = &NoopMetrics{}
	}
	if p.DeleteWorkers < 1 {
		p.DeleteWorkers = 1
	}
	return &Pruner{p: p}
}

// Sweep deletes every generation older than the window's cutoff and returns
// the IDs of the generations it removed.
//
// Deletion is best effort per generation: a failed removal is counted and
// reported, but does not stop the sweep. Running Sweep twice in a row is
// harmless, the second pass finds nothing left to delete.
func (pr *Pruner) Sweep(ctx context.Context, now time.Time) ([]backupid.ID, error) {
	fulls, err := chain.Fulls(pr.p.FullRoot)
	if err != nil {
		return nil, fmt.Errorf("retention sweep failed: %w", err)
	}
	if len(fulls) == 0 {
		plog.Debug("No full backups found, nothing to prune")
		return nil, nil
	}

	cutoff := pr.p.Window.Cutoff()
	var expired []chain.BackupSet
	for _, full := range fulls {
		if full.ID.Age(now) > cutoff {
			expired = append(expired, full)
		}
	}
	if len(expired) == 0 {
		plog.Debug("No expired backup generations", "cutoff", cutoff.String())
		return nil, nil
	}

	plog.Info("Pruning expired backup generations", "count", len(expired), "cutoff", cutoff.String())

	deleted := make([]backupid.ID, 0, len(expired))
	results := make([]bool, len(expired))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pr.p.DeleteWorkers)
	for i, full := range expired {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = pr.deleteGeneration(full)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return deleted, err
	}

	for i, ok := range results {
		if ok {
			deleted = append(deleted, expired[i].ID)
		}
	}

	pr.p.Metrics.LogSummary("Retention sweep finished")
	return deleted, nil
}

// deleteGeneration removes one full backup and its incremental subtree.
// Reports success; failures are counted and notified, not returned.
func (pr *Pruner) deleteGeneration(full chain.BackupSet) bool {
	incrDir := filepath.Join(pr.p.IncrRoot, full.ID.String())

	if pr.p.DryRun {
		plog.Notice("[DRY RUN] Would delete backup generation", "id", full.ID.String(), "full", full.Path, "incrementals", incrDir)
		return false
	}

	plog.Notice("DELETE backup generation", "id", full.ID.String())

	if err := os.RemoveAll(incrDir); err != nil {
		plog.Warn("Failed to delete incremental directory", "path", incrDir, "error", err)
		pr.p.Metrics.AddGenerationsFailed(1)
		pr.p.Notifier.Notify(fmt.Sprintf("Retention: failed to delete incrementals of generation %s: %v", full.ID, err))
		return false
	}
	if err := os.RemoveAll(full.Path); err != nil {
		plog.Warn("Failed to delete full backup directory", "path", full.Path, "error", err)
		pr.p.Metrics.AddGenerationsFailed(1)
		pr.p.Notifier.Notify(fmt.Sprintf("Retention: failed to delete full backup of generation %s: %v", full.ID, err))
		return false
	}

	pr.p.Metrics.AddGenerationsDeleted(1)
	pr.p.Notifier.Notify(fmt.Sprintf("Retention: deleted expired backup generation %s", full.ID))
	return true
}
