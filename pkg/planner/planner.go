// Package planner decides whether a run takes a full or an incremental backup.
//
// The decision is a pure function over the current time, the chain state
// reported by the chain package, and the run parameters. All filesystem and
// engine concerns live elsewhere, which keeps the rule unit-testable by just
// varying timestamps and flags.
package planner

import (
	"path/filepath"
	"time"

	"github.com/dbforge/xbak/pkg/chain"
)

// SkewTolerance absorbs clock and measurement slack when comparing the age of
// the newest full backup against its configured lifetime. Without it, a run
// scheduled exactly at the lifetime boundary would flip between full and
// incremental depending on scheduler jitter.
const SkewTolerance = 5 * time.Second

// Plan describes the decision for one run.
type Plan struct {
	Kind Kind
	// TargetDir is where the engine writes the new backup set: the full root
	// for full backups, the chain directory of the newest full backup for
	// incrementals. The engine names the artifact itself.
	TargetDir string
	// BaseDir is the directory the incremental is computed against.
	// Empty for full backups.
	BaseDir string
}

// Params carries the configuration the decision depends on.
type Params struct {
	ForceFull bool
	// FullLife is how long the newest full backup remains the base for new
	// incrementals.
	FullLife time.Duration
	FullRoot string
	IncrRoot string
}

// Decide computes the plan for the current run.
//
// An incremental is chosen only when a full backup exists, no full backup was
// forced, and the newest full backup's age is within its lifetime (plus skew
// tolerance). Force-full wins unconditionally, even over an in-progress
// incremental chain.
func Decide(now time.Time, state chain.State, p Params) Plan {
	if !state.HasFull() || p.ForceFull {
		return Plan{Kind: Full, TargetDir: p.FullRoot}
	}

	age := state.LatestFull.ID.Age(now)
	if age > p.FullLife+SkewTolerance {
		return Plan{Kind: Full, TargetDir: p.FullRoot}
	}

	return Plan{
		Kind:      Incremental,
		TargetDir: filepath.Join(p.IncrRoot, state.LatestFull.ID.String()),
		BaseDir:   state.BaseDir(),
	}
}
