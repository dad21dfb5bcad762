// Package chain inspects the on-disk backup tree and resolves incremental
// chain state.
//
// The layout is <fullRoot>/<fullID> for full backup sets and
// <incrRoot>/<fullID>/<incrID> for the incrementals chained off one full
// backup. Directory names are backupid timestamps, so the newest entry is the
// greatest name; directories that don't parse as backup IDs are skipped.
package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dbforge/xbak/pkg/backupid"
	"github.com/dbforge/xbak/pkg/plog"
)

// BackupSet is a full backup on disk.
type BackupSet struct {
	ID   backupid.ID
	Path string
}

// IncrementalSet is an incremental backup on disk, belonging to one full backup.
type IncrementalSet struct {
	ID           backupid.ID
	ParentFullID backupid.ID
	Path         string
}

// State describes the tip of the backup tree: the newest full backup and, if
// present, the newest incremental chained off it.
type State struct {
	LatestFull        *BackupSet
	LatestIncremental *IncrementalSet
}

// HasFull reports whether any full backup exists.
func (s State) HasFull() bool {
	return s.LatestFull != nil
}

// BaseDir resolves the base directory a new incremental must be computed
// against: the newest incremental of the current chain if one exists,
// otherwise the full backup itself. Empty when no full backup exists.
func (s State) BaseDir() string {
	if s.LatestIncremental != nil {
		return s.LatestIncremental.Path
	}
	if s.LatestFull != nil {
		return s.LatestFull.Path
	}
	return ""
}

// Inspect scans the full and incremental roots and returns the chain state.
// Missing roots are treated as empty, not as errors; the first run starts
// against a blank tree.
func Inspect(fullRoot, incrRoot string) (State, error) {
	fulls, err := Fulls(fullRoot)
	if err != nil {
		return State{}, err
	}
	if len(fulls) == 0 {
		return State{}, nil
	}

	// Fulls are sorted oldest to newest.
	latestFull := fulls[len(fulls)-1]
	state := State{LatestFull: &latestFull}

	incrementals, err := Incrementals(incrRoot, latestFull.ID)
	if err != nil {
		return State{}, err
	}
	if len(incrementals) > 0 {
		latestIncr := incrementals[len(incrementals)-1]
		state.LatestIncremental = &latestIncr
	}

	return state, nil
}

// Fulls lists all full backup sets under fullRoot, sorted oldest to newest.
func Fulls(fullRoot string) ([]BackupSet, error) {
	ids, err := scanIDs(fullRoot)
	if err != nil {
		return nil, err
	}

	sets := make([]BackupSet, 0, len(ids))
	for _, id := range ids {
		sets = append(sets, BackupSet{
			ID:   id,
			Path: filepath.Join(fullRoot, id.String()),
		})
	}
	return sets, nil
}

// Incrementals lists the incremental sets belonging to the given full backup,
// sorted oldest to newest. Chain order is timestamp order.
func Incrementals(incrRoot string, fullID backupid.ID) ([]IncrementalSet, error) {
	chainDir := filepath.Join(incrRoot, fullID.String())
	ids, err := scanIDs(chainDir)
	if err != nil {
		return nil, err
	}

	sets := make([]IncrementalSet, 0, len(ids))
	for _, id := range ids {
		sets = append(sets, IncrementalSet{
			ID:           id,
			ParentFullID: fullID,
			Path:         filepath.Join(chainDir, id.String()),
		})
	}
	return sets, nil
}

// scanIDs reads the immediate subdirectories of dir and returns their parsed
// backup IDs in ascending order.
func scanIDs(dir string) ([]backupid.ID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			plog.Debug("Backup directory does not exist yet, treating as empty", "path", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory %s: %w", dir, err)
	}

	var ids []backupid.ID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := backupid.Parse(entry.Name())
		if err != nil {
			plog.Warn("Skipping directory with invalid backup name", "path", dir, "directory", entry.Name())
			continue
		}
		ids = append(ids, id)
	}

	slices.SortFunc(ids, backupid.Compare)
	return ids, nil
}
