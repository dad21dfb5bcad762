package planner_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dbforge/xbak/pkg/backupid"
	"github.com/dbforge/xbak/pkg/chain"
	"github.com/dbforge/xbak/pkg/planner"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func stateWithFull(t *testing.T, age time.Duration) chain.State {
	t.Helper()
	id := backupid.New(now.Add(-age))
	return chain.State{
		LatestFull: &chain.BackupSet{
			ID:   id,
			Path: filepath.Join("/backup/full", id.String()),
		},
	}
}

func stateWithChain(t *testing.T, fullAge, incrAge time.Duration) chain.State {
	t.Helper()
	state := stateWithFull(t, fullAge)
	incrID := backupid.New(now.Add(-incrAge))
	state.LatestIncremental = &chain.IncrementalSet{
		ID:           incrID,
		ParentFullID: state.LatestFull.ID,
		Path:         filepath.Join("/backup/incr", state.LatestFull.ID.String(), incrID.String()),
	}
	return state
}

func TestDecide(t *testing.T) {
	const fullLife = 86400 * time.Second

	tests := []struct {
		name      string
		state     chain.State
		forceFull bool
		wantKind  planner.Kind
	}{
		{
			name:     "no full backup ever",
			state:    chain.State{},
			wantKind: planner.Full,
		},
		{
			name:     "young full backup",
			state:    stateWithFull(t, time.Hour),
			wantKind: planner.Incremental,
		},
		{
			name:     "full backup older than lifetime",
			state:    stateWithFull(t, 90000*time.Second),
			wantKind: planner.Full,
		},
		{
			name:     "age exactly at lifetime stays incremental",
			state:    stateWithFull(t, fullLife),
			wantKind: planner.Incremental,
		},
		{
			name:     "age within skew tolerance stays incremental",
			state:    stateWithFull(t, fullLife+3*time.Second),
			wantKind: planner.Incremental,
		},
		{
			name:     "age just past skew tolerance goes full",
			state:    stateWithFull(t, fullLife+6*time.Second),
			wantKind: planner.Full,
		},
		{
			name:      "force full overrides young backup",
			state:     stateWithFull(t, time.Hour),
			forceFull: true,
			wantKind:  planner.Full,
		},
		{
			name:      "force full overrides in-progress chain",
			state:     stateWithChain(t, time.Hour, 30*time.Minute),
			forceFull: true,
			wantKind:  planner.Full,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planner.Decide(now, tt.state, planner.Params{
				ForceFull: tt.forceFull,
				FullLife:  fullLife,
				FullRoot:  "/backup/full",
				IncrRoot:  "/backup/incr",
			})
			if plan.Kind != tt.wantKind {
				t.Fatalf("Decide().Kind = %v, want %v", plan.Kind, tt.wantKind)
			}
			if plan.Kind == planner.Full {
				if plan.TargetDir != "/backup/full" {
					t.Errorf("full plan TargetDir = %q, want the full root", plan.TargetDir)
				}
				if plan.BaseDir != "" {
					t.Errorf("full plan BaseDir = %q, want empty", plan.BaseDir)
				}
			}
		})
	}
}

func TestDecideIncrementalTargets(t *testing.T) {
	const fullLife = 86400 * time.Second
	params := planner.Params{
		FullLife: fullLife,
		FullRoot: "/backup/full",
		IncrRoot: "/backup/incr",
	}

	t.Run("first incremental bases on the full backup", func(t *testing.T) {
		state := stateWithFull(t, time.Hour)
		plan := planner.Decide(now, state, params)
		if plan.Kind != planner.Incremental {
			t.Fatalf("Kind = %v, want incremental", plan.Kind)
		}
		wantTarget := filepath.Join("/backup/incr", state.LatestFull.ID.String())
		if plan.TargetDir != wantTarget {
			t.Errorf("TargetDir = %q, want %q", plan.TargetDir, wantTarget)
		}
		if plan.BaseDir != state.LatestFull.Path {
			t.Errorf("BaseDir = %q, want full backup path %q", plan.BaseDir, state.LatestFull.Path)
		}
	})

	t.Run("chain continues off the newest incremental", func(t *testing.T) {
		state := stateWithChain(t, time.Hour, 30*time.Minute)
		plan := planner.Decide(now, state, params)
		if plan.Kind != planner.Incremental {
			t.Fatalf("Kind = %v, want incremental", plan.Kind)
		}
		if plan.BaseDir != state.LatestIncremental.Path {
			t.Errorf("BaseDir = %q, want newest incremental path %q", plan.BaseDir, state.LatestIncremental.Path)
		}
	})
}

func TestParseKind(t *testing.T) {
	if k, err := planner.ParseKind("full"); err != nil || k != planner.Full {
		t.Errorf("ParseKind(full) = %v, %v", k, err)
	}
	if k, err := planner.ParseKind("incremental"); err != nil || k != planner.Incremental {
		t.Errorf("ParseKind(incremental) = %v, %v", k, err)
	}
	if _, err := planner.ParseKind("differential"); err == nil {
		t.Error("ParseKind should reject unknown kinds")
	}
}
