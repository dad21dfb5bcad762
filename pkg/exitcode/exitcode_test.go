package exitcode_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dbforge/xbak/pkg/dbcheck"
	"github.com/dbforge/xbak/pkg/engine"
	"github.com/dbforge/xbak/pkg/exitcode"
	"github.com/dbforge/xbak/pkg/flagparse"
	"github.com/dbforge/xbak/pkg/lockfile"
	"github.com/dbforge/xbak/pkg/preflight"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, exitcode.OK},
		{"plain error", errors.New("boom"), exitcode.GenericFailure},
		{"usage", flagparse.ErrUsage, exitcode.Usage},
		{"wrapped usage", fmt.Errorf("%w: bad flag", flagparse.ErrUsage), exitcode.Usage},
		{"lock active", &lockfile.ErrLockActive{PID: 1234, Hostname: "db1"}, exitcode.AlreadyRunning},
		{"wrapped lock active", fmt.Errorf("backup run: %w", &lockfile.ErrLockActive{PID: 1}), exitcode.AlreadyRunning},
		{"engine missing", fmt.Errorf("%w: %q", engine.ErrNotInstalled, "xtrabackup"), exitcode.EngineNotInstalled},
		{"destination unusable", fmt.Errorf("%w: no such dir", preflight.ErrDestinationUnusable), exitcode.DestinationUnwritable},
		{"database unreachable", fmt.Errorf("%w: localhost:3306", dbcheck.ErrUnreachable), exitcode.DatabaseUnreachable},
		{"engine invocation", &engine.InvocationError{Op: "full", Err: errors.New("exit status 1")}, exitcode.EngineFailed},
		{"wrapped engine invocation", fmt.Errorf("run failed: %w", &engine.InvocationError{Op: "incremental", Err: errors.New("x")}), exitcode.EngineFailed},
		{"canceled", context.Canceled, exitcode.GenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitcode.FromError(tt.err); got != tt.want {
				t.Errorf("FromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
