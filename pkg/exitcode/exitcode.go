// Package exitcode maps errors to the process exit statuses scripted callers
// rely on. Cron wrappers and monitoring distinguish "another run is active"
// from "the database is down" purely by exit status, so the mapping is part
// of the tool's contract.
package exitcode

import (
	"context"
	"errors"

	"github.com/dbforge/xbak/pkg/dbcheck"
	"github.com/dbforge/xbak/pkg/engine"
	"github.com/dbforge/xbak/pkg/flagparse"
	"github.com/dbforge/xbak/pkg/lockfile"
	"github.com/dbforge/xbak/pkg/preflight"
)

const (
	OK                    = 0
	GenericFailure        = 1
	Usage                 = 2
	AlreadyRunning        = 3
	EngineNotInstalled    = 4
	DestinationUnwritable = 5
	DatabaseUnreachable   = 6
	EngineFailed          = 7
)

// FromError resolves the exit status for an error returned by a run.
// Classification uses the error chain, not messages; wrapping is fine.
func FromError(err error) int {
	if err == nil {
		return OK
	}

	var lockErr *lockfile.ErrLockActive
	var invErr *engine.InvocationError

	switch {
	case errors.Is(err, flagparse.ErrUsage):
		return Usage
	case errors.As(err, &lockErr):
		return AlreadyRunning
	case errors.Is(err, engine.ErrNotInstalled):
		return EngineNotInstalled
	case errors.Is(err, preflight.ErrDestinationUnusable):
		return DestinationUnwritable
	case errors.Is(err, dbcheck.ErrUnreachable):
		return DatabaseUnreachable
	case errors.As(err, &invErr):
		return EngineFailed
	case errors.Is(err, context.Canceled):
		// An operator interrupt is still a failed run.
		return GenericFailure
	default:
		return GenericFailure
	}
}
