//go:build !windows

package lockfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive probes whether the process with the given PID exists.
// Signal 0 performs the permission and existence checks without delivering
// anything; EPERM still means the process is there, just owned by someone else.
func processAlive(pid int64) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
