//go:build !windows

package engine

import (
	"context"
	"os/exec"

	"golang.org/x/sys/unix"
)

// createCommand creates an exec.Cmd for an engine run on Unix-like systems.
func (x *XtraBackup) createCommand(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := x.commandContext(ctx, name, arg...)
	// On Unix-like systems, create a new process group (PGRP) and make the command
	// the session leader. This allows sending signals to the entire process group
	// when the context is canceled, ensuring all child processes are terminated.
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	return cmd
}
