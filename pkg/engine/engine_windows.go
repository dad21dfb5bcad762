//go:build windows

package engine

import (
	"context"
	"os/exec"

	"golang.org/x/sys/windows"
)

// createCommand creates an exec.Cmd for an engine run on Windows.
func (x *XtraBackup) createCommand(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := x.commandContext(ctx, name, arg...)
	// On Windows, create a new process group to ensure that when the context is
	// canceled, the entire process tree is terminated, not just the parent
	// engine process.
	cmd.SysProcAttr = &windows.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
	return cmd
}
