// Package preflight provides validation checks that run before a backup
// operation begins. The checks are designed to be idempotent, with one
// exception: missing destination directories are created, so the first run
// against a blank destination passes.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dbforge/xbak/pkg/plog"
	"github.com/dbforge/xbak/pkg/util"
)

// ErrDestinationUnusable is wrapped by all destination check failures, so
// callers can classify them without parsing messages.
var ErrDestinationUnusable = errors.New("backup destination is not usable")

// writeTestName is the probe file created and removed inside each checked
// directory.
const writeTestName = ".xbak-writetest.tmp"

// CheckDestination validates that every given directory can be created and is
// writable. The directories live on the same filesystem and the checks touch
// disk, so they run concurrently; the first failure wins.
func CheckDestination(ctx context.Context, dirs ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, dir := range dirs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return CheckDirWritable(dir)
		})
	}
	return g.Wait()
}

// CheckDirWritable ensures the directory exists (creating it if needed) and is
// writable by performing filesystem modifications.
func CheckDirWritable(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("%w: %s exists but is not a directory", ErrDestinationUnusable, dir)
	}

	if err := os.MkdirAll(dir, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrDestinationUnusable, dir, err)
	}

	// Perform a thorough write check by creating and deleting a temporary file.
	tempFile := filepath.Join(dir, writeTestName)
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("%w: directory %s is not writable: %v", ErrDestinationUnusable, dir, err)
	}
	f.Close()
	_ = os.Remove(tempFile)

	plog.Debug("Destination directory is writable", "path", dir)
	return nil
}
