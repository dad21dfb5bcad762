// Package engine drives the external backup engine (xtrabackup by default).
//
// The engine is a separate process; this package builds its command lines,
// spools its combined output to a log file, and verifies the completion
// marker the engine prints on success. Nothing here interprets the backup
// payload itself.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/dbforge/xbak/pkg/plog"
)

// SuccessMarker is the line fragment xtrabackup prints when a run finished
// cleanly. A zero exit status without this marker is treated as a failure,
// the engine is known to exit 0 on some partial-write conditions.
const SuccessMarker = "completed OK!"

// LogFileName is the name of the spooled engine output inside the artifact
// directory. The prepare step spools to its own file so it never clobbers
// the backup run's transcript.
const (
	LogFileName        = "xbak.engine.log"
	PrepareLogFileName = "xbak.engine.prepare.log"
)

// ErrNotInstalled is returned when the engine binary cannot be found on PATH.
var ErrNotInstalled = errors.New("backup engine binary not found")

// InvocationError reports a failed engine run. LogPath points at the spooled
// engine output so callers can surface its tail.
type InvocationError struct {
	Op      string
	LogPath string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("engine %s invocation failed: %v (engine log: %s)", e.Op, e.Err, e.LogPath)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Params describes one engine invocation.
type Params struct {
	Binary   string
	Host     string
	Port     int
	User     string
	Password string
	// Parallel is the engine worker thread count. Zero lets the engine decide.
	Parallel int
	// TargetDir is the artifact directory the engine writes into. It is
	// created by the adapter if missing.
	TargetDir string
	// BaseDir is the directory an incremental run delta-encodes against.
	// Ignored for full runs.
	BaseDir string
}

// Adapter is the boundary to the external backup engine. Implementations run
// one engine process per call and block until it exits or ctx is canceled.
type Adapter interface {
	RunFull(ctx context.Context, p Params) (Result, error)
	RunIncremental(ctx context.Context, p Params) (Result, error)
	ApplyLog(ctx context.Context, p Params) (Result, error)
}

// Result describes a finished engine run.
type Result struct {
	// ArtifactPath is the directory the engine wrote the backup set into.
	ArtifactPath string
	// LogPath is the spooled engine output, living inside ArtifactPath.
	LogPath string
}

// XtraBackup is the Adapter for Percona XtraBackup and compatible engines
// (mariabackup accepts the same flags used here).
type XtraBackup struct {
	// commandContext allows mocking os/exec for testing engine runs.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewXtraBackup creates an XtraBackup adapter. Pass exec.CommandContext for
// production use.
func NewXtraBackup(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *XtraBackup {
	return &XtraBackup{
		commandContext: commandContext,
	}
}

var _ Adapter = (*XtraBackup)(nil)

// CheckInstalled verifies the engine binary is resolvable on PATH.
func CheckInstalled(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrNotInstalled, binary, err)
	}
	return nil
}

// RunFull takes a full backup into p.TargetDir.
func (x *XtraBackup) RunFull(ctx context.Context, p Params) (Result, error) {
	args := x.connectionArgs(p)
	args = append(args, "--backup", "--target-dir="+p.TargetDir)
	return x.run(ctx, "full", p, args)
}

// RunIncremental takes an incremental backup into p.TargetDir, delta-encoded
// against p.BaseDir.
func (x *XtraBackup) RunIncremental(ctx context.Context, p Params) (Result, error) {
	if p.BaseDir == "" {
		return Result{}, fmt.Errorf("incremental run requires a base directory")
	}
	args := x.connectionArgs(p)
	args = append(args, "--backup", "--target-dir="+p.TargetDir, "--incremental-basedir="+p.BaseDir)
	return x.run(ctx, "incremental", p, args)
}

// ApplyLog prepares the backup set in p.TargetDir so it is consistent and
// directly restorable. Only meaningful after a full backup; preparing a chain
// base would break later incrementals.
func (x *XtraBackup) ApplyLog(ctx context.Context, p Params) (Result, error) {
	args := []string{"--prepare", "--target-dir=" + p.TargetDir}
	return x.run(ctx, "prepare", p, args)
}

// connectionArgs builds the database connection flags shared by backup runs.
func (x *XtraBackup) connectionArgs(p Params) []string {
	args := []string{
		"--host=" + p.Host,
		"--port=" + strconv.Itoa(p.Port),
		"--user=" + p.User,
	}
	if p.Password != "" {
		args = append(args, "--password="+p.Password)
	}
	if p.Parallel > 0 {
		args = append(args, "--parallel="+strconv.Itoa(p.Parallel))
	}
	return args
}

// run executes one engine process, spooling combined output into the artifact
// directory and checking the completion marker afterwards.
func (x *XtraBackup) run(ctx context.Context, op string, p Params, args []string) (Result, error) {
	if err := os.MkdirAll(p.TargetDir, 0755); err != nil {
		return Result{}, fmt.Errorf("could not create engine target directory %s: %w", p.TargetDir, err)
	}

	logName := LogFileName
	if op == "prepare" {
		logName = PrepareLogFileName
	}
	logPath := filepath.Join(p.TargetDir, logName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return Result{}, fmt.Errorf("could not create engine log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	plog.Info("Starting engine run", "op", op, "binary", p.Binary, "targetDir", p.TargetDir)
	plog.Debug("Engine arguments", "args", redactArgs(args))

	cmd := x.createCommand(ctx, p.Binary, args...)
	// xtrabackup writes its progress to stderr; capture both streams in order.
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	runErr := cmd.Run()
	if closeErr := logFile.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}

	if runErr != nil {
		// Check if the context was canceled, which can cause cmd.Wait() to
		// return an error. If so, return the context's error to be more specific.
		if ctx.Err() != nil {
			return Result{LogPath: logPath}, ctx.Err()
		}
		return Result{LogPath: logPath}, &InvocationError{Op: op, LogPath: logPath, Err: runErr}
	}

	ok, err := logContainsMarker(logPath)
	if err != nil {
		return Result{LogPath: logPath}, &InvocationError{Op: op, LogPath: logPath, Err: err}
	}
	if !ok {
		return Result{LogPath: logPath}, &InvocationError{
			Op:      op,
			LogPath: logPath,
			Err:     fmt.Errorf("engine exited cleanly but did not report %q", SuccessMarker),
		}
	}

	plog.Info("Engine run completed", "op", op, "targetDir", p.TargetDir)
	return Result{ArtifactPath: p.TargetDir, LogPath: logPath}, nil
}

// logContainsMarker scans the spooled engine log for the completion marker.
func logContainsMarker(logPath string) (bool, error) {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return false, fmt.Errorf("could not read engine log: %w", err)
	}
	return bytes.Contains(data, []byte(SuccessMarker)), nil
}

// LogTail returns up to maxBytes from the end of the engine log, for
// surfacing failure context in notifications.
func LogTail(logPath string, maxBytes int) string {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ""
	}
	if len(data) > maxBytes {
		data = data[len(data)-maxBytes:]
	}
	return string(data)
}

// redactArgs masks the password flag before logging.
func redactArgs(args []string) []string {
	redacted := make([]string, len(args))
	for i, arg := range args {
		if len(arg) > len("--password=") && arg[:len("--password=")] == "--password=" {
			redacted[i] = "--password=***"
			continue
		}
		redacted[i] = arg
	}
	return redacted
}
