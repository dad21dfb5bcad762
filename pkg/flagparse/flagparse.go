// Package flagparse turns the command line into a subcommand plus a map of
// the flags the user explicitly set. The map is merged over the config file
// by the config package, so only flags the user actually typed override it.
package flagparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbforge/xbak/pkg/buildinfo"
)

// ErrUsage is wrapped by all command-line errors. Callers map it to the
// usage exit status.
var ErrUsage = errors.New("usage error")

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this command" (nil)
// and "registered but not set by user" (non-nil pointer to zero value).
type cliFlags struct {
	// Global
	LogLevel *string
	DryRun   *bool

	// Connection
	Host     *string
	Port     *int
	User     *string
	Password *string

	// Destination and engine
	Dest            *string
	EngineBinary    *string
	Parallel        *int
	EngineLogFormat *string

	// Backup specific
	ForceFull *bool
	ApplyLog  *bool

	// Retention
	FullLifeSeconds *int
	KeepGenerations *int

	// Init specific
	Force *bool
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
	f.Dest = fs.String("dest", "", "Destination root directory for the backup tree.")
}

func registerConnectionFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Host = fs.String("host", "", "Database host to back up.")
	f.Port = fs.Int("port", 0, "Database port.")
	f.User = fs.String("user", "", "Database user for the backup engine.")
	f.Password = fs.String("password", "", "Database password. Prefer the config file over this flag.")
}

func registerBackupFlags(fs *flag.FlagSet, f *cliFlags) {
	registerConnectionFlags(fs, f)
	f.ForceFull = fs.Bool("force-full", false, "Take a full backup even if the current one is still young.")
	f.ApplyLog = fs.Bool("apply-log", false, "Prepare (apply-log) a new full backup so it is directly restorable.")
	f.EngineBinary = fs.String("engine-binary", "", "Backup engine binary, e.g. 'xtrabackup' or 'mariabackup'.")
	f.Parallel = fs.Int("parallel", 0, "Engine worker threads. 0 uses the processor count.")
	f.EngineLogFormat = fs.String("engine-log-format", "", "Compression for archived engine logs: 'none', 'gzip', or 'zstd'.")
	f.FullLifeSeconds = fs.Int("full-life-seconds", 0, "Seconds a full backup stays the base for incrementals.")
	f.KeepGenerations = fs.Int("keep-generations", 0, "Expired backup generations to keep beyond the active one.")
}

func registerPruneFlags(fs *flag.FlagSet, f *cliFlags) {
	f.FullLifeSeconds = fs.Int("full-life-seconds", 0, "Seconds a full backup stays the base for incrementals.")
	f.KeepGenerations = fs.Int("keep-generations", 0, "Expired backup generations to keep beyond the active one.")
	f.Force = fs.Bool("force", false, "Bypass the confirmation prompt.")
}

func registerInitFlags(fs *flag.FlagSet, f *cliFlags) {
	registerConnectionFlags(fs, f)
	f.EngineBinary = fs.String("engine-binary", "", "Backup engine binary, e.g. 'xtrabackup' or 'mariabackup'.")
	f.Parallel = fs.Int("parallel", 0, "Engine worker threads. 0 uses the processor count.")
	f.EngineLogFormat = fs.String("engine-log-format", "", "Compression for archived engine logs: 'none', 'gzip', or 'zstd'.")
	f.FullLifeSeconds = fs.Int("full-life-seconds", 0, "Seconds a full backup stays the base for incrementals.")
	f.KeepGenerations = fs.Int("keep-generations", 0, "Expired backup generations to keep beyond the active one.")
	f.Force = fs.Bool("force", false, "Overwrite an existing configuration file.")
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the
// command and the map of flags the user explicitly set.
func Parse(args []string) (Command, map[string]interface{}, error) {
	// If no arguments provided, print help and exit.
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, err
	}

	f := &cliFlags{}

	switch command {
	case Backup:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerBackupFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Take a full or incremental backup.", fs)
		}

		if err := parseArgs(fs, args[1:]); err != nil {
			return command, nil, err
		}
		return command, flagsToMap(fs, f), nil

	case Prune:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerPruneFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Delete expired backup generations.", fs)
		}

		if err := parseArgs(fs, args[1:]); err != nil {
			return command, nil, err
		}
		return command, flagsToMap(fs, f), nil

	case Init:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerInitFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Write a configuration file into the destination root.", fs)
		}

		if err := parseArgs(fs, args[1:]); err != nil {
			return command, nil, err
		}
		return command, flagsToMap(fs, f), nil

	case Version:
		return command, nil, nil

	default:
		return None, nil, fmt.Errorf("%w: unknown command: %s", ErrUsage, args[0])
	}
}

// parseArgs wraps FlagSet.Parse so that -help is not an error and everything
// else carries ErrUsage.
func parseArgs(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument: %s", ErrUsage, fs.Arg(0))
	}
	return nil
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) map[string]interface{} {
	// Create a map of the flags that were explicitly set by the user, along with their values.
	// This map is used to selectively override the base configuration.
	usedFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "dest", f.Dest)

	addIfUsed(flagMap, usedFlags, "host", f.Host)
	addIfUsed(flagMap, usedFlags, "port", f.Port)
	addIfUsed(flagMap, usedFlags, "user", f.User)
	addIfUsed(flagMap, usedFlags, "password", f.Password)

	addIfUsed(flagMap, usedFlags, "engine-binary", f.EngineBinary)
	addIfUsed(flagMap, usedFlags, "parallel", f.Parallel)
	addIfUsed(flagMap, usedFlags, "engine-log-format", f.EngineLogFormat)

	addIfUsed(flagMap, usedFlags, "force-full", f.ForceFull)
	addIfUsed(flagMap, usedFlags, "apply-log", f.ApplyLog)

	addIfUsed(flagMap, usedFlags, "full-life-seconds", f.FullLifeSeconds)
	addIfUsed(flagMap, usedFlags, "keep-generations", f.KeepGenerations)

	addIfUsed(flagMap, usedFlags, "force", f.Force)

	return flagMap
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "An incremental MySQL backup orchestrator.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  backup      Take a full or incremental backup\n")
	fmt.Fprintf(fs.Output(), "  prune       Delete expired backup generations\n")
	fmt.Fprintf(fs.Output(), "  init        Write a configuration file into the destination root\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, desc string, fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "An incremental MySQL backup orchestrator.\n\n")
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags]\n\n", command, execName, command)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}
