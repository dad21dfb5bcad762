// Package config defines the immutable run configuration.
//
// Configuration is assembled once per run: defaults, then the optional JSON
// config file in the destination root, then explicit command-line flags on
// top. The resulting value is threaded into each component's entry point;
// there is no process-wide mutable settings state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dbforge/xbak/pkg/buildinfo"
	"github.com/dbforge/xbak/pkg/enginelog"
	"github.com/dbforge/xbak/pkg/plog"
	"github.com/dbforge/xbak/pkg/util"
)

// ConfigFileName is the name of the optional configuration file looked up in
// the destination root.
const ConfigFileName = "xbak.config.json"

// Names of the fixed subdirectories under the destination root. The layout
// <destination>/full/<timestamp> and <destination>/incr/<fullTimestamp>/<incrTimestamp>
// is preserved for compatibility with existing backup trees.
const (
	FullDirName = "full"
	IncrDirName = "incr"
)

// DatabaseConfig describes how to reach the database server.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
}

// EngineConfig describes the external backup engine invocation.
type EngineConfig struct {
	// Binary is the backup engine executable looked up on PATH.
	Binary string `json:"binary"`
	// Parallel is the concurrency hint passed to the engine.
	// 0 means "use the processor count".
	Parallel int `json:"parallel"`
	// LogFormat selects the compression format for archived engine output:
	// 'gzip' or 'zstd'.
	LogFormat string `json:"logFormat"`
}

// RetentionConfig configures the pruning window.
type RetentionConfig struct {
	// FullLifeSeconds is how long a full backup stays the base for new
	// incrementals before the next full backup is taken.
	FullLifeSeconds int `json:"fullLifeSeconds"`
	// KeepGenerations is the number of expired generations kept around
	// beyond the active one.
	KeepGenerations int `json:"keepGenerations"`
}

// RuntimeConfig holds per-invocation switches. Never written to the config file.
type RuntimeConfig struct {
	ForceFull bool
	ApplyLog  bool
	DryRun    bool
}

// Config is the complete, immutable run configuration.
type Config struct {
	Version     string          `json:"version"`
	Destination string          `json:"-"` // Always from flag/default, never from file.
	LogLevel    string          `json:"logLevel"`
	Database    DatabaseConfig  `json:"database"`
	Engine      EngineConfig    `json:"engine"`
	Retention   RetentionConfig `json:"retention"`
	Runtime     RuntimeConfig   `json:"-"`
}

// NewDefault creates and returns a Config struct with the defaults the tool
// falls back to when no flags or config file are given.
func NewDefault() Config {
	return Config{
		Version:     buildinfo.Version,
		Destination: "/home/.backup/mysql",
		LogLevel:    "info",
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 3306,
			User: "root",
		},
		Engine: EngineConfig{
			Binary:    "xtrabackup",
			Parallel:  0, // Resolved to the processor count at invocation time.
			LogFormat: "gzip",
		},
		Retention: RetentionConfig{
			FullLifeSeconds: 86400, // One full backup per day.
			KeepGenerations: 7,     // Keep roughly a week of history.
		},
	}
}

// FullRoot returns the directory holding full backup sets.
func (c Config) FullRoot() string {
	return filepath.Join(c.Destination, FullDirName)
}

// IncrRoot returns the directory holding incremental chains, nested per full backup.
func (c Config) IncrRoot() string {
	return filepath.Join(c.Destination, IncrDirName)
}

// EffectiveParallel resolves the engine concurrency hint, substituting the
// processor count when unset.
func (c Config) EffectiveParallel() int {
	if c.Engine.Parallel > 0 {
		return c.Engine.Parallel
	}
	return runtime.NumCPU()
}

// Load reads the configuration file from the destination root if present.
// A missing file is not an error; defaults are returned instead.
func Load(destination string) (Config, error) {
	cfg := NewDefault()
	cfg.Destination = destination

	configPath := filepath.Join(destination, ConfigFileName)
	f, err := os.Open(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("could not open config file %s: %w", configPath, err)
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %s: %w. It may be corrupt", configPath, err)
	}
	// The file must never relocate the tree it lives in.
	cfg.Destination = destination
	return cfg, nil
}

// Write persists the config (minus runtime state) into the destination root.
// Permissions are user-only because the file may carry the database password.
func (c Config) Write() error {
	configPath := filepath.Join(c.Destination, ConfigFileName)
	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, jsonData, util.UserOnlyFilePerms); err != nil {
		return fmt.Errorf("could not write config file %s: %w", configPath, err)
	}
	return nil
}

// MergeConfigWithFlags applies explicitly set command-line flags over a base
// configuration. The flagMap only contains entries for flags the user set.
func MergeConfigWithFlags(base Config, flagMap map[string]interface{}) Config {
	merged := base

	if v, ok := flagMap["host"].(string); ok {
		merged.Database.Host = v
	}
	if v, ok := flagMap["port"].(int); ok {
		merged.Database.Port = v
	}
	if v, ok := flagMap["user"].(string); ok {
		merged.Database.User = v
	}
	if v, ok := flagMap["password"].(string); ok {
		merged.Database.Password = v
	}
	if v, ok := flagMap["dest"].(string); ok {
		merged.Destination = v
	}
	if v, ok := flagMap["log-level"].(string); ok {
		merged.LogLevel = v
	}
	if v, ok := flagMap["engine-binary"].(string); ok {
		merged.Engine.Binary = v
	}
	if v, ok := flagMap["parallel"].(int); ok {
		merged.Engine.Parallel = v
	}
	if v, ok := flagMap["engine-log-format"].(string); ok {
		merged.Engine.LogFormat = v
	}
	if v, ok := flagMap["full-life-seconds"].(int); ok {
		merged.Retention.FullLifeSeconds = v
	}
	if v, ok := flagMap["keep-generations"].(int); ok {
		merged.Retention.KeepGenerations = v
	}
	if v, ok := flagMap["force-full"].(bool); ok {
		merged.Runtime.ForceFull = v
	}
	if v, ok := flagMap["apply-log"].(bool); ok {
		merged.Runtime.ApplyLog = v
	}
	if v, ok := flagMap["dry-run"].(bool); ok {
		merged.Runtime.DryRun = v
	}

	return merged
}

// Validate checks the configuration for values that would make a run fail in
// confusing ways later.
func (c Config) Validate() error {
	if c.Destination == "" {
		return fmt.Errorf("destination root must not be empty")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database port out of range: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user must not be empty")
	}
	if c.Engine.Binary == "" {
		return fmt.Errorf("engine binary must not be empty")
	}
	if c.Engine.Parallel < 0 {
		return fmt.Errorf("engine parallel hint must not be negative: %d", c.Engine.Parallel)
	}
	if _, err := enginelog.ParseFormat(c.Engine.LogFormat); err != nil {
		return err
	}
	if c.Retention.FullLifeSeconds < 60 {
		return fmt.Errorf("fullLifeSeconds must be at least 60, got %d", c.Retention.FullLifeSeconds)
	}
	if c.Retention.KeepGenerations < 0 {
		return fmt.Errorf("keepGenerations must not be negative: %d", c.Retention.KeepGenerations)
	}
	return nil
}

// LogSummary logs the effective configuration at run start. The password is
// never logged.
func (c Config) LogSummary() {
	plog.Info("Configuration",
		"destination", c.Destination,
		"host", c.Database.Host,
		"port", c.Database.Port,
		"user", c.Database.User,
		"engine", c.Engine.Binary,
		"parallel", c.EffectiveParallel(),
		"fullLifeSeconds", c.Retention.FullLifeSeconds,
		"keepGenerations", c.Retention.KeepGenerations,
		"forceFull", c.Runtime.ForceFull,
		"applyLog", c.Runtime.ApplyLog,
		"dryRun", c.Runtime.DryRun,
	)
}
