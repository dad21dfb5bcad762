package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbforge/xbak/pkg/config"
)

func TestNewDefault(t *testing.T) {
	cfg := config.NewDefault()

	if cfg.Database.Host != "localhost" {
		t.Errorf("default host = %q, want localhost", cfg.Database.Host)
	}
	if cfg.Database.User != "root" {
		t.Errorf("default user = %q, want root", cfg.Database.User)
	}
	if cfg.Destination != "/home/.backup/mysql" {
		t.Errorf("default destination = %q", cfg.Destination)
	}
	if cfg.Retention.FullLifeSeconds != 86400 {
		t.Errorf("default fullLifeSeconds = %d, want 86400", cfg.Retention.FullLifeSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestDirectoryLayout(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Destination = "/srv/backup"

	if got := cfg.FullRoot(); got != filepath.Join("/srv/backup", "full") {
		t.Errorf("FullRoot() = %q", got)
	}
	if got := cfg.IncrRoot(); got != filepath.Join("/srv/backup", "incr") {
		t.Errorf("IncrRoot() = %q", got)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Destination != dir {
		t.Errorf("Destination = %q, want %q", cfg.Destination, dir)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("host = %q, want default", cfg.Database.Host)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `{"logLevel":"debug","database":{"host":"db1","port":3307,"user":"backup"},"retention":{"fullLifeSeconds":43200,"keepGenerations":3}}`
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Host != "db1" || cfg.Database.Port != 3307 || cfg.Database.User != "backup" {
		t.Errorf("database config not loaded: %+v", cfg.Database)
	}
	if cfg.Retention.FullLifeSeconds != 43200 || cfg.Retention.KeepGenerations != 3 {
		t.Errorf("retention config not loaded: %+v", cfg.Retention)
	}
	// The file must never relocate the tree it lives in.
	if cfg.Destination != dir {
		t.Errorf("Destination overridden by file: %q", cfg.Destination)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(dir); err == nil {
		t.Fatal("Load() should fail on corrupt config file")
	}
}

func TestMergeConfigWithFlags(t *testing.T) {
	base := config.NewDefault()

	merged := config.MergeConfigWithFlags(base, map[string]interface{}{
		"host":       "db2",
		"user":       "backup",
		"dest":       "/mnt/backup",
		"force-full": true,
		"parallel":   8,
	})

	if merged.Database.Host != "db2" {
		t.Errorf("host = %q, want db2", merged.Database.Host)
	}
	if merged.Database.User != "backup" {
		t.Errorf("user = %q, want backup", merged.Database.User)
	}
	if merged.Destination != "/mnt/backup" {
		t.Errorf("destination = %q", merged.Destination)
	}
	if !merged.Runtime.ForceFull {
		t.Error("force-full flag not applied")
	}
	if merged.Engine.Parallel != 8 {
		t.Errorf("parallel = %d, want 8", merged.Engine.Parallel)
	}
	// Untouched values keep their defaults.
	if merged.Database.Port != 3306 {
		t.Errorf("port = %d, want untouched default", merged.Database.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mod       func(*config.Config)
		errSubstr string
	}{
		{
			name: "valid",
			mod:  func(c *config.Config) {},
		},
		{
			name:      "empty destination",
			mod:       func(c *config.Config) { c.Destination = "" },
			errSubstr: "destination",
		},
		{
			name:      "port out of range",
			mod:       func(c *config.Config) { c.Database.Port = 70000 },
			errSubstr: "port",
		},
		{
			name:      "empty user",
			mod:       func(c *config.Config) { c.Database.User = "" },
			errSubstr: "user",
		},
		{
			name:      "full life too small",
			mod:       func(c *config.Config) { c.Retention.FullLifeSeconds = 10 },
			errSubstr: "fullLifeSeconds",
		},
		{
			name:      "negative generations",
			mod:       func(c *config.Config) { c.Retention.KeepGenerations = -1 },
			errSubstr: "keepGenerations",
		},
		{
			name:      "empty engine binary",
			mod:       func(c *config.Config) { c.Engine.Binary = "" },
			errSubstr: "engine binary",
		},
		{
			name:      "unknown engine log format",
			mod:       func(c *config.Config) { c.Engine.LogFormat = "lz4" },
			errSubstr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefault()
			tt.mod(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				if err != nil {
					t.Fatalf("Validate() failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.errSubstr)
			}
		})
	}
}

func TestEffectiveParallel(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Engine.Parallel = 4
	if got := cfg.EffectiveParallel(); got != 4 {
		t.Errorf("EffectiveParallel() = %d, want 4", got)
	}

	cfg.Engine.Parallel = 0
	if got := cfg.EffectiveParallel(); got < 1 {
		t.Errorf("EffectiveParallel() = %d, want processor count", got)
	}
}
