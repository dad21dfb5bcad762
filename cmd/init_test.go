package cmd_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbforge/xbak/cmd"
	"github.com/dbforge/xbak/pkg/config"
)

func TestRunInitWritesConfig(t *testing.T) {
	dest := t.TempDir()

	err := cmd.RunInit(context.Background(), map[string]interface{}{
		"dest": dest,
		"host": "db1.internal",
		"port": 3307,
	})
	if err != nil {
		t.Fatalf("RunInit() failed: %v", err)
	}

	// The backup tree and config file must exist afterwards.
	for _, p := range []string{
		filepath.Join(dest, config.FullDirName),
		filepath.Join(dest, config.IncrDirName),
	} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s after init", p)
		}
	}

	loaded, err := config.Load(dest)
	if err != nil {
		t.Fatalf("Load() after init failed: %v", err)
	}
	if loaded.Database.Host != "db1.internal" || loaded.Database.Port != 3307 {
		t.Errorf("init did not persist flags: %+v", loaded.Database)
	}
}

func TestRunInitRefusesOverwriteWithoutForce(t *testing.T) {
	dest := t.TempDir()
	flagMap := map[string]interface{}{"dest": dest}

	if err := cmd.RunInit(context.Background(), flagMap); err != nil {
		t.Fatalf("first RunInit() failed: %v", err)
	}

	if err := cmd.RunInit(context.Background(), flagMap); err == nil {
		t.Fatal("second RunInit() without -force should fail")
	}

	flagMap["force"] = true
	if err := cmd.RunInit(context.Background(), flagMap); err != nil {
		t.Fatalf("RunInit() with -force failed: %v", err)
	}
}

func TestRunInitRejectsInvalidConfig(t *testing.T) {
	err := cmd.RunInit(context.Background(), map[string]interface{}{
		"dest": t.TempDir(),
		"port": 70000,
	})
	if err == nil {
		t.Fatal("RunInit() should reject an out-of-range port")
	}
}

func TestPromptForConfirmation(t *testing.T) {
	// Helper to mock stdin/stdout and run the function
	mockPrompt := func(input string, prompt string, defaultYes bool) (bool, string) {
		rIn, wIn, _ := os.Pipe()
		rOut, wOut, _ := os.Pipe()

		origStdin := os.Stdin
		origStdout := os.Stdout
		defer func() {
			os.Stdin = origStdin
			os.Stdout = origStdout
		}()

		os.Stdin = rIn
		os.Stdout = wOut

		go func() {
			_, _ = wIn.WriteString(input)
			_ = wIn.Close()
		}()

		result := cmd.PromptForConfirmation(prompt, defaultYes)

		_ = wOut.Close()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)

		return result, buf.String()
	}

	tests := []struct {
		name       string
		input      string
		prompt     string
		defaultYes bool
		want       bool
		wantPrompt string
	}{
		{"Explicit Yes", "y\n", "Continue?", false, true, "Continue? [y/N]: "},
		{"Explicit No", "n\n", "Continue?", true, false, "Continue? [Y/n]: "},
		{"Default Yes (Empty)", "\n", "Sure?", true, true, "Sure? [Y/n]: "},
		{"Default No (Empty)", "\n", "Sure?", false, false, "Sure? [y/N]: "},
		{"Case Insensitive", "YES\n", "Go?", false, true, "Go? [y/N]: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, output := mockPrompt(tt.input, tt.prompt, tt.defaultYes)
			if got != tt.want {
				t.Errorf("PromptForConfirmation() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(output, tt.wantPrompt) {
				t.Errorf("Output = %q, want substring %q", output, tt.wantPrompt)
			}
		})
	}
}
