package dbcheck_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/dbforge/xbak/pkg/dbcheck"
)

// TestHelperProcess isn't a real test. It's a helper process that the exec-based
// tests can run. It's a standard pattern for testing code that uses os/exec.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_BEHAVIOR") {
	case "alive":
		fmt.Println("mysqld is alive")
		os.Exit(0)
	case "refused":
		fmt.Println("mysqladmin: connect to server at 'localhost' failed")
		os.Exit(1)
	case "silent_zero":
		// Exits 0 without the liveness line.
		os.Exit(0)
	}
	os.Exit(2)
}

func fakePing(behavior string, gotArgs *[]string) func(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		if gotArgs != nil {
			*gotArgs = append([]string{name}, arg...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_BEHAVIOR="+behavior)
		return cmd
	}
}

var target = dbcheck.Target{
	Host:     "localhost",
	Port:     3306,
	User:     "root",
	Password: "secret",
}

func TestPingAlive(t *testing.T) {
	var gotArgs []string
	p := dbcheck.NewMySQLPinger("", fakePing("alive", &gotArgs))

	if err := p.Ping(context.Background(), target); err != nil {
		t.Fatalf("Ping() failed: %v", err)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"mysqladmin", "--host=localhost", "--port=3306", "--user=root", "--password=secret", "ping"} {
		if !strings.Contains(joined, want) {
			t.Errorf("probe invocation missing %q, got: %s", want, joined)
		}
	}
}

func TestPingNoPasswordFlagWhenEmpty(t *testing.T) {
	var gotArgs []string
	p := dbcheck.NewMySQLPinger("", fakePing("alive", &gotArgs))

	tgt := target
	tgt.Password = ""
	if err := p.Ping(context.Background(), tgt); err != nil {
		t.Fatalf("Ping() failed: %v", err)
	}
	if strings.Contains(strings.Join(gotArgs, " "), "--password") {
		t.Error("probe must not pass an empty password flag")
	}
}

func TestPingRefused(t *testing.T) {
	p := dbcheck.NewMySQLPinger("", fakePing("refused", nil))

	err := p.Ping(context.Background(), target)
	if !errors.Is(err, dbcheck.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if !strings.Contains(err.Error(), "localhost:3306") {
		t.Errorf("error should name the target, got: %v", err)
	}
}

func TestPingCleanExitWithoutLivenessLine(t *testing.T) {
	p := dbcheck.NewMySQLPinger("", fakePing("silent_zero", nil))

	err := p.Ping(context.Background(), target)
	if !errors.Is(err, dbcheck.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable for missing liveness line, got %v", err)
	}
}

func TestPingCanceledContext(t *testing.T) {
	p := dbcheck.NewMySQLPinger("", fakePing("alive", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Ping(ctx, target); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
