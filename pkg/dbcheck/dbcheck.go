// Package dbcheck probes database reachability before a backup run starts.
//
// The probe shells out to mysqladmin rather than opening a client connection
// itself. The backup engine talks to the server through its own client
// libraries anyway, so a protocol-level probe from this process would prove
// little; a successful mysqladmin ping proves the same toolchain the operator
// uses can reach the server.
package dbcheck

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dbforge/xbak/pkg/plog"
)

// DefaultPingBinary is the client tool used for the reachability probe.
const DefaultPingBinary = "mysqladmin"

// ErrUnreachable is wrapped by all probe failures, so callers can classify
// them without parsing messages.
var ErrUnreachable = errors.New("database is not reachable")

// Target identifies the server to probe.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Pinger is the reachability probe boundary.
type Pinger interface {
	Ping(ctx context.Context, t Target) error
}

// MySQLPinger probes via `mysqladmin ping`.
type MySQLPinger struct {
	binary string
	// commandContext allows mocking os/exec for testing probes.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewMySQLPinger creates a MySQLPinger. An empty binary selects
// DefaultPingBinary; pass exec.CommandContext for production use.
func NewMySQLPinger(binary string, commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *MySQLPinger {
	if binary == "" {
		binary = DefaultPingBinary
	}
	return &MySQLPinger{
		binary:         binary,
		commandContext: commandContext,
	}
}

var _ Pinger = (*MySQLPinger)(nil)

// Ping runs the probe. Any failure, including a missing mysqladmin binary,
// reports the database as unreachable.
func (p *MySQLPinger) Ping(ctx context.Context, t Target) error {
	args := []string{
		"--host=" + t.Host,
		"--port=" + strconv.Itoa(t.Port),
		"--user=" + t.User,
	}
	if t.Password != "" {
		args = append(args, "--password="+t.Password)
	}
	args = append(args, "ping")

	plog.Debug("Probing database", "binary", p.binary, "host", t.Host, "port", t.Port)

	cmd := p.commandContext(ctx, p.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Check if the context was canceled, which can cause cmd.Wait() to
		// return an error. If so, return the context's error to be more specific.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s:%d: %v: %s", ErrUnreachable, t.Host, t.Port, err, strings.TrimSpace(string(output)))
	}

	// mysqladmin ping prints "mysqld is alive" on success. Older versions
	// exit 0 even when the server refuses the connection, so check the
	// output as well.
	if !strings.Contains(string(output), "is alive") {
		return fmt.Errorf("%w: %s:%d: unexpected ping response: %s", ErrUnreachable, t.Host, t.Port, strings.TrimSpace(string(output)))
	}

	plog.Debug("Database is reachable", "host", t.Host, "port", t.Port)
	return nil
}
