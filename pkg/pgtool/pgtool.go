package pgtool

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/probe"
	"github.com/flowkeep/flowkeep/pkg/proc"
)

// Client drives the PostgreSQL CLI tools (pg_dump, psql, pg_isready)
// through the injected process runner. It holds no connection itself;
// every operation is one bounded subprocess.
type Client struct {
	cfg     config.DatabaseConfig
	runner  proc.Runner
	timeout time.Duration
}

// New returns a Client for the given connection parameters. timeout
// bounds every invocation except readiness checks, which use the probe
// checker's own shorter timeout.
func New(cfg config.DatabaseConfig, runner proc.Runner, timeout time.Duration) *Client {
	return &Client{cfg: cfg, runner: runner, timeout: timeout}
}

func (c *Client) connArgs() []string {
	return []string{
		"-h", c.cfg.Host,
		"-p", strconv.Itoa(c.cfg.Port),
		"-U", c.cfg.User,
	}
}

func (c *Client) env() ([]string, error) {
	pw, err := c.cfg.ResolvePassword()
	if err != nil {
		return nil, err
	}
	if pw == "" {
		return nil, nil
	}
	return []string{"PGPASSWORD=" + pw}, nil
}

// DumpTo streams a logical dump of the database to w. The dump carries
// --clean --if-exists so replaying it overwrites existing objects.
func (c *Client) DumpTo(ctx context.Context, w io.Writer) error {
	env, err := c.env()
	if err != nil {
		return err
	}
	args := append(c.connArgs(),
		"--clean", "--if-exists", "--no-owner",
		"-d", c.cfg.Name,
	)
	_, err = c.runner.Run(ctx, proc.Cmd{
		Name:    "pg_dump",
		Args:    args,
		Env:     env,
		Stdout:  w,
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("pg_dump: %w", err)
	}
	return nil
}

// Replay feeds a logical dump from r into psql. ON_ERROR_STOP makes the
// first failed statement abort the replay with a non-zero exit.
func (c *Client) Replay(ctx context.Context, r io.Reader) error {
	env, err := c.env()
	if err != nil {
		return err
	}
	args := append(c.connArgs(),
		"-v", "ON_ERROR_STOP=1",
		"-d", c.cfg.Name,
	)
	_, err = c.runner.Run(ctx, proc.Cmd{
		Name:    "psql",
		Args:    args,
		Env:     env,
		Stdin:   r,
		Timeout: c.timeout,
	})
	if err != nil {
		return fmt.Errorf("psql replay: %w", err)
	}
	return nil
}

// ReadyChecker returns a probe checker wrapping pg_isready.
func (c *Client) ReadyChecker() probe.Checker {
	cmd := append([]string{"pg_isready"}, c.connArgs()...)
	cmd = append(cmd, "-d", c.cfg.Name)
	return probe.NewExecChecker(c.runner, cmd)
}

// RowCount returns the row count of a single table.
func (c *Client) RowCount(ctx context.Context, table string) (int64, error) {
	if !validIdentifier(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	env, err := c.env()
	if err != nil {
		return 0, err
	}
	args := append(c.connArgs(),
		"-d", c.cfg.Name,
		"-t", "-A",
		"-c", fmt.Sprintf("SELECT count(*) FROM %s", table),
	)
	res, err := c.runner.Run(ctx, proc.Cmd{
		Name:    "psql",
		Args:    args,
		Env:     env,
		Timeout: c.timeout,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(res.Stdout)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("count %s: unparseable output %q", table, string(res.Stdout))
	}
	return n, nil
}

// RowCounts collects row counts for the given tables. The first error
// aborts; callers that want best-effort semantics handle it themselves.
func (c *Client) RowCounts(ctx context.Context, tables []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		n, err := c.RowCount(ctx, table)
		if err != nil {
			return counts, err
		}
		counts[table] = n
	}
	return counts, nil
}

// validIdentifier accepts plain SQL identifiers, optionally
// schema-qualified. Table names come from configuration, not user
// input, but they still end up interpolated into a query.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r == '_',
				r >= 'a' && r <= 'z',
				r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
				if i == 0 {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}
