package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/flowkeep/flowkeep/pkg/proc"
)

// ExecChecker runs a command through the injected process runner and
// treats exit code 0 as ready. Used for pg_isready-style checks.
type ExecChecker struct {
	// Runner executes the command
	Runner proc.Runner

	// Command is the command and its arguments (e.g. ["pg_isready", "-h", "db"])
	Command []string

	// Env holds extra KEY=VALUE pairs for the command
	Env []string

	// Timeout is the command execution timeout (default: 10 seconds)
	Timeout time.Duration
}

// NewExecChecker creates a new exec readiness checker
func NewExecChecker(runner proc.Runner, command []string) *ExecChecker {
	return &ExecChecker{
		Runner:  runner,
		Command: command,
		Timeout: 10 * time.Second,
	}
}

// Check performs the exec readiness check
func (e *ExecChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if len(e.Command) == 0 {
		return Result{
			Ready:     false,
			Message:   "no command specified",
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	res, err := e.Runner.Run(ctx, proc.Cmd{
		Name:    e.Command[0],
		Args:    e.Command[1:],
		Env:     e.Env,
		Timeout: e.Timeout,
	})
	if err != nil {
		return Result{
			Ready:     false,
			Message:   fmt.Sprintf("command failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return Result{
		Ready:     res.ExitCode == 0,
		Message:   fmt.Sprintf("exit code %d", res.ExitCode),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the readiness check type
func (e *ExecChecker) Type() CheckType {
	return CheckTypeExec
}
