package proc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Cmd describes one external command invocation.
type Cmd struct {
	// Name is the executable to run
	Name string

	// Args are the command arguments
	Args []string

	// Env holds extra KEY=VALUE pairs appended to the process
	// environment (e.g. PGPASSWORD)
	Env []string

	// Dir is the working directory; empty means inherit
	Dir string

	// Stdin, when set, is fed to the process
	Stdin io.Reader

	// Stdout, when set, receives the process stdout directly (used for
	// streaming dumps to disk). When nil, stdout is captured into
	// Result.Stdout.
	Stdout io.Writer

	// Timeout bounds the invocation. Zero means no timeout beyond the
	// caller's context.
	Timeout time.Duration
}

// String renders the command line for logs and errors. Env values are
// omitted since they may carry credentials.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a completed invocation.
type Result struct {
	ExitCode int

	// Stdout holds captured output when Cmd.Stdout was nil
	Stdout []byte

	// Stderr is always captured
	Stderr []byte

	Duration time.Duration
}

// Runner executes external commands. The orchestrator never calls
// os/exec directly; everything goes through a Runner so tests can
// substitute a scripted fake.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// ExitError reports a command that ran to completion with a non-zero
// exit code.
type ExitError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Cmd, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
