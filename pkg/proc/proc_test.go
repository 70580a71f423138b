package proc

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Success(t *testing.T) {
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Cmd{Name: "echo", Args: []string{"hello"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", string(res.Stdout))
}

func TestExecRunner_StdoutRedirect(t *testing.T) {
	var buf bytes.Buffer
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Cmd{Name: "echo", Args: []string{"streamed"}, Stdout: &buf})
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "streamed\n", buf.String())
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner()
	res, err := r.Run(context.Background(), Cmd{Name: "false"})
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Equal(t, 1, res.ExitCode)
}

func TestExecRunner_Timeout(t *testing.T) {
	r := NewExecRunner()
	start := time.Now()
	_, err := r.Run(context.Background(), Cmd{
		Name:    "sleep",
		Args:    []string{"10"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecRunner_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	r := NewExecRunner()
	_, err := r.Run(ctx, Cmd{Name: "sleep", Args: []string{"10"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeRunner_StubQueue(t *testing.T) {
	f := NewFakeRunner().
		StubOutput("psql", "42\n").
		StubFailure("psql", 2, "connection refused")

	res, err := f.Run(context.Background(), Cmd{Name: "psql"})
	require.NoError(t, err)
	assert.Equal(t, "42\n", string(res.Stdout))

	_, err = f.Run(context.Background(), Cmd{Name: "psql"})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode)

	// Exhausted queue falls back to success
	res, err = f.Run(context.Background(), Cmd{Name: "psql"})
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)

	assert.Len(t, f.CallsTo("psql"), 3)
}

func TestFakeRunner_WritesToStdout(t *testing.T) {
	f := NewFakeRunner().StubOutput("pg_dump", "-- dump contents\n")

	var buf bytes.Buffer
	res, err := f.Run(context.Background(), Cmd{Name: "pg_dump", Stdout: &buf})
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "-- dump contents\n", buf.String())
}

func TestFakeRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFakeRunner()
	_, err := f.Run(ctx, Cmd{Name: "echo"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCmdString_OmitsEnv(t *testing.T) {
	c := Cmd{
		Name: "pg_dump",
		Args: []string{"-h", "db", "-U", "app"},
		Env:  []string{"PGPASSWORD=secret"},
	}
	s := c.String()
	assert.Equal(t, "pg_dump -h db -U app", s)
	assert.NotContains(t, s, "secret")
}
