package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/proc"
)

// Manager controls the application service's lifecycle through the
// compose CLI. Only the application container is touched; the database
// service keeps running throughout a restore.
type Manager struct {
	file    string
	service string
	runner  proc.Runner
	timeout time.Duration
}

// NewManager returns a Manager for the configured compose project.
func NewManager(cfg config.ApplicationConfig, runner proc.Runner, timeout time.Duration) *Manager {
	return &Manager{
		file:    cfg.ComposeFile,
		service: cfg.Service,
		runner:  runner,
		timeout: timeout,
	}
}

func (m *Manager) run(ctx context.Context, verb string, extra ...string) (proc.Result, error) {
	args := []string{"compose", "-f", m.file, verb}
	args = append(args, extra...)
	return m.runner.Run(ctx, proc.Cmd{
		Name:    "docker",
		Args:    args,
		Timeout: m.timeout,
	})
}

// Stop stops the application service. The restore pipeline treats a
// failed stop as fatal: the database must have no other writer while
// its contents are replaced.
func (m *Manager) Stop(ctx context.Context) error {
	if _, err := m.run(ctx, "stop", m.service); err != nil {
		return fmt.Errorf("stop %s: %w", m.service, err)
	}
	return nil
}

// Start starts the application service.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := m.run(ctx, "start", m.service); err != nil {
		return fmt.Errorf("start %s: %w", m.service, err)
	}
	return nil
}

// Status returns the compose ps output for the whole project. Used for
// the operator-facing status report; callers treat failures as
// non-fatal.
func (m *Manager) Status(ctx context.Context) (string, error) {
	res, err := m.run(ctx, "ps")
	if err != nil {
		return "", fmt.Errorf("compose ps: %w", err)
	}
	return strings.TrimRight(string(res.Stdout), "\n"), nil
}
