package probe

import (
	"context"
	"time"
)

// CheckType represents the type of readiness check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeExec CheckType = "exec"
)

// Result represents the outcome of a single readiness check
type Result struct {
	Ready     bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all readiness checkers implement
type Checker interface {
	// Check performs the readiness check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of readiness check
	Type() CheckType
}

// Func adapts a plain function into a Checker. Used in tests and for
// one-off checks that need no configuration.
type Func func(ctx context.Context) Result

func (f Func) Check(ctx context.Context) Result { return f(ctx) }
func (f Func) Type() CheckType                  { return "func" }
