package proc

import (
	"context"
	"sync"
)

// Stub is a canned response for the FakeRunner, matched by executable
// name. Output is written to Cmd.Stdout when the call supplies one,
// otherwise returned as Result.Stdout.
type Stub struct {
	Output   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// FakeRunner is a scripted Runner for tests. Responses are queued per
// executable name; each call consumes one. Names with no queued stub
// succeed with empty output. All calls are recorded.
type FakeRunner struct {
	mu    sync.Mutex
	stubs map[string][]Stub
	calls []Cmd
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{stubs: make(map[string][]Stub)}
}

// Stub queues a response for the given executable name.
func (f *FakeRunner) Stub(name string, s Stub) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs[name] = append(f.stubs[name], s)
	return f
}

// StubOutput queues a successful response with the given stdout.
func (f *FakeRunner) StubOutput(name string, output string) *FakeRunner {
	return f.Stub(name, Stub{Output: []byte(output)})
}

// StubFailure queues a non-zero exit for the given executable name.
func (f *FakeRunner) StubFailure(name string, exitCode int, stderr string) *FakeRunner {
	return f.Stub(name, Stub{
		ExitCode: exitCode,
		Stderr:   []byte(stderr),
		Err:      &ExitError{Cmd: name, ExitCode: exitCode, Stderr: stderr},
	})
}

// Run consumes the next stub for cmd.Name.
func (f *FakeRunner) Run(ctx context.Context, cmd Cmd) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	var s Stub
	if q := f.stubs[cmd.Name]; len(q) > 0 {
		s, f.stubs[cmd.Name] = q[0], q[1:]
	}
	f.mu.Unlock()

	res := Result{
		ExitCode: s.ExitCode,
		Stderr:   s.Stderr,
	}
	if cmd.Stdout != nil {
		if len(s.Output) > 0 {
			if _, err := cmd.Stdout.Write(s.Output); err != nil {
				return res, err
			}
		}
	} else {
		res.Stdout = s.Output
	}
	return res, s.Err
}

// Calls returns a copy of all recorded invocations.
func (f *FakeRunner) Calls() []Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Cmd, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns recorded invocations of the given executable name.
func (f *FakeRunner) CallsTo(name string) []Cmd {
	var out []Cmd
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
