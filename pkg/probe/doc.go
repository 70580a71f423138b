/*
Package probe provides bounded readiness polling for the dependencies
flowkeep waits on: the database accepting connections before a dump, the
application's healthz after a restart.

Three checker types cover the cases in practice:

	┌──────────────────────────────────────────┐
	│             Checker interface            │
	│  • Check(ctx) Result                     │
	│  • Type() CheckType                      │
	└──────┬───────────┬──────────────┬────────┘
	       ▼           ▼              ▼
	  ┌────────┐  ┌────────┐    ┌─────────┐
	  │  HTTP  │  │  TCP   │    │  Exec   │
	  │/healthz│  │ :5432  │    │pg_isready│
	  └────────┘  └────────┘    └─────────┘

AwaitReady drives a checker with a fixed interval and a hard attempt
bound; it never backs off and never hangs. Failure modes are distinct:
*TimeoutError when the attempts run out, ErrCancelled when the operator
interrupts the wait (SIGINT through context cancellation).

Usage:

	checker := probe.NewHTTPChecker("http://127.0.0.1:5678/healthz")
	if err := probe.AwaitReady(ctx, checker, 30, 2*time.Second); err != nil {
		var te *probe.TimeoutError
		if errors.As(err, &te) {
			// dependency never came up; te.Attempts checks were made
		}
	}

The exec checker goes through the proc.Runner seam like every other
subprocess in the tool, so it is fully scriptable in tests.
*/
package probe
