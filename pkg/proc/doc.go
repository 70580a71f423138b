/*
Package proc is the seam between flowkeep and the external CLIs it
orchestrates (pg_dump, psql, docker compose, pg_isready).

All subprocess execution goes through the Runner interface. Production
code uses ExecRunner (os/exec with per-call timeouts); tests inject
FakeRunner with scripted results, so the backup and restore pipelines
are tested without real subprocesses.

A command that exceeds its timeout is killed and reported as
context.DeadlineExceeded; the caller treats that as failure of whatever
step it was performing. A command that exits non-zero yields *ExitError
carrying the exit code and stderr.
*/
package proc
