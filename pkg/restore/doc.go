// Package restore executes the restore pipeline as a strictly forward
// state machine.
//
// A run claims its environment, locks the snapshot directory, and then
// walks the phases in order:
//
//	idle
//	  |
//	validating            read-only: artifact verification + secret gate
//	  |
//	application_stopped   the application releases the database
//	  |
//	database_restoring    safety dump (best-effort), replay, extract
//	  |
//	database_restored     row-count report (best-effort)
//	  |
//	application_starting  start + bounded readiness polling
//	  |
//	verified
//
// Every phase has a single fatal exit to failed. No phase is skipped or
// re-entered; a retry after failure is a brand-new run from idle. The
// phase a run failed from is recorded so an operator can tell a
// no-harm-done failure (validating) from one that left the database in
// its post-replay state (database_restoring onward). There is no
// automatic rollback.
//
// The secret consistency gate compares the snapshot's recorded
// encryption key against the environment's active key before anything
// is touched. A mismatch aborts the run while it is still read-only;
// the error carries both values so a local operator can diagnose the
// drift, and for that reason it must stay on the operator's terminal
// rather than travel to shared log sinks.
//
// Concurrency control is two-layered: a registry slot allows one active
// run per environment, and the snapshot directory's lock plus .in-use
// marker keep the sweeper and other processes off the files while they
// are being read.
package restore
