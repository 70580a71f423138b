/*
Package registry persists flowkeep's operational records in BoltDB:
an index of built snapshots, the history of restore runs, and the
active-restore marker per environment.

The marker is the concurrency gate for restores: BeginRestore claims
the environment's slot atomically inside a bolt transaction, so a
second invocation against the same environment is rejected immediately
rather than queued, even when both invocations race.

Records are stored as JSON values keyed by ID, one bucket per entity.
*/
package registry
