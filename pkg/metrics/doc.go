/*
Package metrics exposes Prometheus instrumentation for flowkeep.

All collectors are package-level variables registered in init(), so any
package can record without setup:

	timer := metrics.NewTimer()
	// ... build snapshot ...
	timer.ObserveDuration(metrics.SnapshotBuildDuration)
	metrics.SnapshotsBuilt.Inc()

flowkeep is a one-shot CLI, not a daemon, so exposition is opt-in: when
metrics_addr is configured, long-running invocations (backup, restore)
serve /metrics for the duration of the run so a local agent can scrape
progress. Counters from short invocations are visible in logs instead.
*/
package metrics
