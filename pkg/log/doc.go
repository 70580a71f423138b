/*
Package log provides structured logging for flowkeep using zerolog.

The package wraps zerolog behind a global logger with component-specific
child loggers and configurable output (JSON for machine consumption,
console for interactive use). All log lines carry timestamps and can be
filtered by severity.

Initializing:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

Component loggers:

	builderLog := log.WithComponent("snapshot-builder")
	builderLog.Info().Str("snapshot_id", id).Msg("snapshot created")

	runLog := log.WithOperationID(run.ID)
	runLog.Warn().Err(err).Msg("safety dump failed")

Logs default to stderr so that command output (snapshot paths, sweep
counts) stays parseable on stdout.

One containment rule applies tool-wide: the encryption key values carried
by a secret-mismatch error are printed to the operator's terminal by the
CLI layer and must never pass through this package, since log output may
be shipped to shared sinks.
*/
package log
