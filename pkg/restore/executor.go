package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/flowkeep/flowkeep/pkg/compose"
	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/log"
	"github.com/flowkeep/flowkeep/pkg/metrics"
	"github.com/flowkeep/flowkeep/pkg/pgtool"
	"github.com/flowkeep/flowkeep/pkg/probe"
	"github.com/flowkeep/flowkeep/pkg/proc"
	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/secret"
	"github.com/flowkeep/flowkeep/pkg/snapshot"
	"github.com/flowkeep/flowkeep/pkg/types"
)

// reportTables are counted for the post-restore operator report.
var reportTables = []string{"workflow_entity", "credentials_entity", "execution_entity"}

// Options selects per-run behavior.
type Options struct {
	// SkipSecretCheck bypasses the encryption-key gate. Only valid for
	// a same-environment disaster recovery where the active key is
	// known to be the one the snapshot was taken under.
	SkipSecretCheck bool
}

// Executor runs the restore pipeline: a strictly forward state machine
// with a single fatal exit reachable from every phase. No phase is
// skipped, none is re-entered, and a retry after failure restarts the
// whole pipeline from the beginning.
type Executor struct {
	cfg *config.Config
	db  *pgtool.Client
	app *compose.Manager
	reg *registry.Registry
	log zerolog.Logger

	now func() time.Time
}

// NewExecutor wires an Executor from configuration. All subprocess work
// flows through runner.
func NewExecutor(cfg *config.Config, runner proc.Runner, reg *registry.Registry) *Executor {
	return &Executor{
		cfg: cfg,
		db:  pgtool.New(cfg.Database, runner, cfg.CommandTimeout),
		app: compose.NewManager(cfg.Application, runner, cfg.CommandTimeout),
		reg: reg,
		log: log.WithComponent("restore-executor"),
		now: time.Now,
	}
}

// Run executes one restore of snapshotDir into the configured
// environment. The returned RestoreRun is always non-nil once the
// environment slot was claimed, and records the final phase, the phase
// a failure occurred in, warnings from best-effort steps, and the
// post-restore row counts.
func (e *Executor) Run(ctx context.Context, snapshotDir string, opts Options) (*types.RestoreRun, error) {
	dir, err := filepath.Abs(snapshotDir)
	if err != nil {
		return nil, err
	}

	run := &types.RestoreRun{
		ID:          uuid.New().String(),
		Environment: e.cfg.Environment,
		SnapshotDir: dir,
		Phase:       types.PhaseIdle,
		StartedAt:   e.now().UTC(),
	}

	// Claim the environment: one active run per environment, rejected
	// at idle, never queued.
	if err := e.reg.BeginRestore(run); err != nil {
		return nil, err
	}

	release, err := snapshot.AcquireLock(dir)
	if err != nil {
		return run, e.fail(run, err)
	}
	defer release()

	if err := snapshot.MarkInUse(dir, run.ID); err != nil {
		return run, e.fail(run, err)
	}
	defer func() { _ = snapshot.ClearInUse(dir) }()

	rlog := e.log.With().Str("operation_id", run.ID).Str("snapshot_dir", dir).Logger()
	rlog.Info().Msg("restore starting")

	// Validating: verification and the secret gate run before anything
	// is touched. A failure here leaves the environment untouched.
	e.advance(run, types.PhaseValidating)
	snap, err := e.validate(ctx, dir, opts)
	if err != nil {
		return run, e.fail(run, err)
	}

	// Stop the application: the database must have no other writer
	// while its contents are replaced.
	e.advance(run, types.PhaseApplicationStopped)
	if err := e.app.Stop(ctx); err != nil {
		return run, e.fail(run, err)
	}

	e.advance(run, types.PhaseDatabaseRestoring)
	if path, err := e.safetyDump(ctx); err != nil {
		// Best-effort: the operator explicitly requested an overwrite
		e.warn(run, fmt.Sprintf("safety dump failed: %v", err))
		rlog.Warn().Err(err).Msg("proceeding without safety dump")
	} else {
		rlog.Info().Str("path", path).Msg("safety dump taken")
	}
	if err := e.replayDump(ctx, snap); err != nil {
		return run, e.fail(run, err)
	}
	if err := snapshot.ExtractDir(filepath.Join(snap.Dir, snapshot.DataArchiveName), e.cfg.DataRoot); err != nil {
		return run, e.fail(run, err)
	}

	// Replay is committed from here on: failures below are terminal
	// but never roll the database back.
	e.advance(run, types.PhaseDatabaseRestored)
	if counts, err := e.db.RowCounts(ctx, reportTables); err != nil {
		e.warn(run, fmt.Sprintf("post-restore count report failed: %v", err))
		rlog.Warn().Err(err).Msg("post-restore count report incomplete")
	} else {
		run.RowCounts = counts
	}

	e.advance(run, types.PhaseApplicationStarting)
	if err := e.app.Start(ctx); err != nil {
		return run, e.fail(run, err)
	}
	checker := probe.NewHTTPChecker(e.cfg.Application.HealthURL)
	if err := probe.AwaitReady(ctx, checker, e.cfg.Probe.MaxAttempts, e.cfg.Probe.Interval); err != nil {
		metrics.ProbeAttemptsTotal.WithLabelValues("timeout").Inc()
		return run, e.fail(run, fmt.Errorf("application did not become ready after restore: %w", err))
	}
	metrics.ProbeAttemptsTotal.WithLabelValues("ready").Inc()

	e.advance(run, types.PhaseVerified)
	run.FinishedAt = e.now().UTC()
	if err := e.reg.FinishRestore(run); err != nil {
		return run, err
	}
	metrics.RestoreRunsTotal.WithLabelValues(string(types.PhaseVerified)).Inc()
	rlog.Info().Msg("restore verified")
	return run, nil
}

// validate loads the snapshot, verifies artifact integrity, and runs
// the encryption-key gate. Read-only.
func (e *Executor) validate(ctx context.Context, dir string, opts Options) (*types.Snapshot, error) {
	snap, err := snapshot.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Verify(snap); err != nil {
		return nil, err
	}
	if opts.SkipSecretCheck {
		e.log.Warn().Msg("secret consistency gate skipped by explicit flag")
		return snap, nil
	}
	if err := secret.CheckMatch(snap.Manifest.KeyFingerprint, e.cfg.EncryptionKey); err != nil {
		return nil, err
	}
	return snap, nil
}

// safetyDump captures the target database's current contents before
// the overwrite. Best-effort: callers downgrade failures to warnings.
func (e *Executor) safetyDump(ctx context.Context) (string, error) {
	dir := filepath.Join(e.cfg.SnapshotRoot, "safety")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, e.now().UTC().Format(snapshot.DirTimeFormat)+"-pre-restore.sql.gz")

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	gz := gzip.NewWriter(f)
	if err := e.db.DumpTo(ctx, gz); err != nil {
		gz.Close()
		f.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// replayDump streams the decompressed snapshot dump into psql.
func (e *Executor) replayDump(ctx context.Context, snap *types.Snapshot) error {
	f, err := os.Open(filepath.Join(snap.Dir, snapshot.DumpName))
	if err != nil {
		return fmt.Errorf("open snapshot dump: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read snapshot dump: %w", err)
	}
	defer gz.Close()

	return e.db.Replay(ctx, gz)
}

// advance moves the run to the next phase and persists it. Phases only
// move forward; the record is the operator's ground truth for how far a
// run got.
func (e *Executor) advance(run *types.RestoreRun, phase types.RestorePhase) {
	timer := metrics.NewTimer()
	run.Phase = phase
	if err := e.reg.UpdateRestore(run); err != nil {
		e.log.Warn().Err(err).Str("phase", string(phase)).Msg("could not persist run phase")
	}
	timer.ObserveDurationVec(metrics.RestorePhaseDuration, string(phase))
}

// fail records the terminal failure, releasing the environment slot.
// The phase the run failed from distinguishes "nothing touched"
// (validating) from "data committed" (database_restoring onward).
func (e *Executor) fail(run *types.RestoreRun, cause error) error {
	run.FailedFrom = run.Phase
	run.Phase = types.PhaseFailed
	run.FinishedAt = e.now().UTC()
	if err := e.reg.FinishRestore(run); err != nil {
		e.log.Error().Err(err).Msg("could not persist failed run")
	}
	metrics.RestoreRunsTotal.WithLabelValues(string(types.PhaseFailed)).Inc()

	if run.FailedFrom.Destructive() {
		e.log.Error().
			Str("failed_from", string(run.FailedFrom)).
			Msg("restore failed after data was committed; manual follow-up required, no automatic rollback")
		return fmt.Errorf("restore failed in %s (database left in post-replay state): %w", run.FailedFrom, cause)
	}
	return fmt.Errorf("restore failed in %s (environment untouched): %w", run.FailedFrom, cause)
}

func (e *Executor) warn(run *types.RestoreRun, msg string) {
	run.Warnings = append(run.Warnings, msg)
	if err := e.reg.UpdateRestore(run); err != nil {
		e.log.Warn().Err(err).Msg("could not persist run warning")
	}
}
