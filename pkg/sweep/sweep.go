package sweep

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/log"
	"github.com/flowkeep/flowkeep/pkg/metrics"
	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/snapshot"
	"github.com/flowkeep/flowkeep/pkg/types"
)

// Sweeper deletes snapshot directories past their retention age. Each
// candidate is handled independently: one undeletable directory never
// stops the pass, it is logged and counted instead.
type Sweeper struct {
	root         string
	minRetention time.Duration
	reg          *registry.Registry
	log          zerolog.Logger

	// now is replaceable for tests
	now func() time.Time
}

// NewSweeper creates a Sweeper over the configured snapshot root. reg
// may be nil; when set, registry index entries for deleted directories
// are pruned alongside.
func NewSweeper(cfg *config.Config, reg *registry.Registry) *Sweeper {
	return &Sweeper{
		root:         cfg.SnapshotRoot,
		minRetention: cfg.MinRetention,
		reg:          reg,
		log:          log.WithComponent("sweeper"),
		now:          time.Now,
	}
}

// Sweep deletes every snapshot directory older than maxAge and returns
// how many it removed. Skipped, for this pass only:
//
//   - directories carrying an in-use marker (a restore is reading them)
//   - failed partial builds younger than the minimum retention, kept
//     around for operator inspection
//   - directories whose advisory lock another invocation holds
//
// Sweep is idempotent: a second pass over an already-swept root finds
// nothing to do and returns 0.
func (s *Sweeper) Sweep(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("sweep max age must be positive, got %v", maxAge)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read snapshot root: %w", err)
	}

	cutoff := s.now().UTC().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		createdAt, err := time.Parse(snapshot.DirTimeFormat, entry.Name())
		if err != nil {
			// Not a snapshot directory (e.g. the safety-dump area)
			continue
		}
		if !createdAt.Before(cutoff) {
			continue
		}
		if s.sweepOne(filepath.Join(s.root, entry.Name()), createdAt) {
			deleted++
		}
	}
	return deleted, nil
}

// sweepOne deletes a single expired directory, reporting whether it was
// removed.
func (s *Sweeper) sweepOne(dir string, createdAt time.Time) bool {
	slog := s.log.With().Str("dir", dir).Logger()

	if snapshot.InUse(dir) {
		slog.Debug().Msg("skipping snapshot referenced by an active restore")
		return false
	}
	if snapshot.IsFailed(dir) && s.now().UTC().Sub(createdAt) < s.minRetention {
		slog.Debug().Msg("keeping recent failed build for inspection")
		return false
	}

	release, err := snapshot.AcquireLock(dir)
	if err != nil {
		var concErr *types.ConcurrentOperationError
		if errors.As(err, &concErr) {
			slog.Debug().Str("holder", concErr.Holder).Msg("skipping locked snapshot")
			return false
		}
		slog.Warn().Err(err).Msg("could not lock snapshot for deletion")
		metrics.SweepErrorsTotal.Inc()
		return false
	}

	// The restore executor marks in-use before we could observe it only
	// if it beat us to the lock, so re-check under the lock.
	if snapshot.InUse(dir) {
		release()
		slog.Debug().Msg("snapshot became in-use, skipping")
		return false
	}

	if err := os.RemoveAll(dir); err != nil {
		release()
		slog.Warn().Err(err).Msg("could not delete snapshot directory")
		metrics.SweepErrorsTotal.Inc()
		return false
	}
	// The lock file went with the directory; release is now a no-op.
	release()

	s.pruneIndex(dir)
	metrics.SweepDeletedTotal.Inc()
	slog.Info().Msg("snapshot deleted")
	return true
}

// pruneIndex drops registry entries pointing at the deleted directory.
func (s *Sweeper) pruneIndex(dir string) {
	if s.reg == nil {
		return
	}
	recs, err := s.reg.ListSnapshots()
	if err != nil {
		s.log.Warn().Err(err).Msg("could not list registry entries for pruning")
		return
	}
	for _, rec := range recs {
		if rec.Dir != dir {
			continue
		}
		if err := s.reg.DeleteSnapshot(rec.ID); err != nil {
			s.log.Warn().Err(err).Str("snapshot_id", rec.ID).Msg("could not prune registry entry")
		}
	}
}
