package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkeep/flowkeep/pkg/types"
)

func openTest(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "flowkeep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSnapshotIndex(t *testing.T) {
	r := openTest(t)

	rec := &types.SnapshotRecord{
		ID:          "snap-1",
		Dir:         "/srv/snapshots/20260829_141503",
		Environment: "production",
		CreatedAt:   time.Now().UTC(),
		SizeBytes:   1024,
	}
	require.NoError(t, r.RecordSnapshot(rec))

	recs, err := r.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "snap-1", recs[0].ID)
	assert.Equal(t, int64(1024), recs[0].SizeBytes)

	require.NoError(t, r.DeleteSnapshot("snap-1"))
	recs, err = r.ListSnapshots()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestBeginRestore_ExclusivePerEnvironment(t *testing.T) {
	r := openTest(t)

	run1 := &types.RestoreRun{ID: "run-1", Environment: "production", Phase: types.PhaseIdle}
	require.NoError(t, r.BeginRestore(run1))

	// Second run against the same environment is rejected at Idle
	run2 := &types.RestoreRun{ID: "run-2", Environment: "production", Phase: types.PhaseIdle}
	err := r.BeginRestore(run2)
	var concErr *types.ConcurrentOperationError
	require.ErrorAs(t, err, &concErr)
	assert.Contains(t, concErr.Resource, "production")
	assert.Equal(t, "run-1", concErr.Holder)

	// A different environment is unaffected
	run3 := &types.RestoreRun{ID: "run-3", Environment: "staging", Phase: types.PhaseIdle}
	require.NoError(t, r.BeginRestore(run3))
}

func TestFinishRestore_ReleasesSlot(t *testing.T) {
	r := openTest(t)

	run := &types.RestoreRun{ID: "run-1", Environment: "production", Phase: types.PhaseIdle}
	require.NoError(t, r.BeginRestore(run))

	active, err := r.ActiveRestore("production")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "run-1", active.ID)

	run.Phase = types.PhaseVerified
	run.FinishedAt = time.Now().UTC()
	require.NoError(t, r.FinishRestore(run))

	active, err = r.ActiveRestore("production")
	require.NoError(t, err)
	assert.Nil(t, active)

	// The finished run stays in history
	got, err := r.GetRestore("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseVerified, got.Phase)

	// Slot is reusable after finish
	require.NoError(t, r.BeginRestore(&types.RestoreRun{ID: "run-2", Environment: "production"}))
}

func TestUpdateRestore_PersistsPhase(t *testing.T) {
	r := openTest(t)

	run := &types.RestoreRun{ID: "run-1", Environment: "production", Phase: types.PhaseIdle}
	require.NoError(t, r.BeginRestore(run))

	run.Phase = types.PhaseFailed
	run.FailedFrom = types.PhaseDatabaseRestoring
	run.Warnings = append(run.Warnings, "safety dump failed: disk full")
	require.NoError(t, r.UpdateRestore(run))

	got, err := r.GetRestore("run-1")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseFailed, got.Phase)
	assert.Equal(t, types.PhaseDatabaseRestoring, got.FailedFrom)
	assert.Len(t, got.Warnings, 1)
}

func TestListRestores(t *testing.T) {
	r := openTest(t)

	require.NoError(t, r.BeginRestore(&types.RestoreRun{ID: "run-1", Environment: "a"}))
	require.NoError(t, r.BeginRestore(&types.RestoreRun{ID: "run-2", Environment: "b"}))

	runs, err := r.ListRestores()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestOpen_HeldByAnotherHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowkeep.db")

	first, err := Open(path)
	require.NoError(t, err)

	// A second handle on the same file must be rejected promptly
	// instead of queueing behind the holder's file lock.
	start := time.Now()
	_, err = Open(path)
	var concErr *types.ConcurrentOperationError
	require.ErrorAs(t, err, &concErr)
	assert.Equal(t, path, concErr.Resource)
	assert.Less(t, time.Since(start), 10*time.Second)

	// Once the holder is gone the registry opens normally.
	require.NoError(t, first.Close())
	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
