package sweep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/registry"
	"github.com/flowkeep/flowkeep/pkg/snapshot"
	"github.com/flowkeep/flowkeep/pkg/types"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newSweeper(t *testing.T) *Sweeper {
	t.Helper()
	cfg := config.Default()
	cfg.SnapshotRoot = t.TempDir()
	cfg.MinRetention = 24 * time.Hour

	s := NewSweeper(&cfg, nil)
	s.now = func() time.Time { return testNow }
	return s
}

// addDir creates a snapshot directory whose name places it age in the
// past.
func addDir(t *testing.T, root string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, testNow.Add(-age).Format(snapshot.DirTimeFormat))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshot.DumpName), []byte("x"), 0o644))
	return dir
}

func TestSweep_DeletesExpired(t *testing.T) {
	s := newSweeper(t)
	old := addDir(t, s.root, 30*24*time.Hour)
	young := addDir(t, s.root, 2*24*time.Hour)

	n, err := s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoDirExists(t, old)
	assert.DirExists(t, young)
}

func TestSweep_Idempotent(t *testing.T) {
	s := newSweeper(t)
	addDir(t, s.root, 30*24*time.Hour)
	addDir(t, s.root, 40*24*time.Hour)

	n, err := s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweep_SkipsInUse(t *testing.T) {
	s := newSweeper(t)
	dir := addDir(t, s.root, 30*24*time.Hour)
	require.NoError(t, snapshot.MarkInUse(dir, "some-run"))

	n, err := s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.DirExists(t, dir)

	// Deleted once the restore finishes with it
	require.NoError(t, snapshot.ClearInUse(dir))
	n, err = s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSweep_RecentFailedBuildProtected(t *testing.T) {
	s := newSweeper(t)

	// Expired by the sweep age, but failed and younger than the
	// minimum retention: kept for inspection.
	recent := addDir(t, s.root, 12*time.Hour)
	snapshot.MarkFailed(recent, os.ErrClosed)

	// Failed and past the minimum retention: fair game.
	stale := addDir(t, s.root, 48*time.Hour)
	snapshot.MarkFailed(stale, os.ErrClosed)

	n, err := s.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.DirExists(t, recent)
	assert.NoDirExists(t, stale)
}

func TestSweep_SkipsLocked(t *testing.T) {
	s := newSweeper(t)
	dir := addDir(t, s.root, 30*24*time.Hour)

	release, err := snapshot.AcquireLock(dir)
	require.NoError(t, err)
	defer release()

	n, err := s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.DirExists(t, dir)
}

func TestSweep_IgnoresForeignDirs(t *testing.T) {
	s := newSweeper(t)
	safety := filepath.Join(s.root, "safety")
	require.NoError(t, os.MkdirAll(safety, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.root, "notes.txt"), []byte("x"), 0o644))

	n, err := s.Sweep(time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.DirExists(t, safety)
}

func TestSweep_PrunesRegistry(t *testing.T) {
	s := newSweeper(t)
	dir := addDir(t, s.root, 30*24*time.Hour)

	reg, err := registry.Open(filepath.Join(t.TempDir(), "flowkeep.db"))
	require.NoError(t, err)
	defer reg.Close()
	s.reg = reg

	require.NoError(t, reg.RecordSnapshot(&types.SnapshotRecord{
		ID:  "snap-1",
		Dir: dir,
	}))
	require.NoError(t, reg.RecordSnapshot(&types.SnapshotRecord{
		ID:  "snap-2",
		Dir: filepath.Join(s.root, "elsewhere"),
	}))

	n, err := s.Sweep(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := reg.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "snap-2", recs[0].ID)
}

func TestSweep_MissingRoot(t *testing.T) {
	cfg := config.Default()
	cfg.SnapshotRoot = filepath.Join(t.TempDir(), "does-not-exist")
	s := NewSweeper(&cfg, nil)

	n, err := s.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweep_InvalidMaxAge(t *testing.T) {
	s := newSweeper(t)
	_, err := s.Sweep(0)
	assert.Error(t, err)
}
