package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/pgtool"
	"github.com/flowkeep/flowkeep/pkg/proc"
	"github.com/flowkeep/flowkeep/pkg/types"
)

const testDump = "-- PostgreSQL database dump\nDROP TABLE IF EXISTS workflow_entity;\nCREATE TABLE workflow_entity (id int);\n"

// testSetup builds a config rooted in temp directories with a small
// data tree and one nested config file.
func testSetup(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()

	dataRoot := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dataRoot, "files"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataRoot, "files", "upload.bin"), []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataRoot, "settings.json"), []byte("{}"), 0o644))

	stackDir := filepath.Join(base, "stack")
	require.NoError(t, os.MkdirAll(filepath.Join(stackDir, "cloudflared"), 0o755))
	composeFile := filepath.Join(stackDir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composeFile, []byte("services: {}\n"), 0o644))
	tunnelConf := filepath.Join(stackDir, "cloudflared", "config.yml")
	require.NoError(t, os.WriteFile(tunnelConf, []byte("tunnel: t\n"), 0o644))

	cfg := config.Default()
	cfg.Environment = "test"
	cfg.SnapshotRoot = filepath.Join(base, "snapshots")
	cfg.DataRoot = dataRoot
	cfg.ConfigPaths = []string{composeFile, tunnelConf}
	cfg.Application.ComposeFile = composeFile
	cfg.EncryptionKey = "key-aaaa"
	return &cfg
}

func testBuilder(cfg *config.Config, runner proc.Runner) *Builder {
	db := pgtool.New(cfg.Database, runner, cfg.CommandTimeout)
	return NewBuilder(cfg, db).WithToolVersion("test")
}

func TestBuild_ProducesVerifiableSnapshot(t *testing.T) {
	cfg := testSetup(t)
	runner := proc.NewFakeRunner().StubOutput("pg_dump", testDump)

	snap, err := testBuilder(cfg, runner).Build(context.Background(), BuildOptions{})
	require.NoError(t, err)

	// Freshly built snapshots verify clean
	require.NoError(t, Verify(snap))

	m := snap.Manifest
	assert.Equal(t, types.ManifestVersion, m.Version)
	assert.Equal(t, "test", m.Environment)
	assert.NotEmpty(t, m.ID)
	assert.Empty(t, m.KeyFingerprint, "backup snapshots carry no key fingerprint")

	// Manifest enumerates exactly the files present
	assert.NotNil(t, m.Entry(DumpName))
	assert.NotNil(t, m.Entry(DataArchiveName))
	assert.NotNil(t, m.Entry("config/docker-compose.yml"))
	assert.NotNil(t, m.Entry("config/cloudflared/config.yml"), "nested config keeps its relative structure")
	assert.Len(t, m.Files, 4)

	// Reloading from disk matches
	loaded, err := Load(snap.Dir)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.Manifest.ID)
	require.NoError(t, Verify(loaded))
}

func TestBuild_MigrationSnapshotCarriesKey(t *testing.T) {
	cfg := testSetup(t)
	runner := proc.NewFakeRunner().StubOutput("pg_dump", testDump)

	snap, err := testBuilder(cfg, runner).Build(context.Background(), BuildOptions{IncludeKeyFingerprint: true})
	require.NoError(t, err)
	assert.Equal(t, "key-aaaa", snap.Manifest.KeyFingerprint)
}

func TestBuild_EmptyDumpIsFatal(t *testing.T) {
	cfg := testSetup(t)
	// pg_dump exits zero but writes nothing
	runner := proc.NewFakeRunner().StubOutput("pg_dump", "")

	_, err := testBuilder(cfg, runner).Build(context.Background(), BuildOptions{})

	var emptyErr *EmptyArtifactError
	require.ErrorAs(t, err, &emptyErr)

	// Partial directory left in place, flagged, never loadable
	dirs, rerr := os.ReadDir(cfg.SnapshotRoot)
	require.NoError(t, rerr)
	require.Len(t, dirs, 1)
	partial := filepath.Join(cfg.SnapshotRoot, dirs[0].Name())
	assert.True(t, IsFailed(partial))

	_, err = Load(partial)
	assert.Error(t, err, "failed partial must not load as a snapshot")
}

func TestBuild_DumpCommandFailureIsFatal(t *testing.T) {
	cfg := testSetup(t)
	runner := proc.NewFakeRunner().StubFailure("pg_dump", 1, "connection refused")

	_, err := testBuilder(cfg, runner).Build(context.Background(), BuildOptions{})
	require.Error(t, err)

	var emptyErr *EmptyArtifactError
	assert.False(t, errors.As(err, &emptyErr), "command failure is not an empty-artifact error")
}

func TestBuild_MissingConfigFileIsFatal(t *testing.T) {
	cfg := testSetup(t)
	cfg.ConfigPaths = append(cfg.ConfigPaths, filepath.Join(t.TempDir(), "absent.yml"))
	runner := proc.NewFakeRunner().StubOutput("pg_dump", testDump)

	_, err := testBuilder(cfg, runner).Build(context.Background(), BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy config")
}

func TestBuild_StatusReportIsInformational(t *testing.T) {
	cfg := testSetup(t)
	runner := proc.NewFakeRunner().StubOutput("pg_dump", testDump)

	b := testBuilder(cfg, runner).WithStatusFunc(func(ctx context.Context) string {
		return "service status: N/A (collector failed)"
	})
	snap, err := b.Build(context.Background(), BuildOptions{})
	require.NoError(t, err)
	assert.Contains(t, snap.Manifest.StatusReport, "N/A")
	// A useless status section never fails a build or its verification
	require.NoError(t, Verify(snap))
}

func TestBuild_DirectoryNameIsSortableTimestamp(t *testing.T) {
	cfg := testSetup(t)
	runner := proc.NewFakeRunner().StubOutput("pg_dump", testDump)

	fixed := time.Date(2026, 8, 29, 14, 15, 3, 0, time.UTC)
	b := testBuilder(cfg, runner)
	b.now = func() time.Time { return fixed }

	snap, err := b.Build(context.Background(), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "20260829_141503", filepath.Base(snap.Dir))
}

func TestConfigRelPath(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		composeDir string
		want       string
	}{
		{"under compose dir", "/opt/stack/docker-compose.yml", "/opt/stack", "docker-compose.yml"},
		{"nested under compose dir", "/opt/stack/cloudflared/config.yml", "/opt/stack", filepath.Join("cloudflared", "config.yml")},
		{"outside compose dir", "/etc/other.conf", "/opt/stack", "other.conf"},
		{"relative path", "conf/app.yml", "/opt/stack", filepath.Join("conf", "app.yml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, configRelPath(tt.src, tt.composeDir))
		})
	}
}
