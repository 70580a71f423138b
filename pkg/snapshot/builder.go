package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowkeep/flowkeep/pkg/config"
	"github.com/flowkeep/flowkeep/pkg/log"
	"github.com/flowkeep/flowkeep/pkg/metrics"
	"github.com/flowkeep/flowkeep/pkg/pgtool"
	"github.com/flowkeep/flowkeep/pkg/types"
)

// StatusFunc produces the free-text status section of a manifest.
// Best-effort by contract: implementations swallow their own failures
// and return whatever they could collect.
type StatusFunc func(ctx context.Context) string

// BuildOptions selects per-build behavior.
type BuildOptions struct {
	// IncludeKeyFingerprint embeds the environment's active encryption
	// key into the manifest. Set for cross-environment migration
	// snapshots; same-environment backups omit it.
	IncludeKeyFingerprint bool
}

// Builder produces self-contained snapshot directories: compressed
// database dump, compressed data-root archive, configuration copies,
// and a manifest enumerating exactly the files present.
type Builder struct {
	cfg         *config.Config
	db          *pgtool.Client
	status      StatusFunc
	toolVersion string
	log         zerolog.Logger

	// now is replaceable for tests
	now func() time.Time
}

// NewBuilder creates a Builder. The caller is responsible for having
// confirmed database readiness first; a dump against a dead database is
// fatal here, not retried.
func NewBuilder(cfg *config.Config, db *pgtool.Client) *Builder {
	return &Builder{
		cfg: cfg,
		db:  db,
		log: log.WithComponent("snapshot-builder"),
		now: time.Now,
	}
}

// WithStatusFunc sets the status-section collector.
func (b *Builder) WithStatusFunc(fn StatusFunc) *Builder {
	b.status = fn
	return b
}

// WithToolVersion records the build version in manifests.
func (b *Builder) WithToolVersion(v string) *Builder {
	b.toolVersion = v
	return b
}

// Build produces one snapshot. On any failure the partial directory is
// left in place for inspection, flagged with a FAILED marker so it is
// neither restored from nor swept early.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (*types.Snapshot, error) {
	timer := metrics.NewTimer()

	dir, err := b.createDir()
	if err != nil {
		metrics.SnapshotsFailed.Inc()
		return nil, err
	}
	blog := b.log.With().Str("dir", dir).Logger()
	blog.Info().Msg("building snapshot")

	snap, err := b.build(ctx, dir, opts)
	if err != nil {
		MarkFailed(dir, err)
		metrics.SnapshotsFailed.Inc()
		blog.Error().Err(err).Msg("snapshot build failed, partial directory left for inspection")
		return nil, err
	}

	timer.ObserveDuration(metrics.SnapshotBuildDuration)
	metrics.SnapshotsBuilt.Inc()
	metrics.SnapshotBytes.Set(float64(totalSize(snap.Manifest)))
	blog.Info().
		Str("snapshot_id", snap.Manifest.ID).
		Int("files", len(snap.Manifest.Files)).
		Msg("snapshot created")
	return snap, nil
}

func (b *Builder) createDir() (string, error) {
	if err := os.MkdirAll(b.cfg.SnapshotRoot, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot root: %w", err)
	}
	name := b.now().UTC().Format(DirTimeFormat)
	dir := filepath.Join(b.cfg.SnapshotRoot, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("snapshot directory %s already exists (one snapshot per second)", dir)
		}
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return abs, nil
}

func (b *Builder) build(ctx context.Context, dir string, opts BuildOptions) (*types.Snapshot, error) {
	if err := b.dumpDatabase(ctx, dir); err != nil {
		return nil, err
	}

	if err := PackDir(filepath.Join(dir, DataArchiveName), b.cfg.DataRoot); err != nil {
		return nil, err
	}

	configFiles, err := b.copyConfigs(dir)
	if err != nil {
		return nil, err
	}

	names := append([]string{DumpName, DataArchiveName}, configFiles...)
	entries, err := checksumEntries(dir, names)
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	m := &types.Manifest{
		Version:     types.ManifestVersion,
		ID:          uuid.New().String(),
		CreatedAt:   b.now().UTC(),
		Hostname:    hostname,
		ToolVersion: b.toolVersion,
		Environment: b.cfg.Environment,
		Files:       entries,
	}
	if opts.IncludeKeyFingerprint {
		m.KeyFingerprint = b.cfg.EncryptionKey
	}
	if b.status != nil {
		m.StatusReport = b.status(ctx)
	}

	// Manifest last: only complete snapshots are loadable.
	if err := WriteManifest(dir, m); err != nil {
		return nil, err
	}

	return &types.Snapshot{Dir: dir, Manifest: m}, nil
}

// dumpDatabase captures pg_dump output to a raw file, refuses empty
// output, and compresses the result.
func (b *Builder) dumpDatabase(ctx context.Context, dir string) error {
	raw := filepath.Join(dir, "database.sql")
	f, err := os.Create(raw)
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}

	if err := b.db.DumpTo(ctx, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close dump file: %w", err)
	}

	info, err := os.Stat(raw)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return &EmptyArtifactError{Path: raw}
	}

	return gzipFile(filepath.Join(dir, DumpName), raw)
}

// copyConfigs copies each configured file into the snapshot's config
// directory, preserving relative structure for nested paths. Returns
// the manifest-relative names of the copies.
func (b *Builder) copyConfigs(dir string) ([]string, error) {
	if len(b.cfg.ConfigPaths) == 0 {
		return nil, nil
	}

	composeDir := filepath.Dir(b.cfg.Application.ComposeFile)
	var names []string
	for _, src := range b.cfg.ConfigPaths {
		rel := configRelPath(src, composeDir)
		dst := filepath.Join(dir, ConfigDirName, rel)
		if err := copyFile(dst, src); err != nil {
			return nil, fmt.Errorf("copy config %s: %w", src, err)
		}
		names = append(names, filepath.ToSlash(filepath.Join(ConfigDirName, rel)))
	}
	return names, nil
}

// configRelPath picks the in-snapshot path for a config file: relative
// to the compose project directory when it lives under it (so a tunnel
// sidecar's config subdirectory keeps its nesting), otherwise just the
// base name.
func configRelPath(src, composeDir string) string {
	if composeDir != "" && composeDir != "." {
		if rel, err := filepath.Rel(composeDir, src); err == nil &&
			rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && !filepath.IsAbs(rel) {
			return rel
		}
	}
	if !filepath.IsAbs(src) {
		return filepath.Clean(src)
	}
	return filepath.Base(src)
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// checksumEntries computes manifest entries for the given
// snapshot-relative names. Streams are closed by the time this runs, so
// the digests observe fully-written files.
func checksumEntries(dir string, names []string) ([]types.FileEntry, error) {
	entries := make([]types.FileEntry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat artifact %s: %w", name, err)
		}
		if info.Size() == 0 {
			return nil, &EmptyArtifactError{Path: path}
		}
		sum, err := FileSHA256(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.FileEntry{
			Name:   name,
			Size:   info.Size(),
			SHA256: sum,
		})
	}
	return entries, nil
}

func totalSize(m *types.Manifest) int64 {
	var n int64
	for _, f := range m.Files {
		n += f.Size
	}
	return n
}
