package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/flowkeep/flowkeep/pkg/types"
)

// Snapshot directory layout. The directory name is the creation
// timestamp; everything else lives at fixed names inside it.
const (
	ManifestName    = "manifest.json"
	DumpName        = "database.sql.gz"
	DataArchiveName = "data.tar.gz"
	ConfigDirName   = "config"

	// FailedMarkerName flags a partial snapshot left from an aborted
	// build. The directory stays on disk for operator inspection and
	// the sweeper will not touch it before the minimum retention time.
	FailedMarkerName = "FAILED"

	// InUseMarkerName flags a snapshot referenced by an in-flight
	// restore run; the sweeper skips marked directories.
	InUseMarkerName = ".in-use"

	lockName = ".lock"
)

// DirTimeFormat names snapshot directories: sortable, second
// granularity, UTC.
const DirTimeFormat = "20060102_150405"

// WriteManifest serializes the manifest into dir. Written last during a
// build, so a directory with a manifest has all its artifacts in place.
func WriteManifest(dir string, m *types.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads and parses the manifest from a snapshot directory. It does
// not verify artifact integrity; see Verify.
func Load(dir string) (*types.Snapshot, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(abs, FailedMarkerName)); err == nil {
		return nil, fmt.Errorf("snapshot %s is marked as a failed build", abs)
	}

	data, err := os.ReadFile(filepath.Join(abs, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest in %s: %w", abs, err)
	}

	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest in %s: %w", abs, err)
	}
	if m.Version != types.ManifestVersion {
		return nil, fmt.Errorf("manifest version %q in %s not supported (want %q)", m.Version, abs, types.ManifestVersion)
	}

	return &types.Snapshot{Dir: abs, Manifest: &m}, nil
}
