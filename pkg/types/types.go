package types

import (
	"fmt"
	"time"
)

// ManifestVersion is the manifest schema version written by this build.
// Restore refuses manifests with a different version.
const ManifestVersion = "1.0"

// FileEntry describes one artifact contained in a snapshot.
type FileEntry struct {
	// Name is the path of the file relative to the snapshot directory
	Name string `json:"name"`

	// Size is the file size in bytes at manifest-write time
	Size int64 `json:"size"`

	// SHA256 is the hex-encoded digest of the file contents
	SHA256 string `json:"sha256"`
}

// Manifest is the structured metadata written into every snapshot directory.
type Manifest struct {
	Version   string    `json:"version"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Hostname  string    `json:"hostname"`

	// ToolVersion records the flowkeep build that produced the snapshot
	ToolVersion string `json:"tool_version"`

	// Environment names the deployment the snapshot was taken from
	Environment string `json:"environment"`

	// KeyFingerprint is the source environment's active encryption key,
	// copied verbatim. Present only in cross-environment migration
	// snapshots; empty otherwise.
	KeyFingerprint string `json:"encryption_key_fingerprint,omitempty"`

	// Files is the table of contents. Every entry must exist on disk,
	// be non-empty, and hash to the recorded digest.
	Files []FileEntry `json:"files"`

	// StatusReport is a free-text section for human diagnosis (service
	// status, disk usage). Informational only; never parsed.
	StatusReport string `json:"status_report,omitempty"`
}

// Entry returns the manifest entry for the given relative name, or nil.
func (m *Manifest) Entry(name string) *FileEntry {
	for i := range m.Files {
		if m.Files[i].Name == name {
			return &m.Files[i]
		}
	}
	return nil
}

// Snapshot is an immutable point-in-time capture on disk: a directory
// holding the compressed database dump, the data archive, copied
// configuration files, and the manifest describing them.
type Snapshot struct {
	// Dir is the absolute path of the snapshot directory
	Dir string

	// Manifest is the parsed manifest.json from Dir
	Manifest *Manifest
}

// Environment identifies a deployment target: one running application
// instance plus its database and file store. An environment has exactly
// one active encryption key at any time.
type Environment struct {
	Name string

	// ActiveKey is the environment's configured encryption key. The
	// application encrypts persisted credentials with it; restoring a
	// snapshot taken under a different key makes those records
	// permanently undecryptable.
	ActiveKey string
}

// RestorePhase is one state of the restore pipeline. Phases are strictly
// ordered; a run never skips or re-enters a phase.
type RestorePhase string

const (
	PhaseIdle                RestorePhase = "idle"
	PhaseValidating          RestorePhase = "validating"
	PhaseApplicationStopped  RestorePhase = "application_stopped"
	PhaseDatabaseRestoring   RestorePhase = "database_restoring"
	PhaseDatabaseRestored    RestorePhase = "database_restored"
	PhaseApplicationStarting RestorePhase = "application_starting"
	PhaseVerified            RestorePhase = "verified"
	PhaseFailed              RestorePhase = "failed"
)

// Destructive reports whether reaching this phase means target data has
// been (or is being) overwritten. A failure at or after a destructive
// phase leaves the database in the post-replay state.
func (p RestorePhase) Destructive() bool {
	switch p {
	case PhaseDatabaseRestoring, PhaseDatabaseRestored, PhaseApplicationStarting, PhaseVerified:
		return true
	}
	return false
}

// RestoreRun records one restore pipeline execution against a target
// environment. Runs are ephemeral state machines; the registry persists
// their records for operator inspection.
type RestoreRun struct {
	ID          string       `json:"id"`
	Environment string       `json:"environment"`
	SnapshotDir string       `json:"snapshot_dir"`
	Phase       RestorePhase `json:"phase"`

	// FailedFrom is the phase the run was in when it failed. Empty
	// unless Phase == PhaseFailed. A failure during validating touched
	// nothing; a failure from database_restoring onward left the
	// database in the post-replay state.
	FailedFrom RestorePhase `json:"failed_from,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Warnings collects best-effort step failures (safety dump,
	// post-restore report) that did not abort the run.
	Warnings []string `json:"warnings,omitempty"`

	// RowCounts is the post-restore count report, table name to rows.
	// Purely informational.
	RowCounts map[string]int64 `json:"row_counts,omitempty"`
}

// SnapshotRecord is the registry's index entry for a built snapshot.
type SnapshotRecord struct {
	ID          string    `json:"id"`
	Dir         string    `json:"dir"`
	Environment string    `json:"environment"`
	CreatedAt   time.Time `json:"created_at"`
	SizeBytes   int64     `json:"size_bytes"`
}

// ConcurrentOperationError reports that another invocation already holds
// the lock or marker guarding a resource. It is returned immediately,
// never blocked on.
type ConcurrentOperationError struct {
	// Resource names what is contended: a snapshot directory or an
	// environment name.
	Resource string

	// Holder identifies the current owner when known (run ID or pid).
	Holder string
}

func (e *ConcurrentOperationError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("operation already in progress on %s (held by %s)", e.Resource, e.Holder)
	}
	return fmt.Sprintf("operation already in progress on %s", e.Resource)
}
