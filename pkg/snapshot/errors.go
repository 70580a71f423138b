package snapshot

import (
	"fmt"
	"strings"
)

// EmptyArtifactError reports a produced file that is unexpectedly
// zero-length. A zero-byte dump means a live dependency was unreachable
// without the dump command failing loudly; shipping it silently would
// produce a snapshot that restores to nothing.
type EmptyArtifactError struct {
	Path string
}

func (e *EmptyArtifactError) Error() string {
	return fmt.Sprintf("artifact %s is empty", e.Path)
}

// VerificationError reports exactly what made a snapshot untrustworthy,
// so operators can triage without re-deriving the failure.
type VerificationError struct {
	// Missing lists manifest entries absent from disk
	Missing []string

	// Empty lists manifest entries that are zero-length on disk
	Empty []string

	// Mismatched lists entries whose recomputed checksum differs from
	// the manifest's recorded one
	Mismatched []string

	// Unreadable lists entries that exist but could not be read while
	// recomputing checksums, with the read error appended
	Unreadable []string
}

func (e *VerificationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty: %s", strings.Join(e.Empty, ", ")))
	}
	if len(e.Mismatched) > 0 {
		parts = append(parts, fmt.Sprintf("checksum mismatch: %s", strings.Join(e.Mismatched, ", ")))
	}
	if len(e.Unreadable) > 0 {
		parts = append(parts, fmt.Sprintf("unreadable: %s", strings.Join(e.Unreadable, ", ")))
	}
	if len(parts) == 0 {
		return "snapshot verification failed"
	}
	return "snapshot verification failed: " + strings.Join(parts, "; ")
}

func (e *VerificationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Empty) == 0 && len(e.Mismatched) == 0 && len(e.Unreadable) == 0
}
