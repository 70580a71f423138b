package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowkeep/flowkeep/pkg/metrics"
	"github.com/flowkeep/flowkeep/pkg/types"
)

// Verify validates a snapshot's completeness against its manifest:
// every declared file present, none empty, every checksum matching the
// bytes on disk. Read-only; neither the snapshot nor the environment is
// touched.
//
// Verify must pass before a snapshot crosses a restore boundary or a
// machine boundary.
func Verify(snap *types.Snapshot) error {
	verr := &VerificationError{}

	for _, entry := range snap.Manifest.Files {
		path := filepath.Join(snap.Dir, filepath.FromSlash(entry.Name))

		info, err := os.Stat(path)
		if err != nil {
			verr.Missing = append(verr.Missing, entry.Name)
			continue
		}
		if info.Size() == 0 {
			verr.Empty = append(verr.Empty, entry.Name)
			continue
		}

		sum, err := FileSHA256(path)
		if err != nil {
			// The file exists (Stat passed) but its bytes could not be
			// read; that is its own failure class, not absence.
			verr.Unreadable = append(verr.Unreadable, fmt.Sprintf("%s (%v)", entry.Name, err))
			continue
		}
		if sum != entry.SHA256 {
			verr.Mismatched = append(verr.Mismatched, entry.Name)
		}
	}

	if !verr.empty() {
		metrics.VerificationsTotal.WithLabelValues("invalid").Inc()
		return verr
	}
	metrics.VerificationsTotal.WithLabelValues("valid").Inc()
	return nil
}
