package secret

import "fmt"

// MismatchError reports that a snapshot's encryption key differs from
// the target environment's active key. Both values are carried in full:
// the operator needs them side by side to reconcile manually, and there
// is no after-the-fact recovery once a mismatched restore has run.
//
// The error must reach the operator through local channels only (CLI
// stderr). It is never written to the structured log, which may be
// shipped to shared sinks.
type MismatchError struct {
	// SnapshotKey is the key embedded in the snapshot manifest
	SnapshotKey string

	// EnvironmentKey is the target environment's active key
	EnvironmentKey string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"encryption key mismatch: snapshot was taken under key %q but the target environment's active key is %q; "+
			"credentials restored under the wrong key are permanently undecryptable",
		e.SnapshotKey, e.EnvironmentKey,
	)
}

// CheckMatch compares a snapshot's embedded encryption key against the
// target environment's active key: exact byte-for-byte equality, no
// normalization, no partial matching. An empty snapshot key means the
// snapshot carries no fingerprint (same-environment backup) and is a
// mismatch when checked against any environment, including one whose
// own key is empty; skipping the gate takes an explicit flag, never an
// accidental pair of blanks.
func CheckMatch(snapshotKey, activeKey string) error {
	if snapshotKey != "" && snapshotKey == activeKey {
		return nil
	}
	return &MismatchError{
		SnapshotKey:    snapshotKey,
		EnvironmentKey: activeKey,
	}
}
