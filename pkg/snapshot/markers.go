package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/flowkeep/flowkeep/pkg/types"
)

// MarkFailed flags a partial snapshot directory as the remains of an
// aborted build. Best-effort: the build error being recorded is the
// caller's primary failure, so marker write errors are dropped.
func MarkFailed(dir string, cause error) {
	content := fmt.Sprintf("build failed at %s\n%v\n", time.Now().UTC().Format(time.RFC3339), cause)
	_ = os.WriteFile(filepath.Join(dir, FailedMarkerName), []byte(content), 0o644)
}

// IsFailed reports whether the directory carries a failed-build marker.
func IsFailed(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FailedMarkerName))
	return err == nil
}

// MarkInUse flags a snapshot as referenced by an in-flight restore run.
func MarkInUse(dir, runID string) error {
	path := filepath.Join(dir, InUseMarkerName)
	if err := os.WriteFile(path, []byte(runID+"\n"), 0o644); err != nil {
		return fmt.Errorf("mark snapshot in use: %w", err)
	}
	return nil
}

// ClearInUse removes the in-use marker. Missing markers are not errors.
func ClearInUse(dir string) error {
	err := os.Remove(filepath.Join(dir, InUseMarkerName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// InUse reports whether the snapshot carries an in-use marker.
func InUse(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, InUseMarkerName))
	return err == nil
}

// AcquireLock takes the directory-level advisory lock for a snapshot.
// Acquisition is non-blocking: if another invocation holds the lock,
// *types.ConcurrentOperationError is returned immediately. The returned
// release function removes the lock.
func AcquireLock(dir string) (func(), error) {
	path := filepath.Join(dir, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			holder := ""
			if data, rerr := os.ReadFile(path); rerr == nil {
				holder = strings.TrimSpace(string(data))
			}
			return nil, &types.ConcurrentOperationError{Resource: dir, Holder: holder}
		}
		return nil, fmt.Errorf("acquire lock on %s: %w", dir, err)
	}

	_, _ = f.WriteString("pid " + strconv.Itoa(os.Getpid()) + "\n")
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return func() { _ = os.Remove(path) }, nil
}
