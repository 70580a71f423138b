package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/flowkeep/flowkeep/pkg/types"
)

// openTimeout bounds the wait for the registry file lock. Another
// flowkeep process holding the registry is reported as a concurrent
// operation, not waited out.
const openTimeout = time.Second

var (
	// Bucket names
	bucketSnapshots      = []byte("snapshots")
	bucketRestoreRuns    = []byte("restore_runs")
	bucketActiveRestores = []byte("active_restores")
)

// Registry is the BoltDB-backed record of what this tool has done:
// an index of built snapshots, the history of restore runs, and the
// active-restore marker that enforces one run per environment.
type Registry struct {
	db *bolt.DB
}

// Open opens (creating if needed) the registry at path. The underlying
// file is exclusively locked; when another process already holds it,
// Open gives up after openTimeout and returns
// *types.ConcurrentOperationError instead of queueing behind the holder.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, &types.ConcurrentOperationError{
				Resource: path,
				Holder:   "another flowkeep process",
			}
		}
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketSnapshots,
			bucketRestoreRuns,
			bucketActiveRestores,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Registry{db: db}, nil
}

// Close closes the registry
func (r *Registry) Close() error {
	return r.db.Close()
}

// RecordSnapshot indexes a built snapshot.
func (r *Registry) RecordSnapshot(rec *types.SnapshotRecord) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
}

// ListSnapshots returns all indexed snapshots.
func (r *Registry) ListSnapshots() ([]*types.SnapshotRecord, error) {
	var recs []*types.SnapshotRecord
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.ForEach(func(k, v []byte) error {
			var rec types.SnapshotRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	return recs, err
}

// DeleteSnapshot removes a snapshot from the index (after a sweep).
func (r *Registry) DeleteSnapshot(id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(id))
	})
}

// BeginRestore registers a restore run and claims the environment's
// active-restore slot. A second concurrent run against the same
// environment is rejected with *types.ConcurrentOperationError, never
// queued.
func (r *Registry) BeginRestore(run *types.RestoreRun) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		active := tx.Bucket(bucketActiveRestores)
		key := []byte(run.Environment)
		if holder := active.Get(key); holder != nil {
			return &types.ConcurrentOperationError{
				Resource: "environment " + run.Environment,
				Holder:   string(holder),
			}
		}
		if err := active.Put(key, []byte(run.ID)); err != nil {
			return err
		}
		return putRun(tx, run)
	})
}

// UpdateRestore persists the run's current state.
func (r *Registry) UpdateRestore(run *types.RestoreRun) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return putRun(tx, run)
	})
}

// FinishRestore persists the run's final state and releases the
// environment's active-restore slot.
func (r *Registry) FinishRestore(run *types.RestoreRun) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := putRun(tx, run); err != nil {
			return err
		}
		return tx.Bucket(bucketActiveRestores).Delete([]byte(run.Environment))
	})
}

// ActiveRestore returns the run currently holding the environment's
// slot, or nil.
func (r *Registry) ActiveRestore(environment string) (*types.RestoreRun, error) {
	var run *types.RestoreRun
	err := r.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketActiveRestores).Get([]byte(environment))
		if id == nil {
			return nil
		}
		data := tx.Bucket(bucketRestoreRuns).Get(id)
		if data == nil {
			return fmt.Errorf("active restore %s has no run record", id)
		}
		run = &types.RestoreRun{}
		return json.Unmarshal(data, run)
	})
	return run, err
}

// GetRestore returns one run record by ID.
func (r *Registry) GetRestore(id string) (*types.RestoreRun, error) {
	var run types.RestoreRun
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRestoreRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("restore run not found: %s", id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRestores returns all recorded restore runs.
func (r *Registry) ListRestores() ([]*types.RestoreRun, error) {
	var runs []*types.RestoreRun
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRestoreRuns)
		return b.ForEach(func(k, v []byte) error {
			var run types.RestoreRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	return runs, err
}

func putRun(tx *bolt.Tx, run *types.RestoreRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketRestoreRuns).Put([]byte(run.ID), data)
}
