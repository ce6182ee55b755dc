package persistence

import (
	"context"
	"errors"

	"github.com/pipeloom/pipeloom/pkg/api"
)

var (
	// ErrStoreOpen is returned when the backing database cannot be
	// opened or configured.
	ErrStoreOpen = errors.New("status store open failed")

	// ErrSchema is returned when a schema statement cannot be applied.
	ErrSchema = errors.New("status store schema error")

	// ErrRowNotFound is returned when no status row exists for a task.
	ErrRowNotFound = errors.New("status row not found")

	// ErrCheckpointBusy is returned when a checkpoint could not complete
	// because a reader held the log. The log is folded by a later
	// checkpoint; callers may treat this as transient.
	ErrCheckpointBusy = errors.New("wal checkpoint busy")
)

// CheckpointMode selects how aggressively a WAL checkpoint folds the log
// back into the main database file.
type CheckpointMode string

const (
	CheckpointPassive  CheckpointMode = "PASSIVE"
	CheckpointFull     CheckpointMode = "FULL"
	CheckpointTruncate CheckpointMode = "TRUNCATE"
)

// RowFilter selects status rows from the store.
// Empty fields mean "no filter".
type RowFilter struct {
	Name  string
	State api.TaskState
}

// StatusStore persists the latest known status per task.
//
// The underlying engine permits only one writer at a time, so a store
// handle must only ever be written to from a single goroutine: the
// status writer owns it for the duration of a run.
type StatusStore interface {
	// Upsert inserts a status row or, if the task ID already exists,
	// overwrites all non-key fields. Each call is atomic.
	Upsert(ctx context.Context, row api.StatusRow) error

	// Checkpoint folds the write-ahead log into the main database file,
	// bounding log growth. With CheckpointTruncate the log file is also
	// truncated to zero bytes.
	Checkpoint(ctx context.Context, mode CheckpointMode) error

	// Get returns the status row for a task, or ErrRowNotFound.
	Get(ctx context.Context, taskID int64) (api.StatusRow, error)

	// List returns status rows matching the filter.
	List(ctx context.Context, filter RowFilter) ([]api.StatusRow, error)

	// Close releases the underlying handle.
	Close() error
}
