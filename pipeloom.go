package pipeloom

import (
	"context"
	"database/sql"

	"github.com/pipeloom/pipeloom/internal/persistence"
	"github.com/pipeloom/pipeloom/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Task                 = api.Task
	TaskState            = api.TaskState
	TaskFunc             = api.TaskFunc
	ProgressFunc         = api.ProgressFunc
	Message              = api.Message
	TaskStarted          = api.TaskStarted
	TaskProgress         = api.TaskProgress
	TaskFinished         = api.TaskFinished
	StatusRow            = api.StatusRow
	Source               = api.Source
	SourceFunc           = api.SourceFunc
	RunSummary           = api.RunSummary
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export source adapters and observer helpers.

var (
	SliceSource          = api.SliceSource
	ChannelSource        = api.ChannelSource
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export task states for convenience.

const (
	StatePending = api.StatePending
	StateRunning = api.StateRunning
	StateDone    = api.StateDone
	StateError   = api.StateError
)

// OpenDB opens the SQLite database at path with the engine's pragmas
// applied (WAL journal mode when wal is true, NORMAL synchronous).
//
// The engine opens its own handle for the status store during Run; this
// helper is for caller-side work against the same file, such as creating
// target tables or reading live status from another process. Handles
// returned by OpenDB must not be used to write the task_status table.
func OpenDB(path string, wal bool) (*sql.DB, error) {
	return persistence.Open(path, wal)
}

// EnsureSchema idempotently applies caller-defined DDL, typically a
// CREATE TABLE IF NOT EXISTS for a task's target table.
func EnsureSchema(ctx context.Context, db *sql.DB, ddl string) error {
	return persistence.EnsureSchema(ctx, db, ddl)
}

// ReadStatus returns the status rows currently recorded in the database
// behind db, ordered by task ID. It may be called while a run is in
// flight; with WAL enabled readers are never blocked by the writer.
func ReadStatus(ctx context.Context, db *sql.DB) ([]StatusRow, error) {
	store := persistence.ReadOnlyView(db)
	return store.List(ctx, persistence.RowFilter{})
}
