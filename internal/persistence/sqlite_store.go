package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pipeloom/pipeloom/pkg/api"
)

// Open opens (or creates) the SQLite database at path and applies the
// pragmas the engine relies on. With wal enabled the database uses
// write-ahead logging, so external readers are never blocked by the
// single in-flight writer.
//
// The returned handle is limited to one connection: SQLite permits only
// one writer at a time, and the engine funnels all writes through the
// status writer anyway.
func Open(path string, wal bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreOpen, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	if wal {
		pragmas = append([]string{"PRAGMA journal_mode=WAL;"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrStoreOpen, p, err)
		}
	}

	return db, nil
}

// EnsureSchema idempotently applies caller-defined DDL (typically a
// CREATE TABLE IF NOT EXISTS for a task's target table). Failures are
// reported as ErrSchema.
func EnsureSchema(ctx context.Context, db *sql.DB, ddl string) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// SQLiteStatusStore is a StatusStore backed by SQLite via
// modernc.org/sqlite.
type SQLiteStatusStore struct {
	db *sql.DB
}

// Ensure SQLiteStatusStore implements StatusStore.
var _ StatusStore = (*SQLiteStatusStore)(nil)

// NewSQLiteStatusStore initializes the task_status table in the given
// database and returns a new SQLiteStatusStore. The store takes
// ownership of db; Close closes it.
func NewSQLiteStatusStore(db *sql.DB) (*SQLiteStatusStore, error) {
	s := &SQLiteStatusStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadOnlyView wraps an existing handle for querying task_status without
// touching the schema. Used by external readers observing a live run;
// such handles must never write.
func ReadOnlyView(db *sql.DB) *SQLiteStatusStore {
	return &SQLiteStatusStore{db: db}
}

func (s *SQLiteStatusStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS task_status (
			task_id     INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			state       TEXT NOT NULL,
			started_at  TEXT,
			finished_at TEXT,
			last_step   INTEGER NOT NULL DEFAULT 0,
			total_steps INTEGER NOT NULL DEFAULT 0,
			detail      TEXT
		);`,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func (s *SQLiteStatusStore) Upsert(ctx context.Context, row api.StatusRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_status (task_id, name, state, started_at, finished_at, last_step, total_steps, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			last_step = excluded.last_step,
			total_steps = excluded.total_steps,
			detail = excluded.detail`,
		row.TaskID,
		row.Name,
		string(row.State),
		encodeTime(row.StartedAt),
		encodeTime(row.FinishedAt),
		row.LastStep,
		row.TotalSteps,
		row.Detail,
	)
	return err
}

func (s *SQLiteStatusStore) Checkpoint(ctx context.Context, mode CheckpointMode) error {
	// wal_checkpoint reports (busy, log frames, checkpointed frames).
	var busy, logFrames, checkpointed int
	err := s.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint("+string(mode)+");").
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return err
	}
	if busy != 0 {
		return ErrCheckpointBusy
	}
	return nil
}

func (s *SQLiteStatusStore) Get(ctx context.Context, taskID int64) (api.StatusRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, name, state, started_at, finished_at, last_step, total_steps, detail
		FROM task_status
		WHERE task_id = ?`,
		taskID,
	)
	return scanStatusRow(row.Scan)
}

func (s *SQLiteStatusStore) List(ctx context.Context, filter RowFilter) ([]api.StatusRow, error) {
	query := `
		SELECT task_id, name, state, started_at, finished_at, last_step, total_steps, detail
		FROM task_status`
	var args []any
	var clauses []string

	if filter.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, string(filter.State))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}
	query = query + " ORDER BY task_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.StatusRow
	for rows.Next() {
		r, err := scanStatusRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *SQLiteStatusStore) Close() error {
	return s.db.Close()
}

func scanStatusRow(scan func(dest ...any) error) (api.StatusRow, error) {
	var (
		r        api.StatusRow
		stateStr string
		started  sql.NullString
		finished sql.NullString
		detail   sql.NullString
	)

	err := scan(&r.TaskID, &r.Name, &stateStr, &started, &finished, &r.LastStep, &r.TotalSteps, &detail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.StatusRow{}, ErrRowNotFound
		}
		return api.StatusRow{}, err
	}

	r.State = api.TaskState(stateStr)
	r.StartedAt = decodeTime(started)
	r.FinishedAt = decodeTime(finished)
	if detail.Valid {
		r.Detail = detail.String
	}

	return r, nil
}

// Timestamps are stored as RFC 3339 text; zero times map to NULL.

func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
