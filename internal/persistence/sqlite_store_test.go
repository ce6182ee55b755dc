package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pipeloom/pipeloom/pkg/api"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStatusStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "status.db")
	db, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	store, err := NewSQLiteStatusStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStatusStore failed: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store, path
}

func TestSQLiteStatusStore_UpsertGet(t *testing.T) {
	store, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row := api.StatusRow{
		TaskID:    1,
		Name:      "posts",
		State:     api.StateRunning,
		StartedAt: started,
	}

	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "posts" || got.State != api.StateRunning {
		t.Fatalf("unexpected row: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("expected StartedAt %v, got %v", started, got.StartedAt)
	}
	if !got.FinishedAt.IsZero() {
		t.Fatalf("expected zero FinishedAt, got %v", got.FinishedAt)
	}

	// Overwrite all non-key fields.
	row.State = api.StateDone
	row.FinishedAt = started.Add(3 * time.Second)
	row.LastStep = 3
	row.TotalSteps = 3
	row.Detail = "ok:posts"

	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got2, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get after update failed: %v", err)
	}
	if got2.State != api.StateDone || got2.LastStep != 3 || got2.Detail != "ok:posts" {
		t.Fatalf("unexpected updated row: %+v", got2)
	}
}

func TestSQLiteStatusStore_UpsertIdempotent(t *testing.T) {
	store, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	row := api.StatusRow{
		TaskID:     2,
		Name:       "todos",
		State:      api.StateError,
		FinishedAt: time.Now().UTC().Truncate(time.Millisecond),
		Detail:     "boom",
	}

	// Applying the same terminal row twice must yield the same result
	// as applying it once.
	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	rows, err := store.List(ctx, RowFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].State != api.StateError || rows[0].Detail != "boom" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestSQLiteStatusStore_GetNotFound(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	_, err := store.Get(context.Background(), 999)
	if err == nil {
		t.Fatalf("expected error for missing row")
	}
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestSQLiteStatusStore_ListFilter(t *testing.T) {
	store, _ := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, row := range []api.StatusRow{
		{TaskID: 1, Name: "posts", State: api.StateDone},
		{TaskID: 2, Name: "todos", State: api.StateDone},
		{TaskID: 3, Name: "todos", State: api.StateError, Detail: "boom"},
	} {
		if err := store.Upsert(ctx, row); err != nil {
			t.Fatalf("Upsert(%d) failed: %v", row.TaskID, err)
		}
	}

	all, err := store.List(ctx, RowFilter{})
	if err != nil {
		t.Fatalf("List (no filter) failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}

	failed, err := store.List(ctx, RowFilter{State: api.StateError})
	if err != nil {
		t.Fatalf("List (state filter) failed: %v", err)
	}
	if len(failed) != 1 || failed[0].TaskID != 3 {
		t.Fatalf("unexpected errored rows: %+v", failed)
	}

	todos, err := store.List(ctx, RowFilter{Name: "todos"})
	if err != nil {
		t.Fatalf("List (name filter) failed: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("expected 2 todos rows, got %d", len(todos))
	}
}

func TestSQLiteStatusStore_CheckpointTruncatesLog(t *testing.T) {
	store, path := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 50; i++ {
		row := api.StatusRow{TaskID: i, Name: "bulk", State: api.StateDone}
		if err := store.Upsert(ctx, row); err != nil {
			t.Fatalf("Upsert(%d) failed: %v", i, err)
		}
	}

	walPath := path + "-wal"
	before, err := os.Stat(walPath)
	if err != nil {
		t.Fatalf("expected a WAL file after writes: %v", err)
	}
	if before.Size() == 0 {
		t.Fatalf("expected non-empty WAL before checkpoint")
	}

	if err := store.Checkpoint(ctx, CheckpointTruncate); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	after, err := os.Stat(walPath)
	if err != nil {
		t.Fatalf("stat WAL after checkpoint: %v", err)
	}
	if after.Size() != 0 {
		t.Fatalf("expected truncated WAL, got %d bytes", after.Size())
	}
}

func TestOpen_UnwritablePath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "status.db"), true)
	if err == nil {
		t.Fatalf("expected error for unwritable path")
	}
	if !errors.Is(err, ErrStoreOpen) {
		t.Fatalf("expected ErrStoreOpen, got %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	db, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	ddl := `CREATE TABLE IF NOT EXISTS posts (id INTEGER PRIMARY KEY, title TEXT);`

	if err := EnsureSchema(ctx, db, ddl); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Idempotent: applying the same DDL again is fine.
	if err := EnsureSchema(ctx, db, ddl); err != nil {
		t.Fatalf("EnsureSchema (repeat) failed: %v", err)
	}

	err = EnsureSchema(ctx, db, `CREATE TABLE posts (id INTEGER);`)
	if err == nil {
		t.Fatalf("expected error for conflicting schema")
	}
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}
