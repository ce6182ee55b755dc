package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/pipeloom/pipeloom/pkg/api"
)

func TestMemoryStatusStore_UpsertGetList(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, api.StatusRow{TaskID: 1, Name: "a", State: api.StateRunning}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, api.StatusRow{TaskID: 1, Name: "a", State: api.StateDone, Detail: "ok:a"}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, api.StatusRow{TaskID: 2, Name: "b", State: api.StateError, Detail: "boom"}); err != nil {
		t.Fatalf("third Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != api.StateDone || got.Detail != "ok:a" {
		t.Fatalf("unexpected row: %+v", got)
	}

	_, err = store.Get(ctx, 42)
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}

	failed, err := store.List(ctx, RowFilter{State: api.StateError})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].TaskID != 2 {
		t.Fatalf("unexpected errored rows: %+v", failed)
	}
}

func TestMemoryStatusStore_CountsCheckpoints(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Checkpoint(ctx, CheckpointTruncate); err != nil {
			t.Fatalf("Checkpoint failed: %v", err)
		}
	}
	if got := store.Checkpoints(); got != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", got)
	}
}
