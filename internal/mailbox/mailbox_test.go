package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/pipeloom/pipeloom/pkg/api"
)

func TestMailbox_PutGet(t *testing.T) {
	box := New(4)
	ctx := context.Background()

	want := api.TaskStarted{TaskID: 7, Name: "t7"}
	if err := box.Put(ctx, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	msg, ok, err := box.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected open mailbox")
	}

	got, isStarted := msg.(api.TaskStarted)
	if !isStarted {
		t.Fatalf("expected TaskStarted, got %T", msg)
	}
	if got.TaskID != 7 || got.Name != "t7" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestMailbox_PutBlocksWhenFull(t *testing.T) {
	box := New(1)
	ctx := context.Background()

	if err := box.Put(ctx, api.TaskProgress{TaskID: 1, Step: 1, Total: 1}); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}

	// The buffer is full; a second Put must block until cancelled.
	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := box.Put(blockedCtx, api.TaskProgress{TaskID: 2, Step: 1, Total: 1})
	if err == nil {
		t.Fatalf("expected Put on a full mailbox to block until ctx expiry")
	}
	if blockedCtx.Err() == nil {
		t.Fatalf("Put returned %v before ctx expired", err)
	}
}

func TestMailbox_CloseDrains(t *testing.T) {
	box := New(8)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := box.Put(ctx, api.TaskFinished{TaskID: i, State: api.StateDone}); err != nil {
			t.Fatalf("Put(%d) failed: %v", i, err)
		}
	}
	box.Close()

	// Buffered messages remain readable after Close.
	for i := int64(1); i <= 3; i++ {
		msg, ok, err := box.Get(ctx)
		if err != nil || !ok {
			t.Fatalf("Get(%d) = (%v, %v, %v), want buffered message", i, msg, ok, err)
		}
		if msg.MessageTaskID() != i {
			t.Fatalf("expected task %d, got %d", i, msg.MessageTaskID())
		}
	}

	_, ok, err := box.Get(ctx)
	if err != nil {
		t.Fatalf("Get after drain failed: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false once closed and drained")
	}
}

func TestMailbox_GetHonorsContext(t *testing.T) {
	box := New(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := box.Get(ctx)
	if err == nil {
		t.Fatalf("expected context error from Get on empty mailbox")
	}
}
