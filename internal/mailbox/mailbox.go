package mailbox

import (
	"context"

	"github.com/pipeloom/pipeloom/pkg/api"
)

// Mailbox is the bounded channel carrying lifecycle messages from many
// worker goroutines to the single status writer. It is safe for
// concurrent use.
//
// The buffer is bounded on purpose: when the writer falls behind,
// producers block in Put instead of growing memory without limit. No
// message is ever dropped.
type Mailbox struct {
	ch chan api.Message
}

// New creates a mailbox with the given capacity.
// For most runs a modest capacity (e.g. 1024) is fine.
func New(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Mailbox{
		ch: make(chan api.Message, capacity),
	}
}

// Ensure Mailbox implements api.Sink.
var _ api.Sink = (*Mailbox)(nil)

// Put delivers a message, blocking while the buffer is full.
func (m *Mailbox) Put(ctx context.Context, msg api.Message) error {
	select {
	case m.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the next message. ok is false once the mailbox has been
// closed and fully drained.
func (m *Mailbox) Get(ctx context.Context) (msg api.Message, ok bool, err error) {
	select {
	case msg, ok := <-m.ch:
		return msg, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Close marks the mailbox as complete. Only the owner may call it, and
// only after all producers have stopped.
func (m *Mailbox) Close() {
	close(m.ch)
}

// Len returns the number of buffered messages.
func (m *Mailbox) Len() int {
	return len(m.ch)
}
