package statuswriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipeloom/pipeloom/internal/mailbox"
	"github.com/pipeloom/pipeloom/internal/persistence"
	"github.com/pipeloom/pipeloom/pkg/api"
)

// Config controls the writer's checkpoint cadence and write retries.
type Config struct {
	// CheckpointEvery issues a WAL checkpoint after this many upserts.
	CheckpointEvery int

	// CheckpointInterval issues a WAL checkpoint once this much time has
	// passed since the previous one, even if fewer than CheckpointEvery
	// upserts accumulated. Whichever limit is hit first wins.
	CheckpointInterval time.Duration

	// MaxWriteAttempts bounds retries of a failed upsert or checkpoint.
	// The writer is the sole writer, so retrying is safe.
	MaxWriteAttempts int

	// RetryBackoff is the pause between write attempts.
	RetryBackoff time.Duration
}

const (
	DefaultCheckpointEvery    = 500
	DefaultCheckpointInterval = 2 * time.Second
	defaultMaxWriteAttempts   = 3
	defaultRetryBackoff       = 50 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = DefaultCheckpointEvery
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = DefaultCheckpointInterval
	}
	if c.MaxWriteAttempts <= 0 {
		c.MaxWriteAttempts = defaultMaxWriteAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	return c
}

// Writer is the single consumer of the message mailbox. It projects
// lifecycle messages into status rows, applies them to the store, and
// checkpoints the write-ahead log at a bounded cadence.
//
// Exactly one Writer runs per pipeline, and it is the only component
// that ever writes to the status store. That invariant is what keeps
// concurrent workers from contending on the single-writer storage
// engine.
type Writer struct {
	store  persistence.StatusStore // nil: tally only, nothing persisted
	box    *mailbox.Mailbox
	cfg    Config
	logger *slog.Logger

	// rows holds the in-flight projection per task; entries are dropped
	// once the terminal upsert has been applied.
	rows map[int64]api.StatusRow

	done        int
	errored     int
	upserts     int
	checkpoints int

	sinceCheckpoint int
	lastCheckpoint  time.Time

	// writeErr records an exhausted-retries store failure. Once set, the
	// writer stops persisting but keeps draining so producers never
	// block; the error is surfaced when Run returns.
	writeErr error
}

// New creates a Writer consuming box and writing to store. A nil store
// disables persistence; the writer then only tallies terminal states.
// The Writer takes ownership of a non-nil store and closes it when Run
// returns.
func New(store persistence.StatusStore, box *mailbox.Mailbox, cfg Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:  store,
		box:    box,
		cfg:    cfg.withDefaults(),
		logger: logger,
		rows:   make(map[int64]api.StatusRow),
	}
}

// Run drains the mailbox until it is closed and empty, then issues a
// final checkpoint and releases the store. It returns the first
// escalated store-write failure, if any.
//
// The caller should pass a context that is not cancelled on run
// shutdown: shutting down means "drain what remains", not "stop".
func (w *Writer) Run(ctx context.Context) error {
	w.lastCheckpoint = time.Now()

	defer func() {
		if w.store != nil {
			if err := w.store.Close(); err != nil {
				w.logger.Error("status store close failed", slog.Any("error", err))
			}
		}
	}()

	for {
		msg, ok, err := w.box.Get(ctx)
		if err != nil {
			// Only possible if the surrounding context dies mid-run;
			// treated as a defect rather than a clean shutdown.
			return fmt.Errorf("status writer interrupted: %w", err)
		}
		if !ok {
			break
		}
		w.apply(ctx, msg)
	}

	// Final checkpoint so a clean shutdown leaves an empty log.
	if w.store != nil && w.writeErr == nil && w.upserts > 0 {
		w.checkpoint(ctx)
	}

	return w.writeErr
}

// Counts returns the number of tasks that reached done and error state.
func (w *Writer) Counts() (done, errored int) {
	return w.done, w.errored
}

// Checkpoints returns the number of checkpoints issued.
func (w *Writer) Checkpoints() int {
	return w.checkpoints
}

func (w *Writer) apply(ctx context.Context, msg api.Message) {
	id := msg.MessageTaskID()
	row := w.rows[id]
	row.TaskID = id

	switch m := msg.(type) {
	case api.TaskStarted:
		row.Name = m.Name
		row.State = api.StateRunning
		row.StartedAt = m.StartedAt

	case api.TaskProgress:
		row.LastStep = m.Step
		row.TotalSteps = m.Total
		row.Detail = m.Label

	case api.TaskFinished:
		row.State = m.State
		row.FinishedAt = m.FinishedAt
		if m.State == api.StateError {
			row.Detail = m.Detail
		} else {
			row.Detail = m.Result
		}
	}

	w.rows[id] = row
	w.persist(ctx, row)

	if fin, isFinished := msg.(api.TaskFinished); isFinished {
		if fin.State == api.StateError {
			w.errored++
		} else {
			w.done++
		}
		// Terminal status is durable (or persistence is off); the
		// projection entry is no longer needed.
		delete(w.rows, id)
	}
}

func (w *Writer) persist(ctx context.Context, row api.StatusRow) {
	if w.store == nil || w.writeErr != nil {
		return
	}

	if err := w.retry(ctx, func() error { return w.store.Upsert(ctx, row) }); err != nil {
		w.writeErr = fmt.Errorf("status upsert for task %d: %w", row.TaskID, err)
		w.logger.Error("status persistence lost, run continues without it",
			slog.Int64("task_id", row.TaskID),
			slog.Any("error", err),
		)
		return
	}
	w.upserts++
	w.sinceCheckpoint++

	if w.sinceCheckpoint >= w.cfg.CheckpointEvery ||
		time.Since(w.lastCheckpoint) >= w.cfg.CheckpointInterval {
		w.checkpoint(ctx)
	}
}

func (w *Writer) checkpoint(ctx context.Context) {
	err := w.retry(ctx, func() error {
		return w.store.Checkpoint(ctx, persistence.CheckpointTruncate)
	})
	if errors.Is(err, persistence.ErrCheckpointBusy) {
		// A reader held the log; the next checkpoint folds it. Not a
		// lost write, so no escalation.
		w.logger.Debug("wal checkpoint deferred, log busy")
		w.sinceCheckpoint = 0
		w.lastCheckpoint = time.Now()
		return
	}
	if err != nil {
		w.writeErr = fmt.Errorf("wal checkpoint: %w", err)
		w.logger.Error("status persistence lost, run continues without it",
			slog.Any("error", err),
		)
		return
	}

	w.checkpoints++
	w.sinceCheckpoint = 0
	w.lastCheckpoint = time.Now()

	w.logger.Debug("wal checkpoint",
		slog.Int("checkpoints", w.checkpoints),
		slog.Int("upserts", w.upserts),
	)
}

func (w *Writer) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= w.cfg.MaxWriteAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < w.cfg.MaxWriteAttempts {
			select {
			case <-time.After(w.cfg.RetryBackoff):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}
