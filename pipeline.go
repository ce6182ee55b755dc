package pipeloom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pipeloom/pipeloom/internal/mailbox"
	"github.com/pipeloom/pipeloom/internal/persistence"
	"github.com/pipeloom/pipeloom/internal/statuswriter"
	"github.com/pipeloom/pipeloom/pkg/api"
	workerpkg "github.com/pipeloom/pipeloom/pkg/worker"
)

// Config holds the run configuration for a Pipeline.
// The zero value is usable: one worker, no persistence.
type Config struct {
	// Name labels the run in logs and on the RunSummary.
	Name string

	// Workers is the size of the worker pool. Values below 1 mean 1.
	Workers int

	// DBPath is the SQLite file backing the status store. Required when
	// StoreTaskStatus is enabled.
	DBPath string

	// WAL enables write-ahead-log mode on the status store, letting
	// external readers query live status while the run writes.
	WAL bool

	// StoreTaskStatus enables durable status persistence. When false the
	// run still tallies terminal states for the summary, but nothing is
	// written to disk.
	StoreTaskStatus bool

	// MailboxCapacity bounds the message buffer between workers and the
	// status writer. Values below 1 use a default of 1024.
	MailboxCapacity int

	// CheckpointEvery and CheckpointInterval bound WAL growth: the
	// writer checkpoints after that many upserts or after that much
	// time, whichever comes first. Zero values use the defaults
	// (500 upserts / 2s).
	CheckpointEvery    int
	CheckpointInterval time.Duration

	// Observer receives task lifecycle callbacks. Nil means none.
	Observer api.Observer

	// Logger is used for engine-internal logging. Nil means slog.Default.
	Logger *slog.Logger
}

// Pipeline runs a stream of tasks across a bounded worker pool and
// records their status through a single serialized status writer.
//
// A Pipeline is stateless between runs; the same Pipeline may be used
// for several consecutive runs, though not concurrently against the
// same DBPath.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates a Pipeline with the given configuration.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg}
}

// Run pulls tasks from source until it is exhausted, keeping up to
// cfg.Workers tasks in flight, and blocks until every dispatched task
// has finished and its status has been applied and checkpointed.
//
// A per-task fault never fails the run; it is recorded as an errored
// task in the summary (and in the status store). Run returns an error
// only for setup failures (store cannot be opened) and for a status
// writer that lost persistence mid-run; in the latter case the summary
// is still valid.
//
// Cancelling ctx stops pulling new tasks. Tasks already in flight run
// to completion and their status is drained and checkpointed as in a
// normal shutdown, so no update is lost.
func (p *Pipeline) Run(ctx context.Context, source api.Source, fn api.TaskFunc) (api.RunSummary, error) {
	summary := api.RunSummary{
		RunID:     uuid.New(),
		Name:      p.cfg.Name,
		StartedAt: time.Now().UTC(),
	}

	if source == nil {
		return summary, errors.New("pipeloom: nil task source")
	}
	if fn == nil {
		return summary, errors.New("pipeloom: nil task func")
	}

	logger := p.cfg.Logger.With(
		slog.String("run_id", summary.RunID.String()),
		slog.String("run", p.cfg.Name),
	)

	// Idle -> Running: open the store (if enabled), start the writer,
	// then the pool.

	var store persistence.StatusStore
	if p.cfg.StoreTaskStatus {
		db, err := persistence.Open(p.cfg.DBPath, p.cfg.WAL)
		if err != nil {
			return summary, fmt.Errorf("pipeloom: %w", err)
		}
		store, err = persistence.NewSQLiteStatusStore(db)
		if err != nil {
			_ = db.Close()
			return summary, fmt.Errorf("pipeloom: %w", err)
		}
	}

	box := mailbox.New(p.cfg.MailboxCapacity)

	writer := statuswriter.New(store, box, statuswriter.Config{
		CheckpointEvery:    p.cfg.CheckpointEvery,
		CheckpointInterval: p.cfg.CheckpointInterval,
	}, logger)

	// The writer and the emitting side must outlive ctx cancellation:
	// shutdown means drain, not drop. Cancellation only stops the
	// dispatcher from pulling new tasks.
	drainCtx := context.WithoutCancel(ctx)

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writer.Run(drainCtx)
	}()

	logger.Info("run started", slog.Int("workers", p.cfg.Workers))

	tasks := make(chan api.Task)
	var srcErr error

	go func() {
		defer close(tasks)
		for {
			if ctx.Err() != nil {
				logger.Info("stop requested, no new tasks will be dispatched")
				return
			}
			t, err := source.Next(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					srcErr = fmt.Errorf("pipeloom: task source: %w", err)
				}
				return
			}
			if t == nil {
				return
			}
			select {
			case tasks <- *t:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		go func() {
			defer wg.Done()

			w := workerpkg.NewWithObserver(box, p.cfg.Observer)
			for task := range tasks {
				if err := w.Execute(drainCtx, task, fn); err != nil {
					// Unreachable while the writer drains; logged
					// rather than swallowed in case that ever changes.
					logger.Error("message delivery failed",
						slog.Int64("task_id", task.ID),
						slog.Any("error", err),
					)
				}
			}
		}()
	}

	// Running -> Draining: the source is exhausted (or stop was
	// requested) once the dispatcher closed the task channel and all
	// in-flight tasks emitted their terminal message.
	wg.Wait()
	logger.Debug("pool drained, waiting for status writer")

	// Draining -> Done: closing the mailbox lets the writer drain the
	// remaining buffer, apply it, checkpoint and release the store.
	box.Close()
	writerErr := <-writerDone

	summary.Done, summary.Errored = writer.Counts()
	summary.Total = summary.Done + summary.Errored
	summary.FinishedAt = time.Now().UTC()

	logger.Info("run finished",
		slog.Int("done", summary.Done),
		slog.Int("errored", summary.Errored),
		slog.Duration("duration", summary.Duration()),
	)

	return summary, errors.Join(srcErr, writerErr)
}
