package pipeloom

import (
	"context"
	"log/slog"
	"time"

	"github.com/pipeloom/pipeloom/pkg/api"
)

// RunBuilder provides a fluent API for configuring a run:
//
//	summary, err := pipeloom.New("nightly-etl").
//	    Workers(4).
//	    DBPath("etl.db").
//	    WAL(true).
//	    StoreTaskStatus(true).
//	    Run(ctx, source, workerFn)
type RunBuilder struct {
	cfg Config
}

// New creates a new run builder with the given name.
func New(name string) *RunBuilder {
	return &RunBuilder{
		cfg: Config{
			Name:    name,
			Workers: 1,
		},
	}
}

// Workers sets the worker pool size.
func (b *RunBuilder) Workers(n int) *RunBuilder {
	if n < 1 {
		panic("pipeloom: workers must be at least 1")
	}
	b.cfg.Workers = n
	return b
}

// DBPath sets the SQLite file backing the status store.
func (b *RunBuilder) DBPath(path string) *RunBuilder {
	b.cfg.DBPath = path
	return b
}

// WAL enables or disables write-ahead-log mode on the status store.
func (b *RunBuilder) WAL(on bool) *RunBuilder {
	b.cfg.WAL = on
	return b
}

// StoreTaskStatus enables or disables durable status persistence.
func (b *RunBuilder) StoreTaskStatus(on bool) *RunBuilder {
	b.cfg.StoreTaskStatus = on
	return b
}

// MailboxCapacity bounds the buffer between workers and the status
// writer.
func (b *RunBuilder) MailboxCapacity(n int) *RunBuilder {
	b.cfg.MailboxCapacity = n
	return b
}

// Checkpoint sets the checkpoint cadence: a WAL checkpoint is issued
// after every upserts or after interval, whichever comes first.
func (b *RunBuilder) Checkpoint(every int, interval time.Duration) *RunBuilder {
	b.cfg.CheckpointEvery = every
	b.cfg.CheckpointInterval = interval
	return b
}

// Observer attaches an Observer receiving task lifecycle callbacks.
func (b *RunBuilder) Observer(obs api.Observer) *RunBuilder {
	b.cfg.Observer = obs
	return b
}

// Logger sets the logger used for engine-internal logging.
func (b *RunBuilder) Logger(logger *slog.Logger) *RunBuilder {
	b.cfg.Logger = logger
	return b
}

// Config returns the accumulated configuration.
// Typically used when interacting with lower-level APIs.
func (b *RunBuilder) Config() Config {
	return b.cfg
}

// Build returns a Pipeline with the accumulated configuration.
func (b *RunBuilder) Build() *Pipeline {
	return NewPipeline(b.cfg)
}

// Run is shorthand for Build().Run(ctx, source, fn).
func (b *RunBuilder) Run(ctx context.Context, source api.Source, fn api.TaskFunc) (api.RunSummary, error) {
	return b.Build().Run(ctx, source, fn)
}
