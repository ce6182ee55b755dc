package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay task execution. Callbacks for
// different tasks may arrive concurrently from different worker
// goroutines.
type Observer interface {
	// OnTaskStart is called once per task, before the caller routine runs.
	OnTaskStart(ctx context.Context, task Task)

	// OnTaskProgress is called for every progress report from the
	// caller routine.
	OnTaskProgress(ctx context.Context, task Task, step, total int, label string)

	// OnTaskFinished is called after the routine returns or faults, for
	// both successes and failures (err != nil).
	OnTaskFinished(ctx context.Context, task Task, state TaskState, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnTaskStart(ctx context.Context, task Task) {}
func (NoopObserver) OnTaskProgress(ctx context.Context, task Task, step, total int, label string) {
}
func (NoopObserver) OnTaskFinished(ctx context.Context, task Task, state TaskState, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnTaskStart(ctx context.Context, task Task) {
	for _, o := range c.observers {
		o.OnTaskStart(ctx, task)
	}
}

func (c *CompositeObserver) OnTaskProgress(ctx context.Context, task Task, step, total int, label string) {
	for _, o := range c.observers {
		o.OnTaskProgress(ctx, task, step, total, label)
	}
}

func (c *CompositeObserver) OnTaskFinished(ctx context.Context, task Task, state TaskState, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnTaskFinished(ctx, task, state, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs task lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is
// used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnTaskStart(ctx context.Context, task Task) {
	o.Logger.InfoContext(ctx, "task_start",
		slog.Int64("task_id", task.ID),
		slog.String("task", task.Name),
	)
}

func (o *LoggingObserver) OnTaskProgress(ctx context.Context, task Task, step, total int, label string) {
	o.Logger.DebugContext(ctx, "task_progress",
		slog.Int64("task_id", task.ID),
		slog.String("task", task.Name),
		slog.Int("step", step),
		slog.Int("total", total),
		slog.String("label", label),
	)
}

func (o *LoggingObserver) OnTaskFinished(ctx context.Context, task Task, state TaskState, err error, d time.Duration) {
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "task_finished",
		slog.Int64("task_id", task.ID),
		slog.String("task", task.Name),
		slog.String("state", string(state)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate task durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	tasksStarted      atomic.Int64
	tasksDone         atomic.Int64
	tasksErrored      atomic.Int64
	progressReports   atomic.Int64
	totalTaskDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	TasksStarted  int64
	TasksDone     int64
	TasksErrored  int64
	TasksInFlight int64

	ProgressReports int64
	AvgTaskDuration time.Duration
}

func (m *BasicMetrics) OnTaskStart(ctx context.Context, task Task) {
	m.tasksStarted.Add(1)
}

func (m *BasicMetrics) OnTaskProgress(ctx context.Context, task Task, step, total int, label string) {
	m.progressReports.Add(1)
}

func (m *BasicMetrics) OnTaskFinished(ctx context.Context, task Task, state TaskState, err error, d time.Duration) {
	if err != nil {
		m.tasksErrored.Add(1)
	} else {
		m.tasksDone.Add(1)
	}
	m.totalTaskDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.tasksStarted.Load()
	done := m.tasksDone.Load()
	errored := m.tasksErrored.Load()
	totalNs := m.totalTaskDuration.Load()

	var avg time.Duration
	if finished := done + errored; finished > 0 {
		avg = time.Duration(totalNs / finished)
	}

	return BasicMetricsSnapshot{
		TasksStarted:    started,
		TasksDone:       done,
		TasksErrored:    errored,
		TasksInFlight:   started - done - errored,
		ProgressReports: m.progressReports.Load(),
		AvgTaskDuration: avg,
	}
}
