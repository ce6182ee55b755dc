package api

import (
	"context"
)

// TaskState represents the lifecycle state of a task as recorded in the
// status store.
type TaskState string

const (
	StatePending TaskState = "pending"
	StateRunning TaskState = "running"
	StateDone    TaskState = "done"
	StateError   TaskState = "error"
)

// Task is one independent unit of work. The engine never interprets
// Payload; it belongs entirely to the caller's TaskFunc.
type Task struct {
	// ID must be unique within a run. It is the primary key of the
	// status store.
	ID   int64
	Name string

	// Payload is opaque to the engine.
	Payload any
}

// ProgressFunc reports intermediate progress from inside a TaskFunc.
// step must be in [1, total] and non-decreasing across calls for the
// same task. It may block while the message channel applies
// backpressure; the returned error is only ever a context error.
type ProgressFunc func(step, total int, label string) error

// TaskFunc is the caller-supplied routine executed for each task.
//
// Return a result string on success, an error on failure. A panic inside
// the routine is captured at the worker boundary and treated like a
// returned error; it never escapes past the task's execution.
type TaskFunc func(ctx context.Context, task Task, report ProgressFunc) (result string, err error)
