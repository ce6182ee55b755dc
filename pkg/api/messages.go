package api

import (
	"context"
	"time"
)

// Message is one of the three lifecycle events a worker emits while
// executing a task: TaskStarted, TaskProgress or TaskFinished.
//
// The interface is sealed so the set of variants is closed at compile
// time; consumers switch on the concrete type.
type Message interface {
	// MessageTaskID returns the ID of the task this message belongs to.
	MessageTaskID() int64

	lifecycleMessage()
}

// TaskStarted is emitted exactly once, before any other message for the
// same task.
type TaskStarted struct {
	TaskID    int64
	Name      string
	StartedAt time.Time
}

// TaskProgress is emitted zero or more times between TaskStarted and
// TaskFinished. Step is non-decreasing per task and 1 <= Step <= Total.
type TaskProgress struct {
	TaskID int64
	Step   int
	Total  int
	Label  string
}

// TaskFinished is emitted exactly once, last. State is StateDone or
// StateError. Result is set only when the task succeeded; Detail carries
// the captured fault description when it failed.
type TaskFinished struct {
	TaskID     int64
	State      TaskState
	FinishedAt time.Time
	Result     string
	Detail     string
}

func (m TaskStarted) MessageTaskID() int64  { return m.TaskID }
func (m TaskProgress) MessageTaskID() int64 { return m.TaskID }
func (m TaskFinished) MessageTaskID() int64 { return m.TaskID }

func (TaskStarted) lifecycleMessage()  {}
func (TaskProgress) lifecycleMessage() {}
func (TaskFinished) lifecycleMessage() {}

// Sink accepts lifecycle messages from workers. Put blocks while the
// underlying channel is full (backpressure); it must never drop a
// message.
type Sink interface {
	Put(ctx context.Context, m Message) error
}

// StatusRow is the persisted projection of the most recent message
// observed for a task. Primary key is TaskID.
type StatusRow struct {
	TaskID     int64
	Name       string
	State      TaskState
	StartedAt  time.Time
	FinishedAt time.Time
	LastStep   int
	TotalSteps int

	// Detail holds the latest progress label while running, the result
	// string once done, or the fault description on error.
	Detail string
}
