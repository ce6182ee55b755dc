package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/pipeloom/pipeloom/pkg/api"
)

// Worker executes one task at a time, translating the caller routine's
// outcome into lifecycle messages on a Sink.
//
// The worker guarantees, by construction, that every executed task emits
// exactly one TaskStarted first and exactly one TaskFinished last, no
// matter how the routine ends. A panic inside the routine is recovered
// here and reported as a TaskFinished with StateError; it never
// terminates the pool or other in-flight tasks.
//
// Workers perform no storage writes. All persistence goes through the
// status writer on the other end of the sink.
type Worker struct {
	sink api.Sink
	obs  api.Observer
}

// New creates a Worker emitting onto sink.
func New(sink api.Sink) *Worker {
	return NewWithObserver(sink, nil)
}

// NewWithObserver creates a Worker that additionally reports lifecycle
// events to obs. A nil obs means no observation.
func NewWithObserver(sink api.Sink, obs api.Observer) *Worker {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Worker{
		sink: sink,
		obs:  obs,
	}
}

// Execute runs fn for the given task. The returned error reports only
// sink delivery failure (context death); a task fault is not an error
// here, it is a TaskFinished message with StateError.
func (w *Worker) Execute(ctx context.Context, task api.Task, fn api.TaskFunc) error {
	started := time.Now()

	if err := w.sink.Put(ctx, api.TaskStarted{
		TaskID:    task.ID,
		Name:      task.Name,
		StartedAt: started.UTC(),
	}); err != nil {
		return err
	}
	w.obs.OnTaskStart(ctx, task)

	report := func(step, total int, label string) error {
		err := w.sink.Put(ctx, api.TaskProgress{
			TaskID: task.ID,
			Step:   step,
			Total:  total,
			Label:  label,
		})
		if err != nil {
			return err
		}
		w.obs.OnTaskProgress(ctx, task, step, total, label)
		return nil
	}

	result, err := invoke(ctx, task, report, fn)

	fin := api.TaskFinished{
		TaskID:     task.ID,
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		fin.State = api.StateError
		fin.Detail = err.Error()
	} else {
		fin.State = api.StateDone
		fin.Result = result
	}

	if sinkErr := w.sink.Put(ctx, fin); sinkErr != nil {
		return sinkErr
	}
	w.obs.OnTaskFinished(ctx, task, fin.State, err, time.Since(started))

	return nil
}

// invoke is the fault-isolation boundary: the one place a panicking task
// routine is recovered and converted into an ordinary error.
func invoke(ctx context.Context, task api.Task, report api.ProgressFunc, fn api.TaskFunc) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return fn(ctx, task, report)
}
