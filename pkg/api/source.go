package api

import (
	"context"
	"sync"
)

// Source produces tasks for a run. Next returns (nil, nil) once the
// source is exhausted. Sources are pulled lazily, one task at a time, so
// an unbounded or streaming source works as well as a fixed slice.
//
// The engine calls Next from a single goroutine; implementations do not
// need to be safe for concurrent use, though the ones in this package
// are.
type Source interface {
	Next(ctx context.Context) (*Task, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) (*Task, error)

func (f SourceFunc) Next(ctx context.Context) (*Task, error) {
	return f(ctx)
}

// SliceSource returns a Source backed by a fixed slice of tasks.
func SliceSource(tasks []Task) Source {
	return &sliceSource{tasks: tasks}
}

type sliceSource struct {
	mu    sync.Mutex
	tasks []Task
	next  int
}

func (s *sliceSource) Next(ctx context.Context) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.tasks) {
		return nil, nil
	}
	t := s.tasks[s.next]
	s.next++
	return &t, nil
}

// ChannelSource returns a Source that pulls tasks from ch until it is
// closed. Useful for streaming task definitions larger than memory.
func ChannelSource(ch <-chan Task) Source {
	return SourceFunc(func(ctx context.Context) (*Task, error) {
		select {
		case t, ok := <-ch:
			if !ok {
				return nil, nil
			}
			return &t, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
