package pipeloom_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pipeloom/pipeloom"
)

// ExampleRunBuilder_Run runs two tasks across two workers without a
// status database and reports the terminal counts.
func ExampleRunBuilder_Run() {
	source := pipeloom.SliceSource([]pipeloom.Task{
		{ID: 1, Name: "posts"},
		{ID: 2, Name: "todos"},
	})

	summary, err := pipeloom.New("example").
		Workers(2).
		Logger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Run(context.Background(), source, func(ctx context.Context, task pipeloom.Task, report pipeloom.ProgressFunc) (string, error) {
			if task.Name == "todos" {
				return "", errors.New("boom")
			}
			return "ok:" + task.Name, nil
		})
	if err != nil {
		fmt.Println("run failed:", err)
		return
	}

	fmt.Printf("done=%d errored=%d total=%d\n", summary.Done, summary.Errored, summary.Total)
	// Output: done=1 errored=1 total=2
}
