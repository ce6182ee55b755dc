package api

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary reports the outcome of one orchestration run.
type RunSummary struct {
	// RunID uniquely identifies the run, for correlating logs and
	// external observations of the status store.
	RunID uuid.UUID

	// Name is the run name given to the builder, if any.
	Name string

	// Done and Errored count tasks that finished in the respective
	// terminal state. Total is their sum: every dispatched task reaches
	// exactly one terminal state.
	Done    int
	Errored int
	Total   int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall-clock duration of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
