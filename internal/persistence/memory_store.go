package persistence

import (
	"context"
	"sync"

	"github.com/pipeloom/pipeloom/pkg/api"
)

// MemoryStatusStore is a simple, goroutine-safe StatusStore backed by a
// map. It is used by tests and by runs that disable durable status
// persistence but still want an accurate summary.
type MemoryStatusStore struct {
	mu          sync.RWMutex
	rows        map[int64]api.StatusRow
	checkpoints int
}

// NewMemoryStatusStore creates a new MemoryStatusStore.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{
		rows: make(map[int64]api.StatusRow),
	}
}

// Ensure MemoryStatusStore implements StatusStore.
var _ StatusStore = (*MemoryStatusStore)(nil)

func (s *MemoryStatusStore) Upsert(ctx context.Context, row api.StatusRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[row.TaskID] = row
	return nil
}

// Checkpoint is a no-op for the in-memory store beyond counting calls,
// which lets tests assert the writer's checkpoint cadence.
func (s *MemoryStatusStore) Checkpoint(ctx context.Context, mode CheckpointMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints++
	return nil
}

func (s *MemoryStatusStore) Get(ctx context.Context, taskID int64) (api.StatusRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[taskID]
	if !ok {
		return api.StatusRow{}, ErrRowNotFound
	}
	return row, nil
}

func (s *MemoryStatusStore) List(ctx context.Context, filter RowFilter) ([]api.StatusRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.StatusRow
	for _, row := range s.rows {
		if filter.Name != "" && row.Name != filter.Name {
			continue
		}
		if filter.State != "" && row.State != filter.State {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *MemoryStatusStore) Close() error {
	return nil
}

// Checkpoints returns the number of checkpoint calls observed.
func (s *MemoryStatusStore) Checkpoints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.checkpoints
}
