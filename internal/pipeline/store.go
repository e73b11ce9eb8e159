package pipeline

import (
	"context"
	"sort"
	"sync"

	"storyteller-admin/internal/model"
)

const DefaultMemoryCapacity = 500

// Store persists run snapshots. Save replaces any earlier snapshot with the
// same ID.
type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

// MemoryStore keeps the newest runs in memory, evicting the oldest by
// creation time once capacity is reached.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	runs     map[string]Run
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity, runs: make(map[string]Run)}
}

func (s *MemoryStore) Save(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run.Clone()
	for len(s.runs) > s.capacity {
		oldest := ""
		for id, r := range s.runs {
			if oldest == "" || r.CreatedAt.Before(s.runs[oldest].CreatedAt) {
				oldest = id
			}
		}
		delete(s.runs, oldest)
	}

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, model.ErrRunNotFound
	}
	return run.Clone(), nil
}

// List returns runs newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
