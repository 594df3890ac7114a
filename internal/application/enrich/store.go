package enrich

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// JobStore persists enrichment jobs. Implementations exist for Redis,
// SQLite and process memory.
type JobStore interface {
	Save(ctx context.Context, job *enrichment.Job) error
	Get(ctx context.Context, id string) (*enrichment.Job, error)
}

// MemoryJobStore keeps jobs in a map. Stored values are deep copies.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string][]byte)}
}

func (s *MemoryJobStore) Save(_ context.Context, job *enrichment.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job")
	}
	s.mu.Lock()
	s.jobs[job.ID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*enrichment.Job, error) {
	s.mu.RLock()
	raw, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", id)
	}
	var job enrichment.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode job")
	}
	return &job, nil
}
