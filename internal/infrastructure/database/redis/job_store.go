package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// JobStore keeps enrichment jobs as JSON strings that expire after ttl.
type JobStore struct {
	client *Client
	ttl    time.Duration
}

// NewJobStore creates a store. A zero ttl keeps jobs for 24 hours.
func NewJobStore(client *Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobStore{client: client, ttl: ttl}
}

func (s *JobStore) key(id string) string { return s.client.Key("job", id) }

// Save writes job, replacing any previous state and refreshing its expiry.
func (s *JobStore) Save(ctx context.Context, job *enrichment.Job) error {
	rdb, err := s.client.conn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := rdb.Set(ctx, s.key(job.ID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to save job")
	}
	return nil
}

// Get loads a job by ID.
func (s *JobStore) Get(ctx context.Context, id string) (*enrichment.Job, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	data, err := rdb.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to load job")
	}
	var job enrichment.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	return &job, nil
}
