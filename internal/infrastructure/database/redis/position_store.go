package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/ui/graphview"
	"github.com/turtacn/HyperBlend/pkg/errors"
)

// PositionStore saves graph layouts as hashes of node ID to JSON point, so a
// layout survives restarts and is shared between server replicas.
type PositionStore struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

var _ graphview.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates a store. A zero ttl keeps layouts for 7 days.
func NewPositionStore(client *Client, ttl time.Duration, log logging.Logger) *PositionStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &PositionStore{client: client, ttl: ttl, logger: log}
}

func (s *PositionStore) key(name string) string { return s.client.Key("layout", name) }

// Load returns the layout saved under key, or an empty map. Unreadable fields
// are skipped.
func (s *PositionStore) Load(ctx context.Context, key string) (map[string]graphview.Point, error) {
	rdb, err := s.client.conn()
	if err != nil {
		return nil, err
	}
	raw, err := rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to load layout")
	}
	out := make(map[string]graphview.Point, len(raw))
	for id, v := range raw {
		var p graphview.Point
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			s.logger.Warn("Skipping unreadable node position", logging.String("layout", key), logging.EntityID(id))
			continue
		}
		out[id] = p
	}
	return out, nil
}

// Save replaces the layout under key.
func (s *PositionStore) Save(ctx context.Context, key string, positions map[string]graphview.Point) error {
	rdb, err := s.client.conn()
	if err != nil {
		return err
	}
	fields := make(map[string]any, len(positions))
	for id, p := range positions {
		data, err := json.Marshal(p)
		if err != nil {
			return ErrSerializationFailed.WithCause(err)
		}
		fields[id] = string(data)
	}

	k := s.key(key)
	pipe := rdb.TxPipeline()
	pipe.Del(ctx, k)
	if len(fields) > 0 {
		pipe.HSet(ctx, k, fields)
		pipe.Expire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to save layout")
	}
	return nil
}
