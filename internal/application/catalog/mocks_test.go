package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

type MockMoleculeRepo struct {
	mock.Mock
}

func (m *MockMoleculeRepo) Kind() common.Kind { return common.KindMolecule }

func (m *MockMoleculeRepo) List(ctx context.Context, query string) ([]entity.Molecule, error) {
	args := m.Called(ctx, query)
	items, _ := args.Get(0).([]entity.Molecule)
	return items, args.Error(1)
}

func (m *MockMoleculeRepo) Get(ctx context.Context, id string) (entity.Molecule, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Molecule), args.Error(1)
}

func (m *MockMoleculeRepo) FindByIdentifier(ctx context.Context, field, value string) (entity.Molecule, error) {
	args := m.Called(ctx, field, value)
	return args.Get(0).(entity.Molecule), args.Error(1)
}

func (m *MockMoleculeRepo) Create(ctx context.Context, item entity.Molecule) (entity.Molecule, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(entity.Molecule), args.Error(1)
}

func (m *MockMoleculeRepo) Update(ctx context.Context, id string, item entity.Molecule) (entity.Molecule, error) {
	args := m.Called(ctx, id, item)
	return args.Get(0).(entity.Molecule), args.Error(1)
}

func (m *MockMoleculeRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMoleculeRepo) AllIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type MockGraphRepo struct {
	mock.Mock
}

func (m *MockGraphRepo) Statistics(ctx context.Context) (entity.Statistics, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.Statistics), args.Error(1)
}

func (m *MockGraphRepo) Graph(ctx context.Context, query string) (graph.Data, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(graph.Data), args.Error(1)
}

func (m *MockGraphRepo) Node(ctx context.Context, id string) (graph.NodeDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(graph.NodeDetail), args.Error(1)
}

func (m *MockGraphRepo) MigrateMoleculeIDs(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

// memoryCache is a JSON round-tripping stand-in for the Redis cache.
type memoryCache struct {
	mu            sync.Mutex
	items         map[string][]byte
	invalidated   int
	invalidateErr error
}

func newMemoryCache() *memoryCache { return &memoryCache{items: map[string][]byte{}} }

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest any, _ time.Duration, loader func(ctx context.Context) (any, error)) error {
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if ok {
		return json.Unmarshal(raw, dest)
	}
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	if c.invalidateErr != nil {
		return 0, c.invalidateErr
	}
	var n int64
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n, nil
}

type recordingLocker struct {
	names []string
}

func (l *recordingLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	l.names = append(l.names, name)
	return fn(ctx)
}
