package graphview

import (
	"context"
	"sync"
)

// Point is a saved node position. Pinned records whether the user left the
// node pinned there.
type Point struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

// PositionStore persists layouts by key so positions survive a refresh.
type PositionStore interface {
	Load(ctx context.Context, key string) (map[string]Point, error)
	Save(ctx context.Context, key string, positions map[string]Point) error
}

// MemoryPositionStore is a process-local PositionStore.
type MemoryPositionStore struct {
	mu      sync.RWMutex
	layouts map[string]map[string]Point
}

// NewMemoryPositionStore creates an empty store.
func NewMemoryPositionStore() *MemoryPositionStore {
	return &MemoryPositionStore{layouts: map[string]map[string]Point{}}
}

// Load returns a copy of the layout saved under key, or an empty map.
func (m *MemoryPositionStore) Load(_ context.Context, key string) (map[string]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Point, len(m.layouts[key]))
	for id, p := range m.layouts[key] {
		out[id] = p
	}
	return out, nil
}

// Save stores a copy of positions under key.
func (m *MemoryPositionStore) Save(_ context.Context, key string, positions map[string]Point) error {
	cp := make(map[string]Point, len(positions))
	for id, p := range positions {
		cp[id] = p
	}
	m.mu.Lock()
	m.layouts[key] = cp
	m.mu.Unlock()
	return nil
}
