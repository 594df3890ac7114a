package redis

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
)

type cachedStats struct {
	Molecule int `json:"molecule"`
	Target   int `json:"target"`
}

func TestCache_SetGet(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("stats"), WithoutJitter())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "all", cachedStats{Molecule: 3, Target: 1}, time.Minute))
	assert.True(t, mr.Exists("test:stats:all"))
	assert.Equal(t, time.Minute, mr.TTL("test:stats:all"))

	var got cachedStats
	require.NoError(t, cache.Get(ctx, "all", &got))
	assert.Equal(t, cachedStats{Molecule: 3, Target: 1}, got)
}

func TestCache_MissIsObserved(t *testing.T) {
	client, _ := newTestClient(t)
	obs := &cacheObs{}
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("graph"), WithCacheObserver(obs))

	var got cachedStats
	err := cache.Get(context.Background(), "nothing", &got)
	assert.Equal(t, ErrCacheMiss, err)
	assert.Equal(t, []bool{false}, obs.hits)
	assert.Equal(t, "graph", obs.name)
}

func TestCache_TTLJitterStaysWithinTenPercent(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("stats"))

	require.NoError(t, cache.Set(context.Background(), "k", 1, 100*time.Second))
	ttl := mr.TTL("test:stats:k")
	assert.GreaterOrEqual(t, ttl, 90*time.Second)
	assert.LessOrEqual(t, ttl, 110*time.Second)
}

func TestCache_DeleteByPrefix(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("graph"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q:", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "q:psilo", 2, time.Minute))
	require.NoError(t, cache.Set(ctx, "node:M-1", 3, time.Minute))

	n, err := cache.DeleteByPrefix(ctx, "q:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, mr.Exists("test:graph:q:psilo"))
	assert.True(t, mr.Exists("test:graph:node:M-1"))
}

func TestCache_Delete(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("graph"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Delete(ctx, "a", "b"))
	require.NoError(t, cache.Delete(ctx))
	assert.False(t, mr.Exists("test:graph:a"))
}

func TestCache_GetOrSetLoadsOnce(t *testing.T) {
	client, _ := newTestClient(t)
	obs := &cacheObs{}
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("stats"), WithCacheObserver(obs))
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return cachedStats{Molecule: 7}, nil
	}

	var first, second cachedStats
	require.NoError(t, cache.GetOrSet(ctx, "all", &first, time.Minute, loader))
	require.NoError(t, cache.GetOrSet(ctx, "all", &second, time.Minute, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 7, first.Molecule)
	assert.Equal(t, first, second)
	assert.Equal(t, []bool{false, true}, obs.hits)
}

func TestCache_GetOrSetLoaderError(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithCacheName("stats"))
	boom := stderrors.New("neo4j down")

	var got cachedStats
	err := cache.GetOrSet(context.Background(), "all", &got, time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("test:stats:all"))
}

func TestCache_ClosedClient(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	require.NoError(t, client.Close())

	assert.Equal(t, ErrClientClosed, cache.Set(context.Background(), "k", 1, 0))
}

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

type cacheObs struct {
	mu   sync.Mutex
	name string
	hits []bool
}

func (o *cacheObs) RecordCacheAccess(cache string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.name = cache
	o.hits = append(o.hits, hit)
}
