package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/internal/config"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
)

func TestNewClient_ConnectsAndNamespaces(t *testing.T) {
	client, mr := newTestClient(t)

	assert.Equal(t, "test:job:42", client.Key("job", "42"))
	assert.NoError(t, client.HealthCheck(context.Background()))

	require.NoError(t, client.Underlying().Set(context.Background(), client.Key("k"), "v", 0).Err())
	assert.True(t, mr.Exists("test:k"))
}

func TestNewClient_DefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "hyperblend:layout:landing", client.Key("layout", "landing"))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(config.RedisConfig{Addr: addr}, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.Nil(t, client.Underlying())
	err := client.Ping(context.Background())
	assert.Equal(t, ErrClientClosed, err)
}

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}
