package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

func TestGraphService_StatisticsCached(t *testing.T) {
	repo := new(MockGraphRepo)
	repo.On("Statistics", mock.Anything).Return(entity.Statistics{Molecules: 3, Targets: 1}, nil).Once()
	svc := NewGraphService(repo, nil, WithCache(newMemoryCache(), 0))

	for i := 0; i < 3; i++ {
		stats, err := svc.Statistics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Molecules)
	}
	repo.AssertExpectations(t)
}

func TestGraphService_GraphFillsStatsAndEmptySlices(t *testing.T) {
	repo := new(MockGraphRepo)
	repo.On("Graph", mock.Anything, "lsd").Return(graph.Data{
		Nodes: []graph.Node{{ID: "M-1", Type: graph.NodeMolecule}, {ID: "T-1", Type: graph.NodeTarget}},
	}, nil).Once()
	svc := NewGraphService(repo, nil)

	data, err := svc.Graph(context.Background(), " lsd ")
	require.NoError(t, err)
	assert.NotNil(t, data.Links)
	assert.Equal(t, graph.Stats{Molecules: 1, Targets: 1}, data.Stats)
}

func TestGraphService_MigrationLocksAndInvalidates(t *testing.T) {
	repo := new(MockGraphRepo)
	repo.On("Statistics", mock.Anything).Return(entity.Statistics{Molecules: 1}, nil).Twice()
	repo.On("MigrateMoleculeIDs", mock.Anything).Return(2, 5, nil).Once()
	cache := newMemoryCache()
	locker := &recordingLocker{}
	svc := NewGraphService(repo, nil, WithCache(cache, 0), WithLocker(locker))
	ctx := context.Background()

	_, err := svc.Statistics(ctx)
	require.NoError(t, err)

	res, err := svc.MigrateMoleculeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Migrated: 2, Total: 5}, res)
	assert.Equal(t, []string{migrationLock}, locker.names)
	assert.Equal(t, 1, cache.invalidated)

	_, err = svc.Statistics(ctx)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestGraphService_MigrationError(t *testing.T) {
	repo := new(MockGraphRepo)
	repo.On("MigrateMoleculeIDs", mock.Anything).Return(0, 0, errors.New(errors.ErrCodeDatabaseError, "boom")).Once()
	svc := NewGraphService(repo, nil)

	_, err := svc.MigrateMoleculeIDs(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}
