package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
	"github.com/turtacn/HyperBlend/internal/infrastructure/storage/minio"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// MockCatalog mocks catalog.Service for one kind.
type MockCatalog[T entity.Entity] struct {
	mock.Mock
	kind common.Kind
}

func newMockCatalog[T entity.Entity](kind common.Kind) *MockCatalog[T] {
	return &MockCatalog[T]{kind: kind}
}

func (m *MockCatalog[T]) Kind() common.Kind { return m.kind }

func (m *MockCatalog[T]) List(ctx context.Context, query string) ([]T, error) {
	args := m.Called(ctx, query)
	items, _ := args.Get(0).([]T)
	return items, args.Error(1)
}

func (m *MockCatalog[T]) Get(ctx context.Context, id string) (T, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(T)
	return item, args.Error(1)
}

func (m *MockCatalog[T]) Create(ctx context.Context, item T) (T, error) {
	args := m.Called(ctx, item)
	out, _ := args.Get(0).(T)
	return out, args.Error(1)
}

func (m *MockCatalog[T]) Update(ctx context.Context, id string, item T) (T, error) {
	args := m.Called(ctx, id, item)
	out, _ := args.Get(0).(T)
	return out, args.Error(1)
}

func (m *MockCatalog[T]) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalog[T]) FindByIdentifier(ctx context.Context, field, value string) (T, error) {
	args := m.Called(ctx, field, value)
	out, _ := args.Get(0).(T)
	return out, args.Error(1)
}

// MockEnricher mocks enrich.Service.
type MockEnricher struct{ mock.Mock }

func (m *MockEnricher) Submit(ctx context.Context, kind common.Kind, id string, req enrichment.Request) (enrichment.Outcome, error) {
	args := m.Called(ctx, kind, id, req)
	return args.Get(0).(enrichment.Outcome), args.Error(1)
}

func (m *MockEnricher) Job(ctx context.Context, id string) (*enrichment.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*enrichment.Job)
	return job, args.Error(1)
}

func (m *MockEnricher) Process(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

// MockGraph mocks catalog.GraphService.
type MockGraph struct{ mock.Mock }

func (m *MockGraph) Statistics(ctx context.Context) (entity.Statistics, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.Statistics), args.Error(1)
}

func (m *MockGraph) Graph(ctx context.Context, query string) (graph.Data, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(graph.Data), args.Error(1)
}

func (m *MockGraph) Node(ctx context.Context, id string) (graph.NodeDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(graph.NodeDetail), args.Error(1)
}

func (m *MockGraph) MigrateMoleculeIDs(ctx context.Context) (catalog.MigrationResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(catalog.MigrationResult), args.Error(1)
}

// MockMolecules mocks molecule.Service.
type MockMolecules struct{ mock.Mock }

func (m *MockMolecules) Lookup(ctx context.Context, idType, value string) (entity.Molecule, error) {
	args := m.Called(ctx, idType, value)
	return args.Get(0).(entity.Molecule), args.Error(1)
}

func (m *MockMolecules) CreateOrUpdate(ctx context.Context, mol entity.Molecule) (entity.Molecule, bool, error) {
	args := m.Called(ctx, mol)
	return args.Get(0).(entity.Molecule), args.Bool(1), args.Error(2)
}

func (m *MockMolecules) Structure(ctx context.Context, id string) (*minio.Image, error) {
	args := m.Called(ctx, id)
	img, _ := args.Get(0).(*minio.Image)
	return img, args.Error(1)
}
