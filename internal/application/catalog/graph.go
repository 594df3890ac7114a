package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

const (
	// DefaultReadModelTTL bounds how stale cached statistics and graphs get.
	DefaultReadModelTTL = 30 * time.Second

	migrationLock = "molecule-id-migration"
)

// MigrationResult is the outcome of a molecule ID migration.
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Total    int `json:"total"`
}

// GraphService serves the landing-page read models.
type GraphService interface {
	Statistics(ctx context.Context) (entity.Statistics, error)
	Graph(ctx context.Context, query string) (graph.Data, error)
	Node(ctx context.Context, id string) (graph.NodeDetail, error)
	MigrateMoleculeIDs(ctx context.Context) (MigrationResult, error)
}

// GraphOption configures a GraphService.
type GraphOption func(*graphService)

// WithCache caches statistics and graph responses for ttl.
func WithCache(c Cache, ttl time.Duration) GraphOption {
	return func(s *graphService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLocker replaces the in-process lock guarding migrations.
func WithLocker(l Locker) GraphOption {
	return func(s *graphService) { s.locker = l }
}

type graphService struct {
	repo   repositories.GraphRepository
	cache  Cache
	ttl    time.Duration
	locker Locker
	logger logging.Logger
}

func NewGraphService(repo repositories.GraphRepository, logger logging.Logger, opts ...GraphOption) GraphService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &graphService{
		repo:   repo,
		ttl:    DefaultReadModelTTL,
		locker: &localLocker{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *graphService) Statistics(ctx context.Context) (entity.Statistics, error) {
	if s.cache == nil {
		return s.repo.Statistics(ctx)
	}
	var stats entity.Statistics
	err := s.cache.GetOrSet(ctx, "stats:all", &stats, s.ttl, func(ctx context.Context) (any, error) {
		return s.repo.Statistics(ctx)
	})
	return stats, err
}

func (s *graphService) Graph(ctx context.Context, query string) (graph.Data, error) {
	query = strings.TrimSpace(query)
	load := func(ctx context.Context) (graph.Data, error) {
		data, err := s.repo.Graph(ctx, query)
		if err != nil {
			return graph.Data{}, err
		}
		if data.Nodes == nil {
			data.Nodes = []graph.Node{}
		}
		if data.Links == nil {
			data.Links = []graph.Link{}
		}
		data.Stats = data.ComputeStats()
		return data, nil
	}
	if s.cache == nil {
		return load(ctx)
	}
	var data graph.Data
	err := s.cache.GetOrSet(ctx, "graph:"+strings.ToLower(query), &data, s.ttl, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	return data, err
}

func (s *graphService) Node(ctx context.Context, id string) (graph.NodeDetail, error) {
	return s.repo.Node(ctx, id)
}

// MigrateMoleculeIDs runs at most once at a time across every process
// sharing the lock.
func (s *graphService) MigrateMoleculeIDs(ctx context.Context) (MigrationResult, error) {
	var res MigrationResult
	err := s.locker.WithLock(ctx, migrationLock, func(ctx context.Context) error {
		migrated, total, err := s.repo.MigrateMoleculeIDs(ctx)
		if err != nil {
			return err
		}
		res = MigrationResult{Migrated: migrated, Total: total}
		return nil
	})
	if err != nil {
		return MigrationResult{}, err
	}
	(&invalidator{cache: s.cache, logger: s.logger}).invalidate(ctx)
	s.logger.Info("molecule IDs migrated", logging.Int("migrated", res.Migrated), logging.Int("total", res.Total))
	return res, nil
}
