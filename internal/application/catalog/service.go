// Package catalog provides the application services behind the entity REST
// endpoints: CRUD per entity kind plus the cross-kind graph read models.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Cache is the read-through cache used for statistics and graph responses.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Locker serialises maintenance tasks across processes.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Service exposes CRUD for one entity kind.
type Service[T entity.Entity] interface {
	Kind() common.Kind
	List(ctx context.Context, query string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, item T) (T, error)
	Delete(ctx context.Context, id string) error
	FindByIdentifier(ctx context.Context, field, value string) (T, error)
}

type serviceImpl[T entity.Entity] struct {
	repo   repositories.EntityRepository[T]
	inval  *invalidator
	logger logging.Logger
}

// NewService wraps repo. cache may be nil.
func NewService[T entity.Entity](repo repositories.EntityRepository[T], cache Cache, logger logging.Logger) Service[T] {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl[T]{
		repo:   repo,
		inval:  &invalidator{cache: cache, logger: logger},
		logger: logger.With(logging.Entity(string(repo.Kind()))),
	}
}

func (s *serviceImpl[T]) Kind() common.Kind { return s.repo.Kind() }

func (s *serviceImpl[T]) List(ctx context.Context, query string) ([]T, error) {
	items, err := s.repo.List(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (s *serviceImpl[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if strings.TrimSpace(id) == "" {
		return zero, errors.New(errors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl[T]) FindByIdentifier(ctx context.Context, field, value string) (T, error) {
	var zero T
	if field == "" || strings.TrimSpace(value) == "" {
		return zero, errors.InvalidParam("identifier type and value are required")
	}
	return s.repo.FindByIdentifier(ctx, field, value)
}

func (s *serviceImpl[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	if err := validate(item); err != nil {
		return zero, err
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return zero, err
	}
	s.inval.invalidate(ctx)
	s.logger.Info("entity created", logging.EntityID(created.GetID()))
	return created, nil
}

func (s *serviceImpl[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	if strings.TrimSpace(id) == "" {
		return zero, errors.New(errors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	updated, err := s.repo.Update(ctx, id, item)
	if err != nil {
		return zero, err
	}
	s.inval.invalidate(ctx)
	return updated, nil
}

func (s *serviceImpl[T]) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(errors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.inval.invalidate(ctx)
	s.logger.Info("entity deleted", logging.EntityID(id))
	return nil
}

// validate requires a name or at least one external identifier.
func validate(item entity.Entity) error {
	if strings.TrimSpace(item.GetName()) != "" {
		return nil
	}
	if ider, ok := item.(interface{ Identifiers() []common.Identifier }); ok {
		for _, id := range ider.Identifiers() {
			if strings.TrimSpace(id.Value) != "" {
				return nil
			}
		}
	}
	return errors.Validation(item.Kind().Label() + " requires a name or an identifier")
}

// invalidator drops every cached read model after a write.
type invalidator struct {
	cache  Cache
	logger logging.Logger
}

func (i *invalidator) invalidate(ctx context.Context) {
	if i == nil || i.cache == nil {
		return
	}
	if _, err := i.cache.DeleteByPrefix(ctx, ""); err != nil {
		i.logger.Warn("cache invalidation failed", logging.Err(err))
	}
}

// localLocker serialises within one process when no distributed lock is
// configured.
type localLocker struct {
	mu sync.Mutex
}

func (l *localLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}
