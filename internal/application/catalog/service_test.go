package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/HyperBlend/internal/testutil"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	repo  *MockMoleculeRepo
	cache *memoryCache
	svc   Service[entity.Molecule]
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = new(MockMoleculeRepo)
	s.cache = newMemoryCache()
	s.svc = NewService[entity.Molecule](s.repo, s.cache, testutil.NewMockLogger())
}

func (s *ServiceTestSuite) TearDownTest() {
	s.repo.AssertExpectations(s.T())
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) TestList_TrimsQueryAndNeverReturnsNil() {
	s.repo.On("List", mock.Anything, "caff").Return(nil, nil).Once()

	items, err := s.svc.List(s.ctx, "  caff ")
	s.Require().NoError(err)
	s.NotNil(items)
	s.Empty(items)
}

func (s *ServiceTestSuite) TestGet_RequiresID() {
	_, err := s.svc.Get(s.ctx, " ")
	s.True(errors.IsCode(err, errors.ErrCodeInvalidEntityID))
}

func (s *ServiceTestSuite) TestCreate_RequiresNameOrIdentifier() {
	_, err := s.svc.Create(s.ctx, entity.Molecule{Description: "no identity"})
	s.True(errors.IsCode(err, errors.ErrCodeValidation))
	s.Equal(0, s.cache.invalidated)
}

func (s *ServiceTestSuite) TestCreate_AcceptsIdentifierWithoutName() {
	in := entity.Molecule{PubChemCID: "2519"}
	s.repo.On("Create", mock.Anything, in).Return(entity.Molecule{ID: "M-1", PubChemCID: "2519"}, nil).Once()

	out, err := s.svc.Create(s.ctx, in)
	s.Require().NoError(err)
	s.Equal("M-1", out.ID)
	s.Equal(1, s.cache.invalidated)
}

func (s *ServiceTestSuite) TestUpdate_InvalidatesCache() {
	in := entity.Molecule{Name: "Caffeine"}
	s.repo.On("Update", mock.Anything, "M-1", in).Return(entity.Molecule{ID: "M-1", Name: "Caffeine"}, nil).Once()

	_, err := s.svc.Update(s.ctx, "M-1", in)
	s.Require().NoError(err)
	s.Equal(1, s.cache.invalidated)
}

func (s *ServiceTestSuite) TestDelete_PropagatesNotFound() {
	s.repo.On("Delete", mock.Anything, "M-9").Return(errors.New(errors.ErrCodeMoleculeNotFound, "missing")).Once()

	err := s.svc.Delete(s.ctx, "M-9")
	s.True(errors.IsNotFound(err))
	s.Equal(0, s.cache.invalidated)
}

func (s *ServiceTestSuite) TestWrite_SucceedsWhenInvalidationFails() {
	s.cache.invalidateErr = errors.New(errors.ErrCodeCacheError, "redis down")
	s.repo.On("Delete", mock.Anything, "M-1").Return(nil).Once()

	s.NoError(s.svc.Delete(s.ctx, "M-1"))
}

func (s *ServiceTestSuite) TestFindByIdentifier_Validates() {
	_, err := s.svc.FindByIdentifier(s.ctx, "pubchem_cid", "")
	s.Error(err)
}
