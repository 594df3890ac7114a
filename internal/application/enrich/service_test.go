package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/HyperBlend/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HyperBlend/internal/infrastructure/providers"
	"github.com/turtacn/HyperBlend/internal/testutil"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	molecules *fakeCatalog[entity.Molecule]
	effects   *fakeCatalog[entity.Effect]
	enricher  *stubEnricher
	jobs      *MemoryJobStore
	observer  *recordingObserver
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.molecules = newFakeCatalog(entity.Molecule{ID: "M-1", OriginalID: "42", Name: "Caffeine"})
	s.effects = newFakeCatalog(entity.Effect{ID: "E-1", Name: "Euphoria", Category: entity.CategoryPsychological})
	s.enricher = &stubEnricher{result: &enrichment.Result{
		Success: true,
		Data:    enrichment.Data{Identifiers: common.Metadata{"pubchem_cid": "2519"}},
		Sources: []common.Source{{Name: "PubChem", URL: "https://pubchem.ncbi.nlm.nih.gov/"}},
	}}
	s.jobs = NewMemoryJobStore()
	s.observer = &recordingObserver{}
}

func (s *ServiceTestSuite) catalog() Catalog {
	return Catalog{
		Molecules: s.molecules,
		Targets:   newFakeCatalog[entity.Target](),
		Organisms: newFakeCatalog[entity.Organism](),
		Effects:   s.effects,
	}
}

func (s *ServiceTestSuite) newService(mode Mode, q Queue) Service {
	svc, err := NewService(Config{
		Mode:     mode,
		Catalog:  s.catalog(),
		Enricher: s.enricher,
		Jobs:     s.jobs,
		Queue:    q,
		Observer: s.observer,
		Logger:   testutil.NewMockLogger(),
	})
	s.Require().NoError(err)
	return svc
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) TestSync_ReturnsResultAndWritesBack() {
	svc := s.newService(ModeSync, nil)

	out, err := svc.Submit(s.ctx, common.KindMolecule, "M-1", enrichment.Request{
		Identifiers: []common.Identifier{{Type: "name", Value: "caffeine"}},
	})
	s.Require().NoError(err)
	s.False(out.IsJob())
	s.Require().NotNil(out.Result)
	s.True(out.Result.Success)

	s.Require().Len(s.enricher.subjects, 1)
	subj := s.enricher.subjects[0]
	s.Equal("M-1", subj.ID)
	s.Equal("caffeine", subj.Value("name"))
	s.Len(subj.Identifiers, 2)

	updated, ok := s.molecules.lastUpdate()
	s.Require().True(ok)
	s.Equal("2519", updated.PubChemCID)
	s.Equal([]string{"molecule:completed"}, s.observer.statuses)
}

func (s *ServiceTestSuite) TestSync_FallsBackToOriginalID() {
	svc := s.newService(ModeSync, nil)

	_, err := svc.Submit(s.ctx, common.KindMolecule, "M-404", enrichment.Request{OriginalID: "42"})
	s.Require().NoError(err)
	s.Equal("M-1", s.enricher.subjects[0].ID)
}

func (s *ServiceTestSuite) TestSync_NoDataIsAnError() {
	s.enricher.result, s.enricher.err = nil, providers.ErrNoData
	svc := s.newService(ModeSync, nil)

	_, err := svc.Submit(s.ctx, common.KindEffect, "E-1", enrichment.Request{})
	s.True(errors.IsCode(err, errors.ErrCodeEnrichmentNoData))
	_, ok := s.effects.lastUpdate()
	s.False(ok)
	s.Equal([]string{"effect:failed"}, s.observer.statuses)
}

func (s *ServiceTestSuite) TestSync_UnknownEntity() {
	svc := s.newService(ModeSync, nil)
	_, err := svc.Submit(s.ctx, common.KindMolecule, "M-9", enrichment.Request{})
	s.True(errors.IsNotFound(err))
}

func (s *ServiceTestSuite) TestAsync_KafkaQueuePublishesPendingJob() {
	pub := &recordingPublisher{}
	svc := s.newService(ModeAsync, NewKafkaQueue(pub, "", "test"))

	out, err := svc.Submit(s.ctx, common.KindMolecule, "M-1", enrichment.Request{})
	s.Require().NoError(err)
	s.True(out.IsJob())

	job, err := svc.Job(s.ctx, out.JobID)
	s.Require().NoError(err)
	s.Equal(enrichment.JobPending, job.Status)
	s.Equal("M-1", job.EntityID)

	s.Require().Len(pub.msgs, 1)
	s.Equal(kafka.TopicEnrichment, pub.msgs[0].Topic)
	p, err := kafka.DecodeEnrichmentRequested(pub.msgs[0])
	s.Require().NoError(err)
	s.Equal(out.JobID, p.JobID)
	s.Equal(common.KindMolecule, p.Entity)
}

func (s *ServiceTestSuite) TestAsync_QueueFailureMarksJobFailed() {
	pub := &recordingPublisher{err: errors.New(errors.ErrCodeMessageQueueError, "broker down")}
	svc := s.newService(ModeAsync, NewKafkaQueue(pub, "", ""))

	_, err := svc.Submit(s.ctx, common.KindMolecule, "M-1", enrichment.Request{})
	s.True(errors.IsCode(err, errors.ErrCodeMessageQueueError))
}

func (s *ServiceTestSuite) TestProcess_CompletesJob() {
	pub := &recordingPublisher{}
	svc := s.newService(ModeAsync, NewKafkaQueue(pub, "", ""))
	out, err := svc.Submit(s.ctx, common.KindMolecule, "M-1", enrichment.Request{})
	s.Require().NoError(err)

	s.Require().NoError(Handler(svc, testutil.NewMockLogger())(s.ctx, pub.msgs[0]))

	job, err := svc.Job(s.ctx, out.JobID)
	s.Require().NoError(err)
	s.Equal(enrichment.JobCompleted, job.Status)
	s.Require().NotNil(job.Result)
	s.Equal("PubChem", job.Result.Sources[0].Name)

	// Redelivery of a finished job is a no-op.
	s.Require().NoError(svc.Process(s.ctx, out.JobID))
	s.Len(s.enricher.subjects, 1)
}

func (s *ServiceTestSuite) TestProcess_FailureRecordsMessage() {
	s.enricher.result, s.enricher.err = nil, providers.ErrNoData
	pub := &recordingPublisher{}
	svc := s.newService(ModeAsync, NewKafkaQueue(pub, "", ""))
	out, err := svc.Submit(s.ctx, common.KindEffect, "E-1", enrichment.Request{})
	s.Require().NoError(err)

	s.Require().NoError(svc.Process(s.ctx, out.JobID))

	job, err := svc.Job(s.ctx, out.JobID)
	s.Require().NoError(err)
	s.Equal(enrichment.JobFailed, job.Status)
	s.Equal("no enrichment data found", job.Error)
}

func (s *ServiceTestSuite) TestProcess_UnknownJobIsSkipped() {
	svc := s.newService(ModeSync, nil)
	s.NoError(svc.Process(s.ctx, "missing"))
}

func (s *ServiceTestSuite) TestHandler_DropsMalformedMessages() {
	svc := s.newService(ModeSync, nil)
	err := Handler(svc, testutil.NewMockLogger())(s.ctx, &kafka.Message{Value: []byte("not json")})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestJob_NotFound() {
	svc := s.newService(ModeSync, nil)
	_, err := svc.Job(s.ctx, "nope")
	s.True(errors.IsCode(err, errors.ErrCodeJobNotFound))
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)

	_, err = NewService(Config{Enricher: &stubEnricher{}, Mode: "later"})
	assert.Error(t, err)

	_, err = NewService(Config{Enricher: &stubEnricher{}, Mode: ModeAsync})
	assert.Error(t, err)
}

func TestLocalQueue_RunsJobsInBackground(t *testing.T) {
	molecules := newFakeCatalog(entity.Molecule{ID: "M-1", Name: "Caffeine"})
	enricher := &stubEnricher{result: &enrichment.Result{
		Success: true,
		Data:    enrichment.Data{Properties: common.Metadata{"formula": "C8H10N4O2"}},
	}}
	q := NewLocalQueue(2, testutil.NewMockLogger())
	defer q.Close()

	svc, err := NewService(Config{
		Mode:     ModeAsync,
		Catalog:  Catalog{Molecules: molecules},
		Enricher: enricher,
		Queue:    q,
	})
	require.NoError(t, err)

	out, err := svc.Submit(context.Background(), common.KindMolecule, "M-1", enrichment.Request{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		job, err := svc.Job(context.Background(), out.JobID)
		return err == nil && job.Status == enrichment.JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	updated, ok := molecules.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, "C8H10N4O2", updated.Formula)
}

func TestLocalQueue_CloseCancelsBlockedJobs(t *testing.T) {
	enricher := &stubEnricher{block: make(chan struct{})}
	q := NewLocalQueue(1, testutil.NewMockLogger())
	svc, err := NewService(Config{
		Mode:     ModeAsync,
		Catalog:  Catalog{Molecules: newFakeCatalog(entity.Molecule{ID: "M-1", Name: "x"})},
		Enricher: enricher,
		Queue:    q,
	})
	require.NoError(t, err)

	out, err := svc.Submit(context.Background(), common.KindMolecule, "M-1", enrichment.Request{})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		enricher.mu.Lock()
		defer enricher.mu.Unlock()
		return len(enricher.subjects) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, q.Close())
	job, err := svc.Job(context.Background(), out.JobID)
	require.NoError(t, err)
	assert.Equal(t, enrichment.JobFailed, job.Status)

	err = q.Enqueue(context.Background(), job)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}
