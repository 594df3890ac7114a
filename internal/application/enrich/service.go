// Package enrich runs entity enrichment, either inline or as jobs that a
// worker picks up from a queue.
package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/infrastructure/providers"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// Mode selects how Submit behaves.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// DefaultTimeout bounds one enrichment run.
const DefaultTimeout = 60 * time.Second

// Enricher is satisfied by *providers.Registry.
type Enricher interface {
	Enrich(ctx context.Context, s providers.Subject) (*enrichment.Result, error)
}

// JobObserver counts jobs reaching a status.
type JobObserver interface {
	RecordEnrichmentJob(entity, status string)
}

// Service is the enrichment use case.
type Service interface {
	// Submit enriches the entity inline (sync) or queues a job (async).
	Submit(ctx context.Context, kind common.Kind, id string, req enrichment.Request) (enrichment.Outcome, error)
	// Job returns the current state of a job.
	Job(ctx context.Context, id string) (*enrichment.Job, error)
	// Process runs a queued job to a terminal state. Terminal jobs are left
	// untouched.
	Process(ctx context.Context, jobID string) error
}

// Config holds the service dependencies. Queue is required in async mode.
type Config struct {
	Mode     Mode
	Timeout  time.Duration
	Catalog  Catalog
	Enricher Enricher
	Jobs     JobStore
	Queue    Queue
	Observer JobObserver
	Logger   logging.Logger
	Now      func() time.Time
}

type serviceImpl struct {
	cfg    Config
	logger logging.Logger
}

func NewService(cfg Config) (Service, error) {
	if cfg.Enricher == nil {
		return nil, errors.New(errors.ErrCodeInternal, "enricher is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSync
	}
	if cfg.Mode != ModeSync && cfg.Mode != ModeAsync {
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown enrichment mode %q", cfg.Mode)
	}
	if cfg.Jobs == nil {
		cfg.Jobs = NewMemoryJobStore()
	}
	if cfg.Mode == ModeAsync && cfg.Queue == nil {
		return nil, errors.New(errors.ErrCodeInternal, "async enrichment requires a queue")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &serviceImpl{cfg: cfg, logger: cfg.Logger.Named("enrich")}
	if lq, ok := cfg.Queue.(*LocalQueue); ok {
		lq.Bind(s)
	}
	return s, nil
}

func (s *serviceImpl) Submit(ctx context.Context, kind common.Kind, id string, req enrichment.Request) (enrichment.Outcome, error) {
	if id == "" {
		return enrichment.Outcome{}, errors.New(errors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	if s.cfg.Mode == ModeSync {
		res, err := s.run(ctx, kind, id, req)
		s.observe(kind, res, err)
		if err != nil {
			return enrichment.Outcome{}, err
		}
		return enrichment.Outcome{Result: res}, nil
	}

	now := s.cfg.Now()
	job := &enrichment.Job{
		ID:        uuid.NewString(),
		Status:    enrichment.JobPending,
		Entity:    kind,
		EntityID:  id,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cfg.Jobs.Save(ctx, job); err != nil {
		return enrichment.Outcome{}, err
	}
	if err := s.cfg.Queue.Enqueue(ctx, job); err != nil {
		s.fail(ctx, job, err)
		return enrichment.Outcome{}, errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to queue enrichment job")
	}
	s.logger.Info("enrichment job queued", logging.JobID(job.ID), logging.Entity(string(kind)), logging.EntityID(id))
	return enrichment.Outcome{JobID: job.ID}, nil
}

func (s *serviceImpl) Job(ctx context.Context, id string) (*enrichment.Job, error) {
	if id == "" {
		return nil, errors.InvalidParam("job ID is required")
	}
	return s.cfg.Jobs.Get(ctx, id)
}

func (s *serviceImpl) Process(ctx context.Context, jobID string) error {
	job, err := s.cfg.Jobs.Get(ctx, jobID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeJobNotFound) {
			s.logger.Warn("skipping unknown enrichment job", logging.JobID(jobID))
			return nil
		}
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}
	if err := job.Transition(enrichment.JobRunning, s.cfg.Now()); err != nil {
		return err
	}
	if err := s.cfg.Jobs.Save(ctx, job); err != nil {
		return err
	}

	res, runErr := s.run(ctx, job.Entity, job.EntityID, job.Request)
	s.observe(job.Entity, res, runErr)
	if runErr != nil {
		s.fail(ctx, job, runErr)
		return nil
	}
	if err := job.Transition(enrichment.JobCompleted, s.cfg.Now()); err != nil {
		return err
	}
	job.Result = res
	if err := s.cfg.Jobs.Save(ctx, job); err != nil {
		return err
	}
	s.logger.Info("enrichment job completed", logging.JobID(job.ID), logging.Int("sources", len(res.Sources)))
	return nil
}

// run enriches one entity and writes the data back. A failed write-back is
// logged; the data is still returned to the caller.
func (s *serviceImpl) run(ctx context.Context, kind common.Kind, id string, req enrichment.Request) (*enrichment.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	subject, err := s.cfg.Catalog.subject(ctx, kind, id, req)
	if err != nil {
		return nil, err
	}
	res, err := s.cfg.Enricher.Enrich(ctx, subject)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.ErrCodeJobTimedOut, "enrichment timed out")
		}
		return nil, err
	}
	if err := s.cfg.Catalog.writeBack(ctx, kind, subject.ID, res.Data); err != nil {
		s.logger.Error("enrichment write-back failed",
			logging.Entity(string(kind)), logging.EntityID(subject.ID), logging.Err(err))
	}
	return res, nil
}

func (s *serviceImpl) fail(ctx context.Context, job *enrichment.Job, cause error) {
	if err := job.Transition(enrichment.JobFailed, s.cfg.Now()); err != nil {
		return
	}
	job.Error = message(cause)
	if err := s.cfg.Jobs.Save(ctx, job); err != nil {
		s.logger.Error("failed to record job failure", logging.JobID(job.ID), logging.Err(err))
	}
	s.logger.Warn("enrichment job failed", logging.JobID(job.ID), logging.Err(cause))
}

func (s *serviceImpl) observe(kind common.Kind, res *enrichment.Result, err error) {
	if s.cfg.Observer == nil {
		return
	}
	status := string(enrichment.JobCompleted)
	if err != nil || res == nil {
		status = string(enrichment.JobFailed)
	}
	s.cfg.Observer.RecordEnrichmentJob(string(kind), status)
}

// message returns the user-facing text of err.
func message(err error) string {
	var ae *errors.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
