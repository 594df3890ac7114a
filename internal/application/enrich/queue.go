package enrich

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/HyperBlend/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// Queue hands a pending job to whatever will run it.
type Queue interface {
	Enqueue(ctx context.Context, job *enrichment.Job) error
}

// Runner executes a queued job by ID.
type Runner interface {
	Process(ctx context.Context, jobID string) error
}

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *kafka.Message) error
}

// KafkaQueue announces jobs on the enrichment topic. A worker process
// consumes them with Handler.
type KafkaQueue struct {
	publisher MessagePublisher
	topic     string
	source    string
}

func NewKafkaQueue(p MessagePublisher, topic, source string) *KafkaQueue {
	if topic == "" {
		topic = kafka.TopicEnrichment
	}
	if source == "" {
		source = "hyperblend-api"
	}
	return &KafkaQueue{publisher: p, topic: topic, source: source}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job *enrichment.Job) error {
	msg, err := kafka.NewEnrichmentRequested(q.topic, q.source, kafka.EnrichmentRequestedPayload{
		JobID:    job.ID,
		Entity:   job.Entity,
		EntityID: job.EntityID,
	})
	if err != nil {
		return err
	}
	return q.publisher.Publish(ctx, msg)
}

// Handler adapts a Runner to the Kafka consumer. Undecodable messages are
// logged and dropped; processing errors are returned for retry.
func Handler(r Runner, log logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		p, err := kafka.DecodeEnrichmentRequested(msg)
		if err != nil {
			log.Warn("dropping malformed enrichment message", logging.Err(err), logging.Int64("offset", msg.Offset))
			return nil
		}
		return r.Process(ctx, p.JobID)
	}
}

// LocalQueue runs jobs on goroutines in this process, at most workers at a
// time. Jobs run on the queue's own context so they outlive the request
// that submitted them.
type LocalQueue struct {
	runner Runner
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logging.Logger
}

func NewLocalQueue(workers int, logger logging.Logger) *LocalQueue {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{
		sem:    semaphore.NewWeighted(int64(workers)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Bind sets the runner. It must be called before the first Enqueue.
func (q *LocalQueue) Bind(r Runner) { q.runner = r }

func (q *LocalQueue) Enqueue(_ context.Context, job *enrichment.Job) error {
	if q.runner == nil {
		return errors.New(errors.ErrCodeInternal, "local queue has no runner")
	}
	if q.ctx.Err() != nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "local queue stopped")
	}
	id := job.ID
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			return
		}
		defer q.sem.Release(1)
		if err := q.runner.Process(q.ctx, id); err != nil {
			q.logger.Warn("local enrichment job failed", logging.JobID(id), logging.Err(err))
		}
	}()
	return nil
}

// Close cancels pending jobs and waits for running ones.
func (q *LocalQueue) Close() error {
	q.cancel()
	q.wg.Wait()
	return nil
}
