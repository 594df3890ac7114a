package browser

import (
	"context"
	"time"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// PollState is the client-side view of an enrichment job.
type PollState string

const (
	PollPending   PollState = "pending"
	PollCompleted PollState = "completed"
	PollFailed    PollState = "failed"
	PollTimedOut  PollState = "timed_out"
)

// IsTerminal reports whether polling has stopped.
func (s PollState) IsTerminal() bool { return s != PollPending }

// PollResult is the outcome of a poll loop.
type PollResult struct {
	State    PollState
	Job      enrichment.Job
	Attempts int
	// LastErr is the most recent fetch error, if any.
	LastErr error
}

// JobPoller polls a job at a fixed interval until it reaches a terminal
// status or the attempt budget runs out.
type JobPoller struct {
	Fetch       func(ctx context.Context, jobID string) (enrichment.Job, error)
	Interval    time.Duration
	MaxAttempts int
	// IsNotFound reports fetch errors that mean the job is gone.
	IsNotFound func(error) bool
	// OnAttempt observes each fetch.
	OnAttempt func(attempt int, job enrichment.Job, err error)
}

// Run polls jobID. It returns an error only when ctx is cancelled; every
// other outcome is described by the result state.
func (p JobPoller) Run(ctx context.Context, jobID string) (PollResult, error) {
	res := PollResult{State: PollPending}
	for res.Attempts < p.MaxAttempts {
		res.Attempts++
		job, err := p.Fetch(ctx, jobID)
		if p.OnAttempt != nil {
			p.OnAttempt(res.Attempts, job, err)
		}
		switch {
		case ctx.Err() != nil:
			return res, ctx.Err()
		case err != nil:
			res.LastErr = err
			if p.IsNotFound != nil && p.IsNotFound(err) {
				res.State = PollFailed
				return res, nil
			}
		default:
			res.Job = job
			switch job.Status {
			case enrichment.JobCompleted:
				res.State = PollCompleted
				return res, nil
			case enrichment.JobFailed:
				res.State = PollFailed
				return res, nil
			}
		}
		if res.Attempts >= p.MaxAttempts {
			break
		}
		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res, ctx.Err()
		case <-timer.C:
		}
	}
	res.State = PollTimedOut
	return res, nil
}

// TimeoutError is the error surfaced when polling runs out of attempts.
func TimeoutError(jobID string) error {
	return apperrors.New(apperrors.ErrCodeJobTimedOut, "enrichment timed out, try again").WithDetail("job=" + jobID)
}
