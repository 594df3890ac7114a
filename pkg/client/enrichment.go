package client

import (
	"context"
	"encoding/json"
	"net/url"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// enrichResponse covers both submission answers: a job handle or a finished
// result, plus the {"error": ...} failure form some endpoints use with 200.
type enrichResponse struct {
	JobID   string             `json:"job_id"`
	Success *bool              `json:"success"`
	Data    enrichment.Data    `json:"data"`
	Sources []common.Source    `json:"sources"`
	Error   string             `json:"error"`
	Result  *enrichment.Result `json:"result"`
}

// Enrich submits an enrichment request for the entity with the given ID.
func (ec *EntityClient[T]) Enrich(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	if id == "" {
		return enrichment.Outcome{}, apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	var raw json.RawMessage
	if err := ec.c.post(ctx, ec.itemPath(id)+"/enrich", req, &raw); err != nil {
		return enrichment.Outcome{}, err
	}
	return decodeOutcome(raw)
}

func decodeOutcome(raw json.RawMessage) (enrichment.Outcome, error) {
	var resp enrichResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return enrichment.Outcome{}, unexpectedShape("enrichment", err)
	}
	if resp.JobID != "" {
		return enrichment.Outcome{JobID: resp.JobID}, nil
	}
	if resp.Result != nil {
		if !resp.Result.Success {
			return enrichment.Outcome{}, enrichmentFailure(resp.Result.Error)
		}
		return enrichment.Outcome{Result: resp.Result}, nil
	}
	if resp.Error != "" || (resp.Success != nil && !*resp.Success) {
		return enrichment.Outcome{}, enrichmentFailure(resp.Error)
	}
	if resp.Success == nil {
		return enrichment.Outcome{}, unexpectedShape("enrichment", nil)
	}
	return enrichment.Outcome{Result: &enrichment.Result{
		Success: true,
		Data:    resp.Data,
		Sources: resp.Sources,
	}}, nil
}

func enrichmentFailure(msg string) error {
	if msg == "" {
		msg = "enrichment failed"
	}
	return apperrors.New(apperrors.ErrCodeEnrichmentFailed, msg)
}

// GetJob fetches the current state of an enrichment job. The payload may be
// wrapped under "job" or bare.
func (c *Client) GetJob(ctx context.Context, jobID string) (enrichment.Job, error) {
	if jobID == "" {
		return enrichment.Job{}, apperrors.InvalidParam("job ID is required")
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/jobs/"+url.PathEscape(jobID), nil, &raw); err != nil {
		return enrichment.Job{}, err
	}
	var env struct {
		Job *enrichment.Job `json:"job"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Job != nil {
		return *env.Job, nil
	}
	var job enrichment.Job
	if err := json.Unmarshal(raw, &job); err != nil || job.Status == "" {
		return enrichment.Job{}, unexpectedShape("job", err)
	}
	return job, nil
}

// EnrichMolecule submits a molecule enrichment.
func (c *Client) EnrichMolecule(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	return c.Molecules().Enrich(ctx, StandardizeMoleculeID(id), req)
}

// EnrichTarget submits a target enrichment.
func (c *Client) EnrichTarget(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	return c.Targets().Enrich(ctx, id, req)
}

// EnrichOrganism submits an organism enrichment.
func (c *Client) EnrichOrganism(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	return c.Organisms().Enrich(ctx, id, req)
}

// EnrichEffect submits an effect enrichment.
func (c *Client) EnrichEffect(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	return c.Effects().Enrich(ctx, id, req)
}
