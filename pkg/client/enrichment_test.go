package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

func TestEnrich_ReturnsJobHandle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/molecules/M-4/enrich", r.URL.Path)
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": "job-1"})
	})
	out, err := c.EnrichMolecule(context.Background(), "4", enrichment.Request{
		Identifiers: []common.Identifier{{Type: "name", Value: "Caffeine"}},
	})
	require.NoError(t, err)
	assert.True(t, out.IsJob())
	assert.Equal(t, "job-1", out.JobID)
}

func TestEnrich_ReturnsDirectResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"identifiers":{"uniprot_id":"P28223"}},
			"sources":[{"name":"UniProt","url":"https://www.uniprot.org/uniprot/P28223"}]}`))
	})
	out, err := c.EnrichTarget(context.Background(), "T-1", enrichment.Request{})
	require.NoError(t, err)
	require.False(t, out.IsJob())
	require.NotNil(t, out.Result)
	assert.Equal(t, "P28223", out.Result.Data.Identifiers["uniprot_id"])
	require.Len(t, out.Result.Sources, 1)
	assert.Equal(t, "UniProt", out.Result.Sources[0].Name)
}

func TestEnrich_ErrorBodyBecomesFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"no enrichment data found"}`))
	})
	_, err := c.EnrichEffect(context.Background(), "E-1", enrichment.Request{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnrichmentFailed))
	assert.Contains(t, err.Error(), "no enrichment data found")
}

func TestGetJob_WrappedAndBare(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/a":
			_, _ = w.Write([]byte(`{"job":{"id":"a","status":"failed","error":"provider down"}}`))
		case "/jobs/b":
			_, _ = w.Write([]byte(`{"id":"b","status":"completed"}`))
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		}
	})
	ctx := context.Background()

	a, err := c.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, enrichment.JobFailed, a.Status)
	assert.Equal(t, "provider down", a.Error)

	b, err := c.GetJob(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, enrichment.JobCompleted, b.Status)

	_, err = c.GetJob(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestGetGraph_NormalizesNilSlices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lsd", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"nodes":null,"stats":{"molecules":0}}`))
	})
	data, err := c.GetGraph(context.Background(), " lsd ")
	require.NoError(t, err)
	assert.NotNil(t, data.Nodes)
	assert.NotNil(t, data.Links)
}

func TestGetNode_ReducesCompoundID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nodes/66", r.URL.Path)
		writeJSON(w, http.StatusOK, graph.NodeDetail{ID: "66", Name: "Serotonin", Type: graph.NodeMolecule})
	})
	d, err := c.GetNode(context.Background(), "4:6f1c2d4e-8a1b-4c3d-9e2f-0a1b2c3d4e5f:66")
	require.NoError(t, err)
	assert.Equal(t, "Serotonin", d.Name)
	assert.Equal(t, graph.NodeMolecule, d.Type)
	assert.NotNil(t, d.RelatedNodes)

	_, err = c.GetNode(context.Background(), "4:not-a-uuid:66")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidEntityID))
}
