package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/application/enrich"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// JobHandler exposes enrichment job state.
type JobHandler struct {
	svc enrich.Service
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(svc enrich.Service) *JobHandler {
	return &JobHandler{svc: svc}
}

// RegisterRoutes mounts GET /jobs/:id on rg.
func (h *JobHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs/:id", h.Get)
}

// Get handles GET /jobs/:id.
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.svc.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, enrichment.JobEnvelope{Job: *job})
}
