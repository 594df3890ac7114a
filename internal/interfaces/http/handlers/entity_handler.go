package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
	"github.com/turtacn/HyperBlend/internal/application/enrich"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// EntityHandler serves CRUD and enrichment for one entity kind under
// /<plural>.
type EntityHandler[T entity.Entity] struct {
	svc      catalog.Service[T]
	enricher enrich.Service
}

// NewEntityHandler creates the handler. enricher may be nil, in which case
// the enrich endpoint answers 503.
func NewEntityHandler[T entity.Entity](svc catalog.Service[T], enricher enrich.Service) *EntityHandler[T] {
	return &EntityHandler[T]{svc: svc, enricher: enricher}
}

// RegisterRoutes mounts the handler on rg, which is the API root.
func (h *EntityHandler[T]) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/" + h.svc.Kind().Plural())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/enrich", h.Enrich)
}

// List handles GET /<plural>?q=.
func (h *EntityHandler[T]) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(c, http.StatusOK, items)
}

// Get handles GET /<plural>/:id.
func (h *EntityHandler[T]) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, item)
}

// Create handles POST /<plural>.
func (h *EntityHandler[T]) Create(c *gin.Context) {
	var item T
	if err := bindJSON(c, &item, false); err != nil {
		writeAppError(c, err)
		return
	}
	created, err := h.svc.Create(c.Request.Context(), item)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, created)
}

// Update handles PUT /<plural>/:id.
func (h *EntityHandler[T]) Update(c *gin.Context) {
	var item T
	if err := bindJSON(c, &item, false); err != nil {
		writeAppError(c, err)
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, updated)
}

// Delete handles DELETE /<plural>/:id.
func (h *EntityHandler[T]) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Enrich handles POST /<plural>/:id/enrich. A synchronous run answers with
// the result, an asynchronous one with 202 and the job ID to poll.
func (h *EntityHandler[T]) Enrich(c *gin.Context) {
	if h.enricher == nil {
		writeAppError(c, errors.New(errors.ErrCodeServiceUnavailable, "enrichment is not configured"))
		return
	}
	var req enrichment.Request
	if err := bindJSON(c, &req, true); err != nil {
		writeAppError(c, err)
		return
	}
	out, err := h.enricher.Submit(c.Request.Context(), h.svc.Kind(), c.Param("id"), req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if out.IsJob() {
		writeJSON(c, http.StatusAccepted, gin.H{"job_id": out.JobID})
		return
	}
	writeJSON(c, http.StatusOK, out.Result)
}
