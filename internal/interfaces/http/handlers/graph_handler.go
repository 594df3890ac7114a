package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
)

// GraphHandler serves the graph read models.
type GraphHandler struct {
	svc catalog.GraphService
}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler(svc catalog.GraphService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

// RegisterRoutes mounts /graph, /nodes/:id and /statistics on rg.
func (h *GraphHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/graph", h.Graph)
	rg.GET("/nodes/:id", h.Node)
	rg.GET("/statistics", h.Statistics)
}

// Graph handles GET /graph?q=.
func (h *GraphHandler) Graph(c *gin.Context) {
	data, err := h.svc.Graph(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, data)
}

// Node handles GET /nodes/:id.
func (h *GraphHandler) Node(c *gin.Context) {
	detail, err := h.svc.Node(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, detail)
}

// Statistics handles GET /statistics.
func (h *GraphHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, stats)
}
