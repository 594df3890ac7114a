package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
	"github.com/turtacn/HyperBlend/internal/application/molecule"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// MoleculeHandler serves the molecule endpoints that sit beside plain CRUD.
type MoleculeHandler struct {
	svc   molecule.Service
	graph catalog.GraphService
}

// NewMoleculeHandler creates a MoleculeHandler.
func NewMoleculeHandler(svc molecule.Service, graph catalog.GraphService) *MoleculeHandler {
	return &MoleculeHandler{svc: svc, graph: graph}
}

// RegisterRoutes mounts the molecule extras under /molecules on rg.
func (h *MoleculeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/molecules")
	g.GET("/lookup", h.Lookup)
	g.POST("/create_or_update", h.CreateOrUpdate)
	g.POST("/migrate_ids", h.MigrateIDs)
	g.GET("/:id/structure.png", h.Structure)
}

// Lookup handles GET /molecules/lookup?type=&value=.
func (h *MoleculeHandler) Lookup(c *gin.Context) {
	idType := strings.TrimSpace(c.Query("type"))
	value := strings.TrimSpace(c.Query("value"))
	if idType == "" || value == "" {
		writeAppError(c, errors.InvalidParam("type and value are required"))
		return
	}
	m, err := h.svc.Lookup(c.Request.Context(), idType, value)
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

// CreateOrUpdate handles POST /molecules/create_or_update. It answers 201
// when a new molecule was stored and 200 when an existing one was updated.
func (h *MoleculeHandler) CreateOrUpdate(c *gin.Context) {
	var m entity.Molecule
	if err := bindJSON(c, &m, false); err != nil {
		writeAppError(c, err)
		return
	}
	saved, created, err := h.svc.CreateOrUpdate(c.Request.Context(), m)
	if err != nil {
		writeAppError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(c, status, saved)
}

// MigrateIDs handles POST /molecules/migrate_ids.
func (h *MoleculeHandler) MigrateIDs(c *gin.Context) {
	res, err := h.graph.MigrateMoleculeIDs(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// Structure handles GET /molecules/:id/structure.png.
func (h *MoleculeHandler) Structure(c *gin.Context) {
	img, err := h.svc.Structure(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	if img.ETag != "" {
		if c.GetHeader("If-None-Match") == img.ETag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", img.ETag)
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, img.Data)
}
