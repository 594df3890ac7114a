package handlers

import (
	"context"
	_ "embed"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/ui/app"
	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/internal/ui/dom"
	"github.com/turtacn/HyperBlend/internal/ui/graphview"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
)

//go:embed static/hyperblend.css
var stylesheet []byte

// FragmentResponse answers every UI interaction: the re-rendered regions,
// the graph layout when it changed, and the failure text if the
// interaction failed. Failures are also rendered into the regions, so the
// status is always 200.
type FragmentResponse struct {
	Fragments map[string]string   `json:"fragments"`
	Graph     *graphview.Snapshot `json:"graph,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// UIHandler serves the server-rendered pages and their fragment endpoints.
// Controllers are kept per browser session.
type UIHandler struct {
	sessions     *SessionStore
	secureCookie bool
}

// NewUIHandler creates a UIHandler. secureCookie marks the session cookie
// Secure, for deployments behind TLS.
func NewUIHandler(sessions *SessionStore, secureCookie bool) *UIHandler {
	return &UIHandler{sessions: sessions, secureCookie: secureCookie}
}

// RegisterRoutes mounts the landing page, the entity pages and their
// fragment endpoints on r.
func (h *UIHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Landing)
	r.GET("/static/hyperblend.css", h.Stylesheet)

	g := r.Group("/ui/graph")
	g.GET("", h.GraphSnapshot)
	g.GET("/search", h.GraphSearch)
	g.POST("/clear", h.GraphClear)
	g.POST("/click", h.GraphClick)
	g.POST("/zoom", h.GraphZoom)
	g.POST("/pan", h.GraphPan)
	g.POST("/positions", h.SavePositions)
	g.POST("/nodes/:id/select", h.NodeSelect)
	g.POST("/nodes/:id/focus", h.viewOp(func(v *graphview.View, c *gin.Context) error { return v.FocusNode(c.Param("id")) }))
	g.POST("/nodes/:id/drag", h.NodeDrag)
	g.POST("/nodes/:id/unpin", h.viewOp(func(v *graphview.View, c *gin.Context) error { return v.Unpin(c.Param("id")) }))

	for _, kind := range common.AllKinds {
		h.registerPage(r, kind)
	}
}

type pageOp func(ctx context.Context, c *gin.Context, p browser.Controller) error

func (h *UIHandler) registerPage(r gin.IRouter, kind common.Kind) {
	r.GET("/"+kind.Plural(), h.Page(kind))

	g := r.Group("/ui/" + kind.Plural())
	g.GET("/items", h.fragment(kind, func(ctx context.Context, c *gin.Context, p browser.Controller) error {
		_, err := p.Search(ctx, c.Query("q"))
		return err
	}))
	g.POST("/select/:id", h.fragment(kind, func(ctx context.Context, c *gin.Context, p browser.Controller) error {
		return p.Select(ctx, c.Param("id"))
	}))
	g.POST("/close", h.fragment(kind, func(_ context.Context, _ *gin.Context, p browser.Controller) error {
		p.CloseDetails()
		return nil
	}))
	g.POST("/edit/cancel", h.fragment(kind, func(_ context.Context, _ *gin.Context, p browser.Controller) error {
		p.CancelEdit()
		return nil
	}))
	g.POST("/edit/:id", h.fragment(kind, func(_ context.Context, c *gin.Context, p browser.Controller) error {
		return p.Edit(c.Param("id"))
	}))
	g.POST("/submit", h.fragment(kind, func(ctx context.Context, c *gin.Context, p browser.Controller) error {
		values, err := formValues(c)
		if err != nil {
			return err
		}
		return p.SubmitForm(ctx, values)
	}))
	g.POST("/delete/:id", h.fragment(kind, func(_ context.Context, c *gin.Context, p browser.Controller) error {
		return p.RequestDelete(c.Param("id"))
	}))
	g.POST("/delete/:id/confirm", h.fragment(kind, func(ctx context.Context, c *gin.Context, p browser.Controller) error {
		return p.ConfirmDelete(ctx, c.Param("id"))
	}))
	g.POST("/delete/:id/cancel", h.fragment(kind, func(_ context.Context, _ *gin.Context, p browser.Controller) error {
		p.CancelDelete()
		return nil
	}))
	g.POST("/enrich/:id", h.fragment(kind, func(_ context.Context, c *gin.Context, p browser.Controller) error {
		_, err := p.Enrich(c.Param("id"))
		return err
	}))
	g.POST("/actions/:name", h.fragment(kind, func(ctx context.Context, c *gin.Context, p browser.Controller) error {
		return p.RunAction(ctx, c.Param("name"))
	}))
	g.POST("/messages/:mid/dismiss", h.fragment(kind, func(_ context.Context, c *gin.Context, p browser.Controller) error {
		if !p.Dismiss(c.Param("mid")) {
			return errors.NotFound("message not found")
		}
		return nil
	}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

func (h *UIHandler) session(c *gin.Context) *uiSession {
	id, _ := c.Cookie(SessionCookie)
	sess, created := h.sessions.Acquire(id)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sess.id, 0, "/", "", h.secureCookie, true)
	}
	return sess
}

// landing returns the session's landing controller, initialized.
func (h *UIHandler) landing(c *gin.Context) *app.App {
	a := h.session(c).landingApp(h.sessions.factory)
	if err := a.Init(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context()).Warn("landing page not initialized", logging.Err(err))
	}
	return a
}

// controller returns the session's page for kind, initialized.
func (h *UIHandler) controller(c *gin.Context, kind common.Kind) (browser.Controller, error) {
	p, err := h.session(c).page(h.sessions.factory, kind)
	if err != nil {
		return nil, err
	}
	if err := p.Init(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context()).Warn("page not initialized",
			logging.Entity(string(kind)), logging.Err(err))
	}
	return p, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Full pages
// ─────────────────────────────────────────────────────────────────────────────

// Landing handles GET /.
func (h *UIHandler) Landing(c *gin.Context) {
	renderDocument(c, h.landing(c).Document())
}

// Page handles GET /<plural>. ?id= preselects an entity.
func (h *UIHandler) Page(kind common.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.controller(c, kind)
		if err != nil {
			writeAppError(c, err)
			return
		}
		if id := strings.TrimSpace(c.Query("id")); id != "" {
			if err := p.Select(c.Request.Context(), id); err != nil {
				_ = c.Error(err)
			}
		}
		renderDocument(c, p.Document())
	}
}

// Stylesheet handles GET /static/hyperblend.css.
func (h *UIHandler) Stylesheet(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/css; charset=utf-8", stylesheet)
}

func renderDocument(c *gin.Context, doc *dom.Document) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := doc.Render(c.Writer); err != nil {
		logging.FromContext(c.Request.Context()).Error("rendering page failed", logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Entity page fragments
// ─────────────────────────────────────────────────────────────────────────────

func (h *UIHandler) fragment(kind common.Kind, op pageOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.controller(c, kind)
		if err != nil {
			writeAppError(c, err)
			return
		}
		err = op(c.Request.Context(), c, p)
		writeFragments(c, p.Document(), p.Regions().All(), nil, err)
	}
}

func writeFragments(c *gin.Context, doc *dom.Document, ids []string, snap *graphview.Snapshot, err error) {
	resp := FragmentResponse{Fragments: doc.Fragments(ids...), Graph: snap}
	if err != nil {
		_ = c.Error(err)
		resp.Error = browser.ErrorText(err)
	}
	writeJSON(c, http.StatusOK, resp)
}

// formValues reads a submitted form, either urlencoded or as a JSON object
// of strings.
func formValues(c *gin.Context) (map[string]string, error) {
	values := map[string]string{}
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&values); err != nil {
			return nil, errors.InvalidParam("invalid form body").WithCause(err)
		}
		return values, nil
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, errors.InvalidParam("invalid form body").WithCause(err)
	}
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Landing page graph
// ─────────────────────────────────────────────────────────────────────────────

func (h *UIHandler) landingFragments(c *gin.Context, a *app.App, err error) {
	snap := a.View().Snapshot()
	writeFragments(c, a.Document(), app.Regions, &snap, err)
}

// GraphSnapshot handles GET /ui/graph.
func (h *UIHandler) GraphSnapshot(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.landing(c).View().Snapshot())
}

// GraphSearch handles GET /ui/graph/search?q=.
func (h *UIHandler) GraphSearch(c *gin.Context) {
	a := h.landing(c)
	err := a.Refresh(c.Request.Context(), c.Query("q"))
	h.landingFragments(c, a, err)
}

// GraphClear handles POST /ui/graph/clear.
func (h *UIHandler) GraphClear(c *gin.Context) {
	a := h.landing(c)
	a.ClearSelection()
	h.landingFragments(c, a, nil)
}

// NodeSelect handles POST /ui/graph/nodes/:id/select.
func (h *UIHandler) NodeSelect(c *gin.Context) {
	a := h.landing(c)
	err := a.SelectNode(c.Request.Context(), c.Param("id"))
	h.landingFragments(c, a, err)
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphClick handles POST /ui/graph/click with screen coordinates. A hit
// selects the node, a miss clears the selection.
func (h *UIHandler) GraphClick(c *gin.Context) {
	var req pointRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeAppError(c, err)
		return
	}
	a := h.landing(c)
	_, _, err := a.View().Click(req.X, req.Y)
	a.Wait()
	h.landingFragments(c, a, err)
}

type zoomRequest struct {
	Factor float64 `json:"factor" binding:"required,gt=0"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// GraphZoom handles POST /ui/graph/zoom around a screen point.
func (h *UIHandler) GraphZoom(c *gin.Context) {
	var req zoomRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeAppError(c, err)
		return
	}
	h.applyView(c, func(v *graphview.View) error { return v.Zoom(req.Factor, req.X, req.Y) })
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// GraphPan handles POST /ui/graph/pan.
func (h *UIHandler) GraphPan(c *gin.Context) {
	var req panRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeAppError(c, err)
		return
	}
	h.applyView(c, func(v *graphview.View) error { return v.Pan(req.DX, req.DY) })
}

type dragRequest struct {
	Phase string  `json:"phase" binding:"required,oneof=start move end"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// NodeDrag handles POST /ui/graph/nodes/:id/drag. Phases arrive as
// start, any number of moves, then end.
func (h *UIHandler) NodeDrag(c *gin.Context) {
	var req dragRequest
	if err := bindJSON(c, &req, false); err != nil {
		writeAppError(c, err)
		return
	}
	id := c.Param("id")
	h.applyView(c, func(v *graphview.View) error {
		switch req.Phase {
		case "start":
			return v.DragStart(id)
		case "move":
			return v.DragMove(id, req.X, req.Y)
		default:
			return v.DragEnd(id)
		}
	})
}

// SavePositions handles POST /ui/graph/positions.
func (h *UIHandler) SavePositions(c *gin.Context) {
	if err := h.landing(c).SavePositions(c.Request.Context()); err != nil {
		writeAppError(c, errors.Wrap(err, errors.ErrCodeCacheError, "saving layout failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UIHandler) viewOp(fn func(v *graphview.View, c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.applyView(c, func(v *graphview.View) error { return fn(v, c) })
	}
}

// applyView runs fn against the session's graph view and answers with the
// resulting layout.
func (h *UIHandler) applyView(c *gin.Context, fn func(v *graphview.View) error) {
	v := h.landing(c).View()
	if err := fn(v); err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v.Snapshot())
}
