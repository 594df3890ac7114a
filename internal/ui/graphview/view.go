package graphview

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/ui/dom"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// State is the view lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	}
	return "uninitialized"
}

// Transform is the viewport pan/zoom: screen = world*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Apply maps a world point to screen coordinates.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point to world coordinates.
func (t Transform) Invert(sx, sy float64) (float64, float64) {
	return (sx - t.X) / t.K, (sy - t.Y) / t.K
}

// Metrics receives layout observations.
type Metrics interface {
	SetGraphSize(nodesByType map[string]int, edges int)
	ObserveLayout(phase string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) SetGraphSize(map[string]int, int)    {}
func (noopMetrics) ObserveLayout(string, time.Duration) {}

// Scheduler runs f after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func timeScheduler(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

const (
	highlightScale  = 1.5
	baseStroke      = 1.5
	highlightStroke = 3
)

// Option configures a View.
type Option func(*View)

// WithPhysics replaces the simulation tuning.
func WithPhysics(p Physics) Option { return func(v *View) { v.physics = p } }

// WithSize sets the viewport size.
func WithSize(width, height float64) Option {
	return func(v *View) {
		if width > 0 && height > 0 {
			v.width, v.height = width, height
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(v *View) {
		if m != nil {
			v.metrics = m
		}
	}
}

// WithHighlightDuration sets how long a focused node stays highlighted.
func WithHighlightDuration(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.highlightDuration = d
		}
	}
}

// WithZoomBounds bounds the zoom scale.
func WithZoomBounds(min, max float64) Option {
	return func(v *View) {
		if min > 0 && max >= min {
			v.zoomMin, v.zoomMax = min, max
		}
	}
}

// WithLabelThreshold sets the scale below which labels are hidden.
func WithLabelThreshold(k float64) Option { return func(v *View) { v.labelThreshold = k } }

// WithLayoutTicks sets how many ticks run after a data replacement.
func WithLayoutTicks(n int) Option {
	return func(v *View) {
		if n >= 0 {
			v.layoutTicks = n
		}
	}
}

// WithSeed makes initial placement deterministic.
func WithSeed(seed int64) Option {
	return func(v *View) { v.rng = rand.New(rand.NewSource(seed)) }
}

// WithScheduler replaces time.AfterFunc for highlight reverts.
func WithScheduler(s Scheduler) Option {
	return func(v *View) {
		if s != nil {
			v.schedule = s
		}
	}
}

// View is a headless force-directed graph view mounted in one document
// region. It is safe for concurrent use.
type View struct {
	doc     *dom.Document
	mountID string

	physics           Physics
	width, height     float64
	zoomMin, zoomMax  float64
	labelThreshold    float64
	focusScale        float64
	highlightDuration time.Duration
	layoutTicks       int

	logger   logging.Logger
	metrics  Metrics
	schedule Scheduler
	rng      *rand.Rand

	mu            sync.Mutex
	state         State
	data          graph.Data
	sim           *simulation
	legend        Legend
	transform     Transform
	dragging      string
	highlight     string
	highlightGen  uint64
	stopHighlight func() bool
	onSelect      []func(graph.Node)
	onClear       []func()
}

// New creates a view that renders into region mountID of doc.
func New(doc *dom.Document, mountID string, opts ...Option) *View {
	v := &View{
		doc:               doc,
		mountID:           mountID,
		physics:           DefaultPhysics(),
		width:             960,
		height:            600,
		zoomMin:           0.1,
		zoomMax:           8,
		labelThreshold:    0.6,
		focusScale:        2,
		highlightDuration: 1500 * time.Millisecond,
		layoutTicks:       300,
		logger:            logging.NewNopLogger(),
		metrics:           noopMetrics{},
		schedule:          timeScheduler,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		transform:         Transform{K: 1},
		legend:            Legend{NodeTypes: []LegendEntry{}, Activities: []LegendEntry{}},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.sim = newSimulation(v.physics, v.width, v.height, v.rng)
	return v
}

// State returns the lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Init moves the view to ready. When the mount point is absent the view logs
// the problem, stays uninitialized and returns an error the caller may retry
// on; every other operation is inert until Init succeeds.
func (v *View) Init() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateReady {
		return nil
	}
	v.state = StateInitializing
	if v.doc == nil || !v.doc.Has(v.mountID) {
		v.state = StateUninitialized
		v.logger.Warn("graph mount point missing", logging.String("region", v.mountID))
		return apperrors.New(apperrors.ErrCodeMountPointMissing, "graph mount point missing").WithDetail("region=" + v.mountID)
	}
	v.state = StateReady
	v.logger.Debug("graph view ready", logging.String("region", v.mountID))
	return v.renderLocked()
}

func (v *View) ready() error {
	if v.state != StateReady {
		return apperrors.New(apperrors.ErrCodeViewNotReady, "graph view not ready")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Data
// ─────────────────────────────────────────────────────────────────────────────

// UpdateData replaces the node and link set. Nodes whose ID was already
// present keep their position; new nodes start at a random point. The
// simulation restarts at full energy and runs the configured number of
// ticks. Data may be loaded before Init; it is rendered once the view is
// ready.
func (v *View) UpdateData(data graph.Data) {
	start := time.Now()
	v.mu.Lock()
	defer v.mu.Unlock()

	if data.Nodes == nil {
		data.Nodes = []graph.Node{}
	}
	if data.Links == nil {
		data.Links = []graph.Link{}
	}
	v.data = data
	v.sim.load(data.Nodes, data.Links)
	v.sim.restart()
	if v.highlight != "" && !data.HasNode(v.highlight) {
		v.clearHighlightLocked()
	}
	if v.dragging != "" && !data.HasNode(v.dragging) {
		v.dragging = ""
		v.sim.alphaTarget = 0
	}
	v.legend = BuildLegend(data)
	ticks := v.sim.step(v.layoutTicks)

	counts := map[string]int{}
	for _, n := range data.Nodes {
		counts[string(n.Type)]++
	}
	v.metrics.SetGraphSize(counts, len(data.Links))
	v.metrics.ObserveLayout("update", time.Since(start))
	v.logger.Debug("graph data replaced",
		logging.Int("nodes", len(data.Nodes)),
		logging.Int("links", len(data.Links)),
		logging.Int("ticks", ticks))

	if v.state == StateReady {
		_ = v.renderLocked()
	}
}

// Data returns the current data set.
func (v *View) Data() graph.Data {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}

// Tick advances the simulation by up to n ticks and re-renders.
func (v *View) Tick(n int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	ran := v.sim.step(n)
	if v.state == StateReady && ran > 0 {
		_ = v.renderLocked()
	}
	return ran
}

// Alpha returns the current simulation energy.
func (v *View) Alpha() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sim.alpha
}

// Legend returns the legend for the current data.
func (v *View) Legend() Legend {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.legend
}

// ─────────────────────────────────────────────────────────────────────────────
// Viewport
// ─────────────────────────────────────────────────────────────────────────────

// Transform returns the viewport transform.
func (v *View) Transform() Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transform
}

func (v *View) clampScale(k float64) float64 {
	if math.IsNaN(k) || k <= 0 {
		return v.zoomMin
	}
	return math.Max(v.zoomMin, math.Min(v.zoomMax, k))
}

// SetTransform sets the viewport, clamping the scale to the zoom bounds.
func (v *View) SetTransform(t Transform) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	t.K = v.clampScale(t.K)
	v.transform = t
	return v.renderLocked()
}

// Zoom scales the viewport by factor around the screen point (sx, sy).
func (v *View) Zoom(factor, sx, sy float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	wx, wy := v.transform.Invert(sx, sy)
	k := v.clampScale(v.transform.K * factor)
	v.transform = Transform{X: sx - wx*k, Y: sy - wy*k, K: k}
	return v.renderLocked()
}

// Pan moves the viewport by (dx, dy) screen pixels.
func (v *View) Pan(dx, dy float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	v.transform.X += dx
	v.transform.Y += dy
	return v.renderLocked()
}

// LabelsVisible reports whether node labels are drawn at the current scale.
func (v *View) LabelsVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transform.K >= v.labelThreshold
}

// ─────────────────────────────────────────────────────────────────────────────
// Drag and pin
// ─────────────────────────────────────────────────────────────────────────────

func (v *View) bodyLocked(id string) (*body, error) {
	b, ok := v.sim.body(id)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeNodeNotFound, "node not found").WithDetail("id=" + id)
	}
	return b, nil
}

// DragStart pins node id where it is and warms the simulation so neighbours
// follow the drag.
func (v *View) DragStart(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	b, err := v.bodyLocked(id)
	if err != nil {
		return err
	}
	b.pin(b.x, b.y)
	v.dragging = id
	v.sim.alphaTarget = v.physics.DragAlpha
	return nil
}

// DragMove moves the dragged node to world point (x, y) and advances the
// simulation one tick.
func (v *View) DragMove(id string, x, y float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	b, err := v.bodyLocked(id)
	if err != nil {
		return err
	}
	if v.dragging != id {
		v.dragging = id
		v.sim.alphaTarget = v.physics.DragAlpha
	}
	b.pin(x, y)
	b.x, b.y = x, y
	v.sim.alpha = math.Max(v.sim.alpha, v.physics.DragAlpha)
	v.sim.tick()
	return v.renderLocked()
}

// DragEnd releases the drag. The node stays pinned where it was dropped.
func (v *View) DragEnd(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	if _, err := v.bodyLocked(id); err != nil {
		return err
	}
	if v.dragging == id {
		v.dragging = ""
	}
	v.sim.alphaTarget = 0
	v.sim.step(v.layoutTicks)
	return v.renderLocked()
}

// Unpin returns node id to the simulation.
func (v *View) Unpin(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	b, err := v.bodyLocked(id)
	if err != nil {
		return err
	}
	b.unpin()
	v.sim.alpha = math.Max(v.sim.alpha, v.physics.DragAlpha)
	v.sim.step(v.layoutTicks)
	return v.renderLocked()
}

// IsPinned reports whether node id is pinned.
func (v *View) IsPinned(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.sim.body(id)
	return ok && b.pinned()
}

// Position returns the world position of node id.
func (v *View) Position(id string) (Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.sim.body(id)
	if !ok {
		return Point{}, false
	}
	return Point{X: b.x, Y: b.y, Pinned: b.pinned()}, true
}

// Positions returns every node position keyed by ID.
func (v *View) Positions() map[string]Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]Point, len(v.sim.bodies))
	for _, b := range v.sim.bodies {
		out[b.node.ID] = Point{X: b.x, Y: b.y, Pinned: b.pinned()}
	}
	return out
}

// RestorePositions moves known nodes to saved positions, re-pinning those
// saved as pinned. Unknown IDs are ignored.
func (v *View) RestorePositions(points map[string]Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, p := range points {
		b, ok := v.sim.body(id)
		if !ok {
			continue
		}
		b.x, b.y = p.X, p.Y
		b.vx, b.vy = 0, 0
		if p.Pinned {
			b.pin(p.X, p.Y)
		} else {
			b.unpin()
		}
	}
	if v.state == StateReady {
		_ = v.renderLocked()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Focus and selection
// ─────────────────────────────────────────────────────────────────────────────

// FocusNode centres the viewport on node id at focus scale and highlights
// it. The highlight reverts after the highlight duration; the transform is
// left where it is.
func (v *View) FocusNode(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	b, err := v.bodyLocked(id)
	if err != nil {
		return err
	}
	k := v.clampScale(math.Max(v.transform.K, v.focusScale))
	v.transform = Transform{X: v.width/2 - b.x*k, Y: v.height/2 - b.y*k, K: k}

	v.clearHighlightLocked()
	v.highlight = id
	v.highlightGen++
	gen := v.highlightGen
	v.stopHighlight = v.schedule(v.highlightDuration, func() { v.revertHighlight(gen) })
	return v.renderLocked()
}

func (v *View) revertHighlight(gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.highlightGen || v.highlight == "" {
		return
	}
	v.highlight = ""
	v.stopHighlight = nil
	if v.state == StateReady {
		_ = v.renderLocked()
	}
}

func (v *View) clearHighlightLocked() {
	if v.stopHighlight != nil {
		v.stopHighlight()
		v.stopHighlight = nil
	}
	v.highlight = ""
	v.highlightGen++
}

// Highlighted returns the ID of the highlighted node, or "".
func (v *View) Highlighted() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.highlight
}

// NodeStyle returns the drawn radius and stroke width of node id.
func (v *View) NodeStyle(id string) (radius, stroke float64, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, found := v.sim.body(id)
	if !found {
		return 0, 0, false
	}
	r, s := v.styleLocked(b)
	return r, s, true
}

func (v *View) styleLocked(b *body) (float64, float64) {
	if b.node.ID == v.highlight {
		return b.radius * highlightScale, highlightStroke
	}
	return b.radius, baseStroke
}

// OnSelect registers a node-selected listener.
func (v *View) OnSelect(fn func(graph.Node)) {
	v.mu.Lock()
	v.onSelect = append(v.onSelect, fn)
	v.mu.Unlock()
}

// OnClear registers a listener for clicks on empty canvas.
func (v *View) OnClear(fn func()) {
	v.mu.Lock()
	v.onClear = append(v.onClear, fn)
	v.mu.Unlock()
}

// ClickNode emits one node-selected event for node id.
func (v *View) ClickNode(id string) (graph.Node, error) {
	v.mu.Lock()
	if err := v.ready(); err != nil {
		v.mu.Unlock()
		return graph.Node{}, err
	}
	b, err := v.bodyLocked(id)
	if err != nil {
		v.mu.Unlock()
		return graph.Node{}, err
	}
	node := b.node
	listeners := append([]func(graph.Node){}, v.onSelect...)
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(node)
	}
	return node, nil
}

// Click hit-tests the screen point (sx, sy). A hit emits node-selected; a miss
// emits clear.
func (v *View) Click(sx, sy float64) (graph.Node, bool, error) {
	v.mu.Lock()
	if err := v.ready(); err != nil {
		v.mu.Unlock()
		return graph.Node{}, false, err
	}
	wx, wy := v.transform.Invert(sx, sy)
	var hit *body
	best := math.Inf(1)
	for _, b := range v.sim.bodies {
		r, _ := v.styleLocked(b)
		d := math.Hypot(b.x-wx, b.y-wy)
		if d <= r && d < best {
			hit, best = b, d
		}
	}
	if hit == nil {
		listeners := append([]func(){}, v.onClear...)
		v.mu.Unlock()
		for _, fn := range listeners {
			fn()
		}
		return graph.Node{}, false, nil
	}
	node := hit.node
	listeners := append([]func(graph.Node){}, v.onSelect...)
	v.mu.Unlock()
	for _, fn := range listeners {
		fn(node)
	}
	return node, true, nil
}

// Close cancels any pending highlight revert.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopHighlight != nil {
		v.stopHighlight()
		v.stopHighlight = nil
	}
}
