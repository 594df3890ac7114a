// Package app is the landing page controller: statistics readout, search box
// and the force-directed graph of every entity.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/internal/ui/dom"
	"github.com/turtacn/HyperBlend/internal/ui/graphview"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// Landing page regions.
const (
	RegionBanner = "banner"
	RegionStats  = "stats"
	RegionSearch = "search"
	RegionGraph  = "graph"
	RegionLegend = "legend"
	RegionDetail = "node-detail"
)

// Regions lists every landing page region.
var Regions = []string{RegionBanner, RegionStats, RegionSearch, RegionGraph, RegionLegend, RegionDetail}

// NewDocument returns the landing page document with all regions mounted.
func NewDocument() *dom.Document {
	return dom.NewDocument("HyperBlend", Regions...)
}

// State is the controller lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "uninitialized"
}

// Metrics receives controller observations.
type Metrics interface {
	RecordInitFailure(page string)
}

type noopMetrics struct{}

func (noopMetrics) RecordInitFailure(string) {}

type settings struct {
	debounce        time.Duration
	initInterval    time.Duration
	initMaxInterval time.Duration
	initMaxAttempts int
	mergeKinds      []common.Kind
	layoutKey       string
	positions       graphview.PositionStore
	viewOpts        []graphview.Option
	logger          logging.Logger
	metrics         Metrics
	schedule        func(d time.Duration, f func()) func() bool
}

// Option configures an App.
type Option func(*settings)

// WithDebounce sets the search debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithInitRetry sets the initial retry interval, the backoff cap and the
// attempt budget of Init.
func WithInitRetry(interval, maxInterval time.Duration, maxAttempts int) Option {
	return func(s *settings) {
		if interval > 0 {
			s.initInterval = interval
		}
		if maxInterval > 0 {
			s.initMaxInterval = maxInterval
		}
		if maxAttempts > 0 {
			s.initMaxAttempts = maxAttempts
		}
	}
}

// WithMergeKinds selects the entity kinds whose unconnected nodes are merged
// into the graph.
func WithMergeKinds(kinds ...common.Kind) Option {
	return func(s *settings) { s.mergeKinds = kinds }
}

// WithPositionStore persists layouts under key.
func WithPositionStore(store graphview.PositionStore, key string) Option {
	return func(s *settings) {
		s.positions = store
		if key != "" {
			s.layoutKey = key
		}
	}
}

// WithViewOptions passes options through to the graph view.
func WithViewOptions(opts ...graphview.Option) Option {
	return func(s *settings) { s.viewOpts = append(s.viewOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithScheduler replaces time.AfterFunc for the search debounce.
func WithScheduler(f func(d time.Duration, fn func()) func() bool) Option {
	return func(s *settings) {
		if f != nil {
			s.schedule = f
		}
	}
}

// App wires the API, the graph view and the statistics readout together.
type App struct {
	src  Source
	doc  *dom.Document
	view *graphview.View
	s    settings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	state        State
	query        string
	seq          uint64
	stopDebounce func() bool
	stats        entity.Statistics
	statsLoaded  bool
	restored     bool
	detail       *graph.NodeDetail
	detailErr    string
	detailSeq    uint64
	banner       string
}

// New creates the controller. The graph renders into RegionGraph of doc.
func New(parent context.Context, src Source, doc *dom.Document, opts ...Option) *App {
	s := settings{
		debounce:        300 * time.Millisecond,
		initInterval:    200 * time.Millisecond,
		initMaxInterval: 5 * time.Second,
		initMaxAttempts: 10,
		mergeKinds:      common.AllKinds,
		layoutKey:       "landing",
		logger:          logging.NewNopLogger(),
		metrics:         noopMetrics{},
		schedule: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = s.logger.Named("app")

	viewOpts := append([]graphview.Option{graphview.WithLogger(s.logger)}, s.viewOpts...)
	ctx, cancel := context.WithCancel(parent)
	a := &App{
		src:    src,
		doc:    doc,
		view:   graphview.New(doc, RegionGraph, viewOpts...),
		s:      s,
		ctx:    ctx,
		cancel: cancel,
	}
	a.view.OnSelect(func(n graph.Node) { a.selectAsync(n.ID) })
	a.view.OnClear(a.ClearSelection)
	return a
}

// View exposes the graph view for pointer interactions.
func (a *App) View() *graphview.View { return a.view }

// Document returns the landing page document.
func (a *App) Document() *dom.Document { return a.doc }

// State returns the lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ─────────────────────────────────────────────────────────────────────────────
// Initialization
// ─────────────────────────────────────────────────────────────────────────────

// Init waits for the graph mount point and the API client, backing off
// exponentially between attempts, then loads the unfiltered graph. When the
// attempt budget is exhausted a fatal banner is shown.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateReady {
		a.mu.Unlock()
		return nil
	}
	a.state = StateInitializing
	a.mu.Unlock()

	wait := a.s.initInterval
	var lastErr error
	for attempt := 1; attempt <= a.s.initMaxAttempts; attempt++ {
		if lastErr = a.tryInit(ctx); lastErr == nil {
			break
		}
		a.s.logger.Debug("landing page not ready, retrying",
			logging.Int("attempt", attempt), logging.Duration("backoff", wait), logging.Err(lastErr))
		if attempt == a.s.initMaxAttempts {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
		if wait *= 2; wait > a.s.initMaxInterval {
			wait = a.s.initMaxInterval
		}
	}

	if lastErr != nil {
		a.mu.Lock()
		a.state = StateFailed
		a.banner = "Unable to load the graph. Reload the page to try again."
		a.renderBannerLocked()
		a.mu.Unlock()
		a.s.metrics.RecordInitFailure("app")
		a.s.logger.Error("landing page initialization failed", logging.Err(lastErr))
		return apperrors.Wrap(lastErr, apperrors.ErrCodeInitExhausted, "landing page initialization failed")
	}

	a.mu.Lock()
	a.state = StateReady
	a.renderSearchLocked()
	a.renderDetailLocked()
	a.mu.Unlock()
	return a.Refresh(ctx, "")
}

func (a *App) tryInit(ctx context.Context) error {
	if err := a.view.Init(); err != nil {
		return err
	}
	return a.src.WaitForInitialization(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Loading and searching
// ─────────────────────────────────────────────────────────────────────────────

// Refresh fetches statistics, the graph filtered by query and the matching
// entity lists concurrently, merges entities missing from the graph and
// replaces the view's data. Statistics and entity lists are best effort; a
// graph failure fails the refresh. A response for a superseded query is
// dropped.
func (a *App) Refresh(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.query = query
	a.mu.Unlock()

	var (
		stats    entity.Statistics
		statsErr error
		data     graph.Data
		extra    = make([][]graph.Node, len(a.s.mergeKinds))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, statsErr = a.src.GetStatistics(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		data, err = a.src.GetGraph(gctx, query)
		return err
	})
	for i, kind := range a.s.mergeKinds {
		i, kind := i, kind
		g.Go(func() error {
			nodes, err := a.src.ListNodes(gctx, kind, query)
			if err != nil {
				a.s.logger.Warn("entity list for graph merge failed",
					logging.Entity(string(kind)), logging.Err(err))
				return nil
			}
			extra[i] = nodes
			return nil
		})
	}
	err := g.Wait()

	var (
		saved        map[string]graphview.Point
		layoutLoaded bool
	)
	if err == nil {
		saved, layoutLoaded = a.loadSavedLayout(ctx)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		a.s.logger.Debug("dropping graph for superseded query", logging.String("query", query))
		return nil
	}
	if statsErr != nil {
		a.s.logger.Warn("statistics fetch failed", logging.Err(statsErr))
	} else {
		a.stats = stats
		a.statsLoaded = true
	}
	a.renderStatsLocked()
	if err != nil {
		a.banner = "Could not load the graph: " + browser.ErrorText(err)
		a.renderBannerLocked()
		a.s.logger.Warn("graph fetch failed", logging.String("query", query), logging.Err(err))
		return err
	}

	merged := MergeNodes(data, extra...)
	a.view.UpdateData(merged)
	if layoutLoaded && !a.restored {
		a.restored = true
		if len(saved) > 0 {
			a.view.RestorePositions(saved)
		}
	}
	a.banner = ""
	a.renderBannerLocked()
	a.renderLegendLocked()
	a.renderSearchLocked()
	return nil
}

// loadSavedLayout reads the persisted layout until one refresh has applied
// it. The store may be remote, so a.mu is not held during the call.
func (a *App) loadSavedLayout(ctx context.Context) (map[string]graphview.Point, bool) {
	a.mu.Lock()
	skip := a.restored || a.s.positions == nil
	a.mu.Unlock()
	if skip {
		return nil, false
	}
	points, err := a.s.positions.Load(ctx, a.s.layoutKey)
	if err != nil {
		a.s.logger.Warn("loading saved layout failed", logging.Err(err))
		return nil, true
	}
	return points, true
}

// Search schedules a refresh for query after the debounce delay. Each call
// restarts the delay, so only the last query of a burst is fetched.
func (a *App) Search(query string) {
	query = strings.TrimSpace(query)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.stopDebounce != nil {
		a.stopDebounce()
	}
	a.stopDebounce = a.s.schedule(a.s.debounce, func() { a.runSearch(query) })
}

func (a *App) runSearch(query string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	if err := a.Refresh(a.ctx, query); err != nil && a.ctx.Err() == nil {
		a.s.logger.Debug("debounced search failed", logging.String("query", query), logging.Err(err))
	}
}

// Query returns the current graph query.
func (a *App) Query() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// Statistics returns the last statistics readout.
func (a *App) Statistics() (entity.Statistics, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats, a.statsLoaded
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

// SelectNode focuses node id and loads its details. Only the latest
// selection is shown.
func (a *App) SelectNode(ctx context.Context, id string) error {
	a.mu.Lock()
	a.detailSeq++
	seq := a.detailSeq
	a.mu.Unlock()

	if err := a.view.FocusNode(id); err != nil {
		a.s.logger.Debug("focus skipped", logging.String("node", id), logging.Err(err))
	}
	detail, err := a.src.GetNode(ctx, id)

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.detailSeq {
		return nil
	}
	if err != nil {
		a.detail = nil
		a.detailErr = "Could not load details for " + id + ": " + browser.ErrorText(err)
		a.renderDetailLocked()
		return err
	}
	if detail.RelatedNodes == nil {
		detail.RelatedNodes = []graph.RelatedNode{}
	}
	a.detail = &detail
	a.detailErr = ""
	a.renderDetailLocked()
	return nil
}

func (a *App) selectAsync(id string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	go func() {
		defer a.wg.Done()
		_ = a.SelectNode(a.ctx, id)
	}()
}

// ClearSelection empties the detail panel.
func (a *App) ClearSelection() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detailSeq++
	a.detail = nil
	a.detailErr = ""
	a.renderDetailLocked()
}

// Detail returns the node detail on display.
func (a *App) Detail() (graph.NodeDetail, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detail == nil {
		return graph.NodeDetail{}, false
	}
	return *a.detail, true
}

// Wait blocks until background searches and selections have finished.
func (a *App) Wait() { a.wg.Wait() }

// ─────────────────────────────────────────────────────────────────────────────
// Layout persistence and shutdown
// ─────────────────────────────────────────────────────────────────────────────

// SavePositions persists the current layout when a store is configured.
func (a *App) SavePositions(ctx context.Context) error {
	if a.s.positions == nil {
		return nil
	}
	if err := a.s.positions.Save(ctx, a.s.layoutKey, a.view.Positions()); err != nil {
		a.s.logger.Warn("saving layout failed", logging.Err(err))
		return err
	}
	return nil
}

// Close stops the debounce timer, cancels background work, waits for it and
// saves the layout.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.stopDebounce != nil {
		a.stopDebounce()
	}
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.SavePositions(ctx)
	a.view.Close()
}
