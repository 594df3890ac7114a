package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/internal/ui/dom"
	"github.com/turtacn/HyperBlend/internal/ui/graphview"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

type fakeSource struct {
	mu         sync.Mutex
	waitErrs   []error
	waitCalls  int
	graphCalls []string
	graphFn    func(ctx context.Context, q string) (graph.Data, error)
	nodeFn     func(ctx context.Context, id string) (graph.NodeDetail, error)
	lists      map[common.Kind][]graph.Node
	stats      entity.Statistics
	statsErr   error
}

func (f *fakeSource) WaitForInitialization(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitCalls++
	if len(f.waitErrs) == 0 {
		return nil
	}
	err := f.waitErrs[0]
	f.waitErrs = f.waitErrs[1:]
	return err
}

func (f *fakeSource) GetStatistics(context.Context) (entity.Statistics, error) {
	return f.stats, f.statsErr
}

func (f *fakeSource) GetGraph(ctx context.Context, q string) (graph.Data, error) {
	f.mu.Lock()
	f.graphCalls = append(f.graphCalls, q)
	fn := f.graphFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return sampleGraph(), nil
}

func (f *fakeSource) GetNode(ctx context.Context, id string) (graph.NodeDetail, error) {
	if f.nodeFn != nil {
		return f.nodeFn(ctx, id)
	}
	return graph.NodeDetail{ID: id, Name: strings.ToUpper(id), Type: "Molecule"}, nil
}

func (f *fakeSource) ListNodes(_ context.Context, kind common.Kind, _ string) ([]graph.Node, error) {
	return f.lists[kind], nil
}

func (f *fakeSource) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.graphCalls...)
}

func sampleGraph() graph.Data {
	return graph.Data{
		Nodes: []graph.Node{
			{ID: "M-1", Name: "Psilocin", Type: graph.NodeMolecule},
			{ID: "T-1", Name: "5-HT2A", Type: graph.NodeTarget},
		},
		Links: []graph.Link{{Source: "M-1", Target: "T-1", Type: "BINDS_TO", ActivityType: graph.ActivityAgonist}},
	}
}

type capturedTimers struct {
	mu      sync.Mutex
	fns     []func()
	stopped int
}

func (c *capturedTimers) schedule(_ time.Duration, fn func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
	idx := len(c.fns) - 1
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.fns[idx] == nil {
			return false
		}
		c.fns[idx] = nil
		c.stopped++
		return true
	}
}

func (c *capturedTimers) fireAll() {
	c.mu.Lock()
	fns := append([]func(){}, c.fns...)
	for i := range c.fns {
		c.fns[i] = nil
	}
	c.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func newTestApp(t *testing.T, src *fakeSource, opts ...Option) (*App, *capturedTimers) {
	t.Helper()
	timers := &capturedTimers{}
	base := []Option{
		WithInitRetry(time.Millisecond, 2*time.Millisecond, 3),
		WithScheduler(timers.schedule),
		WithViewOptions(graphview.WithLayoutTicks(5), graphview.WithSeed(1),
			graphview.WithScheduler(func(time.Duration, func()) func() bool { return func() bool { return true } })),
	}
	a := New(context.Background(), src, NewDocument(), append(base, opts...)...)
	t.Cleanup(a.Close)
	return a, timers
}

func nodeIDs(data graph.Data) []string {
	out := make([]string, 0, len(data.Nodes))
	for _, n := range data.Nodes {
		out = append(out, n.ID)
	}
	return out
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestApp_InitLoadsGraphAndStats(t *testing.T) {
	src := &fakeSource{stats: entity.Statistics{Molecules: 1, Targets: 1}}
	a, _ := newTestApp(t, src)

	require.NoError(t, a.Init(context.Background()))
	assert.Equal(t, StateReady, a.State())
	assert.Equal(t, []string{"M-1", "T-1"}, nodeIDs(a.View().Data()))

	stats, ok := a.Statistics()
	require.True(t, ok)
	assert.Equal(t, 2, stats.Total())

	html := string(a.Document().HTML(RegionStats))
	assert.Contains(t, html, "Molecules")
	assert.Contains(t, html, "<dd>1</dd>")
	assert.Contains(t, string(a.Document().HTML(RegionLegend)), "agonist")
}

func TestApp_MergesUnconnectedEntities(t *testing.T) {
	src := &fakeSource{lists: map[common.Kind][]graph.Node{
		common.KindMolecule: {{ID: "M-1", Name: "Psilocin", Type: graph.NodeMolecule}},
		common.KindTarget:   {{ID: "T-9", Name: "Orphan receptor", Type: graph.NodeTarget}},
	}}
	a, _ := newTestApp(t, src)

	require.NoError(t, a.Init(context.Background()))
	data := a.View().Data()
	assert.Equal(t, []string{"M-1", "T-1", "T-9"}, nodeIDs(data))
	assert.Equal(t, 2, data.Stats.Targets)
	_, ok := a.View().Position("T-9")
	assert.True(t, ok)
}

func TestApp_StatisticsFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{statsErr: errors.New("stats down")}
	a, _ := newTestApp(t, src)

	require.NoError(t, a.Init(context.Background()))
	_, ok := a.Statistics()
	assert.False(t, ok)
	assert.Len(t, a.View().Data().Nodes, 2)
}

func TestApp_GraphFailureShowsBanner(t *testing.T) {
	src := &fakeSource{graphFn: func(context.Context, string) (graph.Data, error) {
		return graph.Data{}, errors.New("neo4j unavailable")
	}}
	a, _ := newTestApp(t, src)

	require.Error(t, a.Init(context.Background()))
	assert.Contains(t, string(a.Document().HTML(RegionBanner)), "neo4j unavailable")
}

func TestApp_SearchIsDebounced(t *testing.T) {
	src := &fakeSource{}
	a, timers := newTestApp(t, src)
	require.NoError(t, a.Init(context.Background()))

	a.Search("p")
	a.Search("ps")
	a.Search(" psi ")
	timers.fireAll()
	a.Wait()

	assert.Equal(t, []string{"", "psi"}, src.calls())
	assert.Equal(t, "psi", a.Query())
	assert.Equal(t, 2, timers.stopped)
}

func TestApp_SupersededResponseIsDropped(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{}
	src.graphFn = func(_ context.Context, q string) (graph.Data, error) {
		if q == "slow" {
			<-release
			return graph.Data{Nodes: []graph.Node{{ID: "S-1", Type: graph.NodeMolecule}}}, nil
		}
		return sampleGraph(), nil
	}
	a, _ := newTestApp(t, src)
	require.NoError(t, a.Init(context.Background()))

	done := make(chan error, 1)
	go func() { done <- a.Refresh(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return len(src.calls()) == 2 }, time.Second, time.Millisecond)

	require.NoError(t, a.Refresh(context.Background(), "fast"))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "fast", a.Query())
	assert.Equal(t, []string{"M-1", "T-1"}, nodeIDs(a.View().Data()))
}

func TestApp_InitFailsWithoutGraphRegion(t *testing.T) {
	metrics := &recordingMetrics{}
	doc := dom.NewDocument("HyperBlend", RegionBanner, RegionStats)
	a := New(context.Background(), &fakeSource{}, doc,
		WithInitRetry(time.Millisecond, 2*time.Millisecond, 3), WithMetrics(metrics))
	defer a.Close()

	err := a.Init(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInitExhausted))
	assert.Equal(t, StateFailed, a.State())
	assert.Equal(t, []string{"app"}, metrics.failures)
	assert.Contains(t, string(doc.HTML(RegionBanner)), "Unable to load the graph")
}

func TestApp_InitRetriesUntilClientReady(t *testing.T) {
	src := &fakeSource{waitErrs: []error{errors.New("starting"), errors.New("starting")}}
	a, _ := newTestApp(t, src)

	require.NoError(t, a.Init(context.Background()))
	assert.Equal(t, 3, src.waitCalls)
	assert.Equal(t, []string{""}, src.calls())
}

func TestApp_InitGivesUpWhenClientNeverReady(t *testing.T) {
	src := &fakeSource{waitErrs: []error{errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")}}
	a, _ := newTestApp(t, src)

	require.Error(t, a.Init(context.Background()))
	assert.Equal(t, 3, src.waitCalls)
	assert.Empty(t, src.calls())
}

func TestApp_SelectNodeLatestWins(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{}
	src.nodeFn = func(_ context.Context, id string) (graph.NodeDetail, error) {
		if id == "M-1" {
			<-release
		}
		return graph.NodeDetail{ID: id, Name: id + " name", Type: "Target",
			RelatedNodes: []graph.RelatedNode{{ID: "M-1", Name: "Psilocin", Type: "Molecule", Relationship: "BINDS_TO", Activity: "agonist"}}}, nil
	}
	a, _ := newTestApp(t, src)
	require.NoError(t, a.Init(context.Background()))

	done := make(chan error, 1)
	go func() { done <- a.SelectNode(context.Background(), "M-1") }()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, a.SelectNode(context.Background(), "T-1"))
	close(release)
	require.NoError(t, <-done)

	detail, ok := a.Detail()
	require.True(t, ok)
	assert.Equal(t, "T-1", detail.ID)
	html := string(a.Document().HTML(RegionDetail))
	assert.Contains(t, html, `href="/molecules?id=M-1"`)
	assert.Contains(t, html, "BINDS_TO (agonist)")
}

func TestApp_ClickSelectsAndClears(t *testing.T) {
	src := &fakeSource{}
	a, _ := newTestApp(t, src)
	require.NoError(t, a.Init(context.Background()))

	_, err := a.View().ClickNode("M-1")
	require.NoError(t, err)
	a.Wait()
	detail, ok := a.Detail()
	require.True(t, ok)
	assert.Equal(t, "M-1", detail.ID)
	assert.Equal(t, "M-1", a.View().Highlighted())

	a.ClearSelection()
	_, ok = a.Detail()
	assert.False(t, ok)
	assert.Contains(t, string(a.Document().HTML(RegionDetail)), "Click a node")
}

func TestApp_SelectNodeFailureShowsMessage(t *testing.T) {
	src := &fakeSource{nodeFn: func(context.Context, string) (graph.NodeDetail, error) {
		return graph.NodeDetail{}, apperrors.NotFound("node not found")
	}}
	a, _ := newTestApp(t, src)
	require.NoError(t, a.Init(context.Background()))

	require.Error(t, a.SelectNode(context.Background(), "X-1"))
	assert.Contains(t, string(a.Document().HTML(RegionDetail)), "node not found")
}

func TestApp_RestoresAndSavesPositions(t *testing.T) {
	store := graphview.NewMemoryPositionStore()
	require.NoError(t, store.Save(context.Background(), "landing", map[string]graphview.Point{
		"M-1": {X: 42, Y: 24, Pinned: true},
	}))
	src := &fakeSource{}
	a, _ := newTestApp(t, src, WithPositionStore(store, ""))
	require.NoError(t, a.Init(context.Background()))

	p, ok := a.View().Position("M-1")
	require.True(t, ok)
	assert.Equal(t, 42.0, p.X)
	assert.True(t, p.Pinned)

	require.NoError(t, a.SavePositions(context.Background()))
	saved, err := store.Load(context.Background(), "landing")
	require.NoError(t, err)
	assert.Contains(t, saved, "T-1")
}

// lockCheckingStore reports whether the App's getters stay usable while a
// layout load is in progress.
type lockCheckingStore struct {
	*graphview.MemoryPositionStore
	app        *App
	responsive bool
}

func (s *lockCheckingStore) Load(ctx context.Context, key string) (map[string]graphview.Point, error) {
	done := make(chan struct{})
	go func() {
		_ = s.app.Query()
		close(done)
	}()
	select {
	case <-done:
		s.responsive = true
	case <-time.After(time.Second):
	}
	return s.MemoryPositionStore.Load(ctx, key)
}

func TestApp_LayoutLoadDoesNotHoldLock(t *testing.T) {
	store := &lockCheckingStore{MemoryPositionStore: graphview.NewMemoryPositionStore()}
	require.NoError(t, store.Save(context.Background(), "landing", map[string]graphview.Point{
		"M-1": {X: 7, Y: 9, Pinned: true},
	}))
	a, _ := newTestApp(t, &fakeSource{}, WithPositionStore(store, ""))
	store.app = a

	require.NoError(t, a.Init(context.Background()))
	assert.True(t, store.responsive)
	p, ok := a.View().Position("M-1")
	require.True(t, ok)
	assert.Equal(t, 7.0, p.X)
}

func TestApp_CloseStopsPendingSearch(t *testing.T) {
	src := &fakeSource{}
	a, timers := newTestApp(t, src)
	require.NoError(t, a.Init(context.Background()))

	a.Search("late")
	a.Close()
	timers.fireAll()

	assert.Equal(t, []string{""}, src.calls())
}

func TestMergeNodes_KeepsGraphOrderAndSkipsDuplicates(t *testing.T) {
	data := MergeNodes(sampleGraph(),
		[]graph.Node{{ID: "M-1"}, {ID: ""}, {ID: "E-1", Type: graph.NodeEffect}},
		[]graph.Node{{ID: "E-1", Type: graph.NodeEffect}})

	assert.Equal(t, []string{"M-1", "T-1", "E-1"}, nodeIDs(data))
	assert.Equal(t, 1, data.Stats.Effects)
	assert.Len(t, data.Links, 1)
}

type recordingMetrics struct {
	mu       sync.Mutex
	failures []string
}

func (r *recordingMetrics) RecordInitFailure(page string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, page)
}
