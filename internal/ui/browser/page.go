package browser

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/ui/dom"
	"github.com/turtacn/HyperBlend/pkg/client"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// PageState is the page lifecycle.
type PageState int

const (
	PageUninitialized PageState = iota
	PageInitializing
	PageReady
	PageFailed
)

func (s PageState) String() string {
	switch s {
	case PageInitializing:
		return "initializing"
	case PageReady:
		return "ready"
	case PageFailed:
		return "failed"
	}
	return "uninitialized"
}

// Metrics receives page-level observations.
type Metrics interface {
	RecordInitFailure(page string)
	RecordEnrichmentJob(entity, status string)
}

type noopMetrics struct{}

func (noopMetrics) RecordInitFailure(string)           {}
func (noopMetrics) RecordEnrichmentJob(string, string) {}

// Regions names the four mount points of a page.
type Regions struct {
	Banner string
	Form   string
	List   string
	Detail string
}

// RegionsFor returns the region IDs used for kind.
func RegionsFor(kind common.Kind) Regions {
	p := kind.Plural()
	return Regions{Banner: p + "-banner", Form: p + "-form", List: p + "-list", Detail: p + "-detail"}
}

// All lists the region IDs.
func (r Regions) All() []string { return []string{r.Banner, r.Form, r.List, r.Detail} }

// EnrichStatus is the per-item enrichment state shown next to the trigger.
type EnrichStatus struct {
	InFlight bool
	State    PollState
	JobID    string
	Sources  []common.Source
	Error    string
}

type loadRequest struct {
	query    string
	explicit bool
}

type settings struct {
	initInterval    time.Duration
	initMaxAttempts int
	pollInterval    time.Duration
	pollMaxAttempts int
	messageTTL      time.Duration
	basePath        string
	logger          logging.Logger
	metrics         Metrics
	now             func() time.Time
	schedule        func(d time.Duration, f func()) func() bool
}

// Option configures a Page.
type Option func(*settings)

// WithInitRetry bounds the initialization retry loop.
func WithInitRetry(interval time.Duration, maxAttempts int) Option {
	return func(s *settings) {
		if interval > 0 {
			s.initInterval = interval
		}
		if maxAttempts > 0 {
			s.initMaxAttempts = maxAttempts
		}
	}
}

// WithPolling bounds enrichment job polling.
func WithPolling(interval time.Duration, maxAttempts int) Option {
	return func(s *settings) {
		if interval > 0 {
			s.pollInterval = interval
		}
		if maxAttempts > 0 {
			s.pollMaxAttempts = maxAttempts
		}
	}
}

// WithMessageTTL sets how long auto-dismissing messages stay visible.
func WithMessageTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.messageTTL = d
		}
	}
}

// WithBasePath sets the URL prefix of the page's fragment endpoints.
func WithBasePath(path string) Option {
	return func(s *settings) { s.basePath = strings.TrimSuffix(path, "/") }
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

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScheduler replaces time.AfterFunc for message expiry.
func WithScheduler(f func(d time.Duration, fn func()) func() bool) Option {
	return func(s *settings) {
		if f != nil {
			s.schedule = f
		}
	}
}

// Page is the generic list/detail controller for one entity kind. The item
// list and the selected ID are owned by the page and change only through its
// methods.
type Page[T entity.Entity] struct {
	cfg     Config[T]
	doc     *dom.Document
	regions Regions
	s       settings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         PageState
	items         []T
	loaded        bool
	loading       bool
	pendingLoad   *loadRequest
	query         string
	filter        string
	currentID     string
	detail        *T
	detailLoading bool
	detailSeq     uint64
	formValues    map[string]string
	editing       string
	pendingDelete string
	enrich        map[string]*EnrichStatus
	messages      messageBoard
}

// New creates a page bound to doc. Its lifetime is bounded by parent; Close
// ends it early.
func New[T entity.Entity](parent context.Context, cfg Config[T], doc *dom.Document, opts ...Option) *Page[T] {
	s := settings{
		initInterval:    500 * time.Millisecond,
		initMaxAttempts: 10,
		pollInterval:    time.Second,
		pollMaxAttempts: 30,
		messageTTL:      5 * time.Second,
		basePath:        "/ui/" + cfg.Kind.Plural(),
		logger:          logging.NewNopLogger(),
		metrics:         noopMetrics{},
		now:             time.Now,
		schedule: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = s.logger.With(logging.Entity(string(cfg.Kind)))

	ctx, cancel := context.WithCancel(parent)
	return &Page[T]{
		cfg:     cfg,
		doc:     doc,
		regions: RegionsFor(cfg.Kind),
		s:       s,
		ctx:     ctx,
		cancel:  cancel,
		items:   []T{},
		enrich:  map[string]*EnrichStatus{},
	}
}

// Kind returns the entity kind.
func (p *Page[T]) Kind() common.Kind { return p.cfg.Kind }

// Title returns the page title.
func (p *Page[T]) Title() string { return p.cfg.Title }

// Document returns the document the page renders into.
func (p *Page[T]) Document() *dom.Document { return p.doc }

// Regions returns the page's mount points.
func (p *Page[T]) Regions() Regions { return p.regions }

// Close cancels background work (polling, refreshes) and waits for it.
func (p *Page[T]) Close() {
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until background work started so far has finished.
func (p *Page[T]) Wait() { p.wg.Wait() }

// ─────────────────────────────────────────────────────────────────────────────
// Initialization
// ─────────────────────────────────────────────────────────────────────────────

// Init waits for the mount points and the API client, retrying on a fixed
// interval up to the attempt budget, then performs the first load. When the
// budget is exhausted the page reports a page-wide failure.
func (p *Page[T]) Init(ctx context.Context) error {
	p.mu.Lock()
	if p.state == PageReady {
		p.mu.Unlock()
		return nil
	}
	p.state = PageInitializing
	p.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= p.s.initMaxAttempts; attempt++ {
		if lastErr = p.tryInit(ctx); lastErr == nil {
			break
		}
		p.s.logger.Debug("page not ready, retrying",
			logging.Int("attempt", attempt), logging.Err(lastErr))
		if attempt == p.s.initMaxAttempts {
			break
		}
		if err := sleep(ctx, p.s.initInterval); err != nil {
			lastErr = err
			break
		}
	}

	if lastErr != nil {
		p.mu.Lock()
		p.state = PageFailed
		p.messages.add(Message{
			Scope:    ScopeBanner,
			Severity: SeverityError,
			Text:     "Unable to initialize the " + p.cfg.Title + " page. Reload to try again.",
		})
		if p.doc.Has(p.regions.Banner) {
			p.renderBannerLocked()
		}
		p.mu.Unlock()
		p.s.metrics.RecordInitFailure(string(p.cfg.Kind))
		p.s.logger.Error("page initialization failed", logging.Err(lastErr))
		return apperrors.Wrap(lastErr, apperrors.ErrCodeInitExhausted, "page initialization failed")
	}

	p.mu.Lock()
	p.state = PageReady
	p.renderAllLocked()
	p.mu.Unlock()

	_, err := p.LoadItems(ctx, "", false)
	return err
}

func (p *Page[T]) tryInit(ctx context.Context) error {
	if missing := p.doc.Missing(p.regions.All()...); len(missing) > 0 {
		return apperrors.New(apperrors.ErrCodeMountPointMissing, "mount point missing").
			WithDetail("regions=" + strings.Join(missing, ","))
	}
	return p.cfg.API.WaitForInitialization(ctx)
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

// State returns the lifecycle state.
func (p *Page[T]) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ─────────────────────────────────────────────────────────────────────────────
// Loading and searching
// ─────────────────────────────────────────────────────────────────────────────

// LoadItems fetches the item set, filtered server-side by query. Loads are
// serialized: a call arriving while one is in flight returns false at once;
// if it asked for a different query, that query runs once the current load
// finishes. Explicit loads set the current query; a response for a query
// that is no longer current is discarded.
//
// An explicit load with a non-empty query, or the first successful load,
// always replaces the list. A background load that comes back empty never
// replaces a non-empty list.
func (p *Page[T]) LoadItems(ctx context.Context, query string, explicit bool) (bool, error) {
	query = strings.TrimSpace(query)
	p.mu.Lock()
	if p.loading {
		if explicit || query != p.query {
			p.pendingLoad = &loadRequest{query: query, explicit: explicit}
			if explicit {
				p.query = query
			}
		}
		p.mu.Unlock()
		return false, nil
	}
	p.loading = true
	if explicit {
		p.query = query
	}
	p.mu.Unlock()

	var err error
	for {
		items, listErr := p.cfg.API.List(ctx, query)

		p.mu.Lock()
		err = p.applyLoadLocked(query, explicit, items, listErr)
		next := p.pendingLoad
		p.pendingLoad = nil
		if next == nil || ctx.Err() != nil {
			p.loading = false
			p.mu.Unlock()
			return true, err
		}
		query, explicit = next.query, next.explicit
		p.mu.Unlock()
	}
}

func (p *Page[T]) applyLoadLocked(query string, explicit bool, items []T, err error) error {
	if err != nil {
		if !apperrors.IsCode(err, apperrors.ErrCodeUnexpectedShape) {
			p.s.logger.Warn("list load failed", logging.String("query", query), logging.Err(err))
			p.messages.add(Message{
				Scope:    ScopeList,
				Severity: SeverityError,
				Text:     "Failed to load " + p.cfg.Kind.Plural() + ": " + ErrorText(err),
				Retry: &RetryAction{
					Label:  "Retry",
					Method: "GET",
					Path:   p.s.basePath + "/items?q=" + url.QueryEscape(query),
				},
			})
			p.renderListLocked()
			return err
		}
		p.s.logger.Warn("unexpected list response shape, treating as empty", logging.Err(err))
		items = nil
	}
	if query != p.query {
		p.s.logger.Debug("discarding list response for superseded query",
			logging.String("query", query), logging.String("current", p.query))
		return nil
	}
	if items == nil {
		items = []T{}
	}

	replace := (explicit && query != "") || !p.loaded || len(items) > 0 || len(p.items) == 0
	if !replace {
		p.s.logger.Debug("ignoring empty background refresh", logging.Int("kept", len(p.items)))
		return nil
	}
	p.items = items
	p.loaded = true
	p.filter = ""
	p.messages.clear(ScopeList, "")
	p.renderListLocked()
	p.renderFormLocked()
	return nil
}

// SearchItems applies the instant, case-insensitive client-side filter over
// the loaded items and returns the visible subset. The next server response
// for the current query supersedes it.
func (p *Page[T]) SearchItems(query string) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = strings.TrimSpace(query)
	p.renderListLocked()
	return p.visibleLocked()
}

// Search runs the instant filter and then the authoritative server query.
func (p *Page[T]) Search(ctx context.Context, query string) (bool, error) {
	p.SearchItems(query)
	return p.LoadItems(ctx, query, true)
}

func (p *Page[T]) visibleLocked() []T {
	out := make([]T, 0, len(p.items))
	for _, it := range p.items {
		if p.cfg.matches(it, p.filter) {
			out = append(out, it)
		}
	}
	return out
}

func (p *Page[T]) refreshLater() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.mu.Lock()
		q := p.query
		p.mu.Unlock()
		if _, err := p.LoadItems(p.ctx, q, false); err != nil && p.ctx.Err() == nil {
			p.s.logger.Debug("background refresh failed", logging.Err(err))
		}
	}()
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

func (p *Page[T]) findLocked(id string) (T, bool) {
	for _, it := range p.items {
		if it.GetID() == id {
			return it, true
		}
	}
	for _, it := range p.items {
		if it.GetOriginalID() != "" && it.GetOriginalID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func sameItem[T entity.Entity](a, b T) bool {
	if a.GetID() != "" && a.GetID() == b.GetID() {
		return true
	}
	if a.GetOriginalID() != "" && (a.GetOriginalID() == b.GetID() || a.GetOriginalID() == b.GetOriginalID()) {
		return true
	}
	return b.GetOriginalID() != "" && b.GetOriginalID() == a.GetID()
}

// mergeLocked replaces the in-memory copy of item, matching on ID or the
// preserved original ID. Extra matches are dropped so an ID never appears
// twice. When no copy exists, item is appended only if add is set.
func (p *Page[T]) mergeLocked(item T, add bool) {
	out := p.items[:0]
	placed := false
	for _, it := range p.items {
		if !sameItem(item, it) {
			out = append(out, it)
			continue
		}
		if !placed {
			out = append(out, item)
			placed = true
		}
	}
	p.items = out
	if !placed && add {
		p.items = append(p.items, item)
	}
}

// FetchItemDetails selects id and shows its details. The in-memory copy is
// shown at once when there is one; unless skipAPICall is set, the
// authoritative copy is then fetched. Only the latest selection is applied.
// When the fetch fails the cached copy stays on screen; with no cached copy a
// detail-scoped error with a retry action is shown.
func (p *Page[T]) FetchItemDetails(ctx context.Context, id string, skipAPICall bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}

	p.mu.Lock()
	p.currentID = id
	p.detailSeq++
	seq := p.detailSeq
	p.pendingDelete = ""
	p.messages.clear(ScopeDetail, "")
	local, hasLocal := p.findLocked(id)
	if hasLocal {
		cp := local
		p.detail = &cp
	} else {
		p.detail = nil
	}
	p.detailLoading = !(skipAPICall && hasLocal)
	p.renderListLocked()
	p.renderDetailLocked()
	if !p.detailLoading {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	item, err := p.cfg.API.Get(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.detailSeq {
		p.s.logger.Debug("discarding detail for abandoned selection", logging.EntityID(id))
		return nil
	}
	p.detailLoading = false
	if err != nil {
		if hasLocal {
			p.s.logger.Warn("detail fetch failed, showing cached copy", logging.EntityID(id), logging.Err(err))
			p.renderDetailLocked()
			return nil
		}
		p.s.logger.Warn("detail fetch failed", logging.EntityID(id), logging.Err(err))
		p.messages.add(Message{
			Scope:    ScopeDetail,
			Severity: SeverityError,
			Text:     "Could not load " + string(p.cfg.Kind) + " " + id + ": " + ErrorText(err),
			Retry: &RetryAction{
				Label:  "Retry",
				Method: "POST",
				Path:   p.s.basePath + "/select/" + url.PathEscape(id),
			},
		})
		p.renderDetailLocked()
		return err
	}

	cp := item
	p.detail = &cp
	if item.GetID() != "" {
		p.currentID = item.GetID()
	}
	p.mergeLocked(item, false)
	p.renderListLocked()
	p.renderDetailLocked()
	return nil
}

// Select is FetchItemDetails with a network fetch.
func (p *Page[T]) Select(ctx context.Context, id string) error {
	return p.FetchItemDetails(ctx, id, false)
}

// CloseDetails clears the selection and restores the empty detail pane. Any
// detail fetch still in flight is abandoned.
func (p *Page[T]) CloseDetails() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentID = ""
	p.detail = nil
	p.detailLoading = false
	p.detailSeq++
	p.pendingDelete = ""
	p.messages.clear(ScopeDetail, "")
	p.renderListLocked()
	p.renderDetailLocked()
}

// ─────────────────────────────────────────────────────────────────────────────
// Create / update
// ─────────────────────────────────────────────────────────────────────────────

// Edit loads item id into the form for an update.
func (p *Page[T]) Edit(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.findLocked(id)
	if !ok && p.detail != nil && (*p.detail).GetID() == id {
		item, ok = *p.detail, true
	}
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, string(p.cfg.Kind)+" not found").WithDetail("id=" + id)
	}
	p.editing = item.GetID()
	if p.cfg.FormValues != nil {
		p.formValues = p.cfg.FormValues(item)
	}
	p.renderFormLocked()
	return nil
}

// CancelEdit resets the form to create mode.
func (p *Page[T]) CancelEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editing = ""
	p.formValues = nil
	p.renderFormLocked()
}

// Submit validates and saves form values. At least one identifying field
// must be filled; otherwise nothing is sent. On success the saved object is
// merged into the list by ID or original ID. On failure the form keeps its
// values and shows an auto-dismissing error.
func (p *Page[T]) Submit(ctx context.Context, values map[string]string) (T, error) {
	var zero T
	clean := make(map[string]string, len(values))
	for k, v := range values {
		clean[k] = strings.TrimSpace(v)
	}

	p.mu.Lock()
	if !p.cfg.identifying(clean) {
		p.formValues = clean
		p.addTimedLocked(Message{
			Scope:    ScopeForm,
			Severity: SeverityError,
			Text:     "Fill in at least one identifying field (" + p.identifyingLabels() + ").",
		})
		p.renderFormLocked()
		p.mu.Unlock()
		return zero, apperrors.Validation("at least one identifying field is required")
	}
	id := clean["id"]
	if id == "" {
		id = p.editing
	}
	var base T
	var hasBase bool
	if id != "" {
		base, hasBase = p.findLocked(id)
		if !hasBase && p.detail != nil && (*p.detail).GetID() == id {
			base, hasBase = *p.detail, true
		}
	}
	p.mu.Unlock()

	item, err := p.cfg.BuildItem(clean, base, hasBase)
	if err == nil {
		item, err = p.cfg.API.Save(ctx, item)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.formValues = clean
		p.addTimedLocked(Message{
			Scope:    ScopeForm,
			Severity: SeverityError,
			Text:     "Save failed: " + ErrorText(err),
		})
		p.renderFormLocked()
		p.s.logger.Warn("save failed", logging.Err(err))
		return zero, err
	}

	p.mergeLocked(item, true)
	p.loaded = true
	p.formValues = nil
	p.editing = ""
	if p.detail != nil && sameItem(item, *p.detail) {
		cp := item
		p.detail = &cp
		p.currentID = item.GetID()
	}
	p.addTimedLocked(Message{
		Scope:    ScopeForm,
		Severity: SeveritySuccess,
		Text:     "Saved " + displayName(item) + ".",
	})
	p.renderFormLocked()
	p.renderListLocked()
	p.renderDetailLocked()
	p.refreshLater()
	return item, nil
}

// SubmitForm is Submit without the saved value.
func (p *Page[T]) SubmitForm(ctx context.Context, values map[string]string) error {
	_, err := p.Submit(ctx, values)
	return err
}

func (p *Page[T]) identifyingLabels() string {
	var labels []string
	for _, f := range p.cfg.Form {
		if f.Identifying {
			labels = append(labels, f.Label)
		}
	}
	return strings.Join(labels, ", ")
}

func displayName[T entity.Entity](item T) string {
	if item.GetName() != "" {
		return item.GetName()
	}
	return item.GetID()
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

// RequestDelete shows the confirmation affordance for id. Nothing is sent.
func (p *Page[T]) RequestDelete(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.findLocked(id); !ok && (p.detail == nil || (*p.detail).GetID() != id) {
		return apperrors.New(apperrors.ErrCodeNotFound, string(p.cfg.Kind)+" not found").WithDetail("id=" + id)
	}
	p.pendingDelete = id
	p.renderDetailLocked()
	return nil
}

// CancelDelete withdraws a pending confirmation.
func (p *Page[T]) CancelDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingDelete = ""
	p.renderDetailLocked()
}

// ConfirmDelete deletes id after RequestDelete. It is never retried.
func (p *Page[T]) ConfirmDelete(ctx context.Context, id string) error {
	p.mu.Lock()
	if p.pendingDelete == "" || p.pendingDelete != id {
		p.mu.Unlock()
		return apperrors.Validation("delete was not confirmed").WithDetail("id=" + id)
	}
	p.pendingDelete = ""
	p.mu.Unlock()

	err := p.cfg.API.Delete(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.s.logger.Warn("delete failed", logging.EntityID(id), logging.Err(err))
		p.addTimedLocked(Message{
			Scope:    ScopeDetail,
			Severity: SeverityError,
			Text:     "Delete failed: " + ErrorText(err),
		})
		p.renderDetailLocked()
		return err
	}

	out := p.items[:0]
	var name string
	for _, it := range p.items {
		if it.GetID() == id || (it.GetOriginalID() != "" && it.GetOriginalID() == id) {
			name = displayName(it)
			continue
		}
		out = append(out, it)
	}
	p.items = out
	if name == "" {
		name = id
	}
	if p.currentID == id {
		p.currentID = ""
		p.detail = nil
		p.detailSeq++
	}
	delete(p.enrich, id)
	p.addTimedLocked(Message{Scope: ScopeList, Severity: SeveritySuccess, Text: "Deleted " + name + "."})
	p.renderListLocked()
	p.renderDetailLocked()
	p.refreshLater()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrichment
// ─────────────────────────────────────────────────────────────────────────────

// Enrich starts enrichment of item id in the background and reports whether
// it started. While a request for id is in flight further calls for id are
// no-ops; other items are unaffected. Polling stops when the page closes.
func (p *Page[T]) Enrich(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st := p.enrich[id]; st != nil && st.InFlight {
		return false, nil
	}
	item, ok := p.findLocked(id)
	if !ok && p.detail != nil && (*p.detail).GetID() == id {
		item, ok = *p.detail, true
	}
	if !ok {
		return false, apperrors.New(apperrors.ErrCodeNotFound, string(p.cfg.Kind)+" not found").WithDetail("id=" + id)
	}
	var idents []common.Identifier
	if p.cfg.Identifiers != nil {
		idents = p.cfg.Identifiers(item)
	}
	if len(idents) == 0 {
		p.addTimedLocked(Message{
			Scope:    ScopeEnrich,
			Target:   id,
			Severity: SeverityError,
			Text:     "Add an identifier before enriching this " + string(p.cfg.Kind) + ".",
		})
		p.renderDetailLocked()
		return false, apperrors.Validation("no identifiers to enrich with")
	}

	p.enrich[id] = &EnrichStatus{InFlight: true, State: PollPending}
	p.messages.clear(ScopeEnrich, id)
	p.renderDetailLocked()

	req := enrichment.Request{Identifiers: idents, OriginalID: item.GetOriginalID()}
	p.wg.Add(1)
	go p.runEnrichment(id, req)
	return true, nil
}

func (p *Page[T]) runEnrichment(id string, req enrichment.Request) {
	defer p.wg.Done()
	log := p.s.logger.With(logging.EntityID(id))

	outcome, err := p.cfg.API.Enrich(p.ctx, id, req)
	if err != nil {
		if p.ctx.Err() != nil {
			p.abandonEnrichment(id)
			return
		}
		p.finishEnrichment(id, PollFailed, nil, err)
		return
	}
	if !outcome.IsJob() {
		p.finishEnrichment(id, PollCompleted, outcome.Result, nil)
		return
	}

	p.mu.Lock()
	if st := p.enrich[id]; st != nil {
		st.JobID = outcome.JobID
	}
	p.mu.Unlock()
	log.Debug("polling enrichment job", logging.JobID(outcome.JobID))

	poller := JobPoller{
		Fetch:       p.cfg.API.GetJob,
		Interval:    p.s.pollInterval,
		MaxAttempts: p.s.pollMaxAttempts,
		IsNotFound:  client.IsNotFound,
	}
	res, err := poller.Run(p.ctx, outcome.JobID)
	if err != nil {
		log.Debug("enrichment polling cancelled", logging.JobID(outcome.JobID))
		p.abandonEnrichment(id)
		return
	}

	switch res.State {
	case PollCompleted:
		if res.Job.Result == nil || !res.Job.Result.Success {
			p.finishEnrichment(id, PollFailed, nil, apperrors.New(apperrors.ErrCodeEnrichmentNoData, "no enrichment data found"))
			return
		}
		p.finishEnrichment(id, PollCompleted, res.Job.Result, nil)
	case PollFailed:
		msg := res.Job.Error
		if msg == "" && res.LastErr != nil {
			msg = ErrorText(res.LastErr)
		}
		if msg == "" {
			msg = "enrichment failed"
		}
		p.finishEnrichment(id, PollFailed, nil, apperrors.New(apperrors.ErrCodeJobFailed, msg))
	default:
		p.finishEnrichment(id, PollTimedOut, nil, TimeoutError(outcome.JobID))
	}
}

func (p *Page[T]) abandonEnrichment(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st := p.enrich[id]; st != nil {
		st.InFlight = false
	}
}

func (p *Page[T]) finishEnrichment(id string, state PollState, result *enrichment.Result, err error) {
	p.s.metrics.RecordEnrichmentJob(string(p.cfg.Kind), string(state))

	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.enrich[id]
	if st == nil {
		st = &EnrichStatus{}
		p.enrich[id] = st
	}
	st.InFlight = false
	st.State = state

	if state == PollCompleted && result != nil {
		st.Sources = append([]common.Source(nil), result.Sources...)
		st.Error = ""
		if p.cfg.ApplyEnrichment != nil {
			if item, ok := p.findLocked(id); ok {
				p.mergeLocked(p.cfg.ApplyEnrichment(item, *result), false)
			}
			if p.detail != nil && (*p.detail).GetID() == id {
				enriched := p.cfg.ApplyEnrichment(*p.detail, *result)
				p.detail = &enriched
			}
		}
		p.addTimedLocked(Message{
			Scope:    ScopeEnrich,
			Target:   id,
			Severity: SeveritySuccess,
			Text:     "Enrichment complete.",
		})
	} else {
		text := ErrorText(err)
		if state == PollTimedOut {
			text = "Enrichment timed out, try again."
		}
		st.Error = text
		p.s.logger.Warn("enrichment did not complete",
			logging.EntityID(id), logging.String("state", string(state)), logging.Err(err))
		p.messages.add(Message{
			Scope:    ScopeEnrich,
			Target:   id,
			Severity: SeverityError,
			Text:     text,
			Retry: &RetryAction{
				Label:  "Retry",
				Method: "POST",
				Path:   p.s.basePath + "/enrich/" + url.PathEscape(id),
			},
		})
	}
	p.renderListLocked()
	p.renderDetailLocked()
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions and messages
// ─────────────────────────────────────────────────────────────────────────────

// RunAction runs the named entity-specific action and reports its outcome in
// the banner.
func (p *Page[T]) RunAction(ctx context.Context, name string) error {
	a, ok := p.cfg.action(name)
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, "unknown action").WithDetail("action=" + name)
	}
	text, err := a.Run(ctx)

	p.mu.Lock()
	if err != nil {
		p.addTimedLocked(Message{Scope: ScopeBanner, Severity: SeverityError, Text: a.Label + " failed: " + ErrorText(err)})
	} else {
		p.addTimedLocked(Message{Scope: ScopeBanner, Severity: SeveritySuccess, Text: text})
	}
	p.renderBannerLocked()
	query := p.query
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if a.Reload {
		_, err = p.LoadItems(ctx, query, true)
	}
	return err
}

// Dismiss removes a message by ID.
func (p *Page[T]) Dismiss(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.messages.remove(id) {
		return false
	}
	p.renderAllLocked()
	return true
}

func (p *Page[T]) addTimedLocked(m Message) {
	m.ExpiresAt = p.s.now().Add(p.s.messageTTL)
	m = p.messages.add(m)
	p.s.schedule(p.s.messageTTL, func() {
		if p.ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.messages.remove(m.ID) {
			p.renderAllLocked()
		}
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Read-only accessors
// ─────────────────────────────────────────────────────────────────────────────

// Items returns a copy of the loaded items.
func (p *Page[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.items...)
}

// Visible returns the items passing the instant filter.
func (p *Page[T]) Visible() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visibleLocked()
}

// Loaded reports whether a load has succeeded.
func (p *Page[T]) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Query returns the current server query.
func (p *Page[T]) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// CurrentID returns the selected ID, or "".
func (p *Page[T]) CurrentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentID
}

// Detail returns the displayed detail item.
func (p *Page[T]) Detail() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detail == nil {
		var zero T
		return zero, false
	}
	return *p.detail, true
}

// PendingDelete returns the ID awaiting delete confirmation.
func (p *Page[T]) PendingDelete() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingDelete
}

// FormValues returns the values currently shown in the form.
func (p *Page[T]) FormValues() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.formValues))
	for k, v := range p.formValues {
		out[k] = v
	}
	return out
}

// EnrichStatus returns the enrichment state of id.
func (p *Page[T]) EnrichStatus(id string) (EnrichStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.enrich[id]
	if !ok {
		return EnrichStatus{}, false
	}
	cp := *st
	cp.Sources = append([]common.Source(nil), st.Sources...)
	return cp, true
}

// Messages returns the active messages for scope and target.
func (p *Page[T]) Messages(scope Scope, target string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages.active(p.s.now(), scope, target)
}
