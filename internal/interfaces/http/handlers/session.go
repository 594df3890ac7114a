package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/ui/app"
	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/internal/ui/graphview"
	"github.com/turtacn/HyperBlend/internal/ui/pages"
	"github.com/turtacn/HyperBlend/pkg/client"
	"github.com/turtacn/HyperBlend/pkg/types/common"
)

// SessionCookie names the cookie carrying the UI session ID.
const SessionCookie = "hb_session"

// DefaultSessionTTL is how long an idle session keeps its controllers.
const DefaultSessionTTL = 30 * time.Minute

// UIFactory builds the controllers of one browser session. Every controller
// talks to the REST API through Client.
type UIFactory struct {
	Client      *client.Client
	AppOptions  []app.Option
	PageOptions []browser.Option
	// Positions persists the landing page layout per session. Optional.
	Positions graphview.PositionStore
}

// SessionCounter publishes the live session count.
type SessionCounter interface {
	SetActiveSessions(n int)
}

// uiSession owns the controllers of one browser session.
type uiSession struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	landing  *app.App
	pages    map[common.Kind]browser.Controller
	lastSeen time.Time
}

func (s *uiSession) landingApp(f UIFactory) *app.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.landing == nil {
		opts := append([]app.Option{}, f.AppOptions...)
		if f.Positions != nil {
			opts = append(opts, app.WithPositionStore(f.Positions, "landing:"+s.id))
		}
		s.landing = app.New(s.ctx, app.NewClientSource(f.Client), app.NewDocument(), opts...)
	}
	return s.landing
}

func (s *uiSession) page(f UIFactory, kind common.Kind) (browser.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pages[kind]; ok {
		return p, nil
	}
	p, err := pages.New(s.ctx, kind, f.Client, pages.NewDocument(kind), f.PageOptions...)
	if err != nil {
		return nil, err
	}
	s.pages[kind] = p
	return p, nil
}

func (s *uiSession) close() {
	s.mu.Lock()
	landing, controllers := s.landing, s.pages
	s.landing, s.pages = nil, map[common.Kind]browser.Controller{}
	s.mu.Unlock()

	s.cancel()
	if landing != nil {
		landing.Close()
	}
	for _, p := range controllers {
		p.Close()
	}
}

// SessionStore maps session IDs to their controllers and expires idle
// sessions lazily on access.
type SessionStore struct {
	parent  context.Context
	factory UIFactory
	ttl     time.Duration
	counter SessionCounter
	logger  logging.Logger
	now     func() time.Time

	mu        sync.Mutex
	sessions  map[string]*uiSession
	lastSweep time.Time
}

// NewSessionStore creates a store. Controllers are cancelled when parent is
// done or their session expires.
func NewSessionStore(parent context.Context, factory UIFactory, ttl time.Duration, counter SessionCounter, logger logging.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SessionStore{
		parent:   parent,
		factory:  factory,
		ttl:      ttl,
		counter:  counter,
		logger:   logger.Named("sessions"),
		now:      time.Now,
		sessions: make(map[string]*uiSession),
	}
}

// Acquire returns the live session for id, creating a fresh one (with a new
// ID) when id is unknown or expired.
func (s *SessionStore) Acquire(id string) (*uiSession, bool) {
	now := s.now()
	expired := s.sweep(now)
	defer func() { closeAll(expired) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.mu.Lock()
		live := now.Sub(sess.lastSeen) < s.ttl
		if live {
			sess.lastSeen = now
		}
		sess.mu.Unlock()
		if live {
			return sess, false
		}
		delete(s.sessions, id)
		expired = append(expired, sess)
	}

	ctx, cancel := context.WithCancel(s.parent)
	sess := &uiSession{
		id:       uuid.NewString(),
		ctx:      ctx,
		cancel:   cancel,
		pages:    map[common.Kind]browser.Controller{},
		lastSeen: now,
	}
	s.sessions[sess.id] = sess
	s.publishLocked()
	s.logger.Debug("session started", logging.String("session", sess.id))
	return sess, true
}

// sweep removes idle sessions at most once per TTL and returns them for the
// caller to close outside the lock.
func (s *SessionStore) sweep(now time.Time) []*uiSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) < s.ttl/2 {
		return nil
	}
	s.lastSweep = now

	var expired []*uiSession
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle >= s.ttl {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	if len(expired) > 0 {
		s.publishLocked()
		s.logger.Debug("sessions expired", logging.Int("count", len(expired)))
	}
	return expired
}

func (s *SessionStore) publishLocked() {
	if s.counter != nil {
		s.counter.SetActiveSessions(len(s.sessions))
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close ends every session.
func (s *SessionStore) Close() {
	s.mu.Lock()
	all := make([]*uiSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*uiSession)
	s.publishLocked()
	s.mu.Unlock()
	closeAll(all)
}

func closeAll(sessions []*uiSession) {
	for _, sess := range sessions {
		sess.close()
	}
}
