package browser

import (
	"time"

	"github.com/google/uuid"
)

// Scope is the smallest UI region a message belongs to.
type Scope string

const (
	ScopeBanner Scope = "banner"
	ScopeForm   Scope = "form"
	ScopeList   Scope = "list"
	ScopeDetail Scope = "detail"
	ScopeEnrich Scope = "enrich"
)

// Severity classifies a message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// RetryAction is the affordance attached to a retryable failure.
type RetryAction struct {
	Label  string
	Method string
	Path   string
}

// Message is a scoped, optionally expiring notice.
type Message struct {
	ID       string
	Scope    Scope
	Target   string
	Severity Severity
	Text     string
	Retry    *RetryAction
	// ExpiresAt is zero for sticky messages.
	ExpiresAt time.Time
}

func (m Message) expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

type messageBoard struct {
	items []Message
}

func (b *messageBoard) add(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	// one message per scope and target
	out := b.items[:0]
	for _, cur := range b.items {
		if cur.Scope != m.Scope || cur.Target != m.Target {
			out = append(out, cur)
		}
	}
	b.items = append(out, m)
	return m
}

func (b *messageBoard) clear(scope Scope, target string) {
	out := b.items[:0]
	for _, cur := range b.items {
		if cur.Scope != scope || cur.Target != target {
			out = append(out, cur)
		}
	}
	b.items = out
}

func (b *messageBoard) remove(id string) bool {
	for i, cur := range b.items {
		if cur.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

func (b *messageBoard) active(now time.Time, scope Scope, target string) []Message {
	var out []Message
	for _, m := range b.items {
		if m.Scope == scope && m.Target == target && !m.expired(now) {
			out = append(out, m)
		}
	}
	return out
}

func (b *messageBoard) prune(now time.Time) {
	out := b.items[:0]
	for _, m := range b.items {
		if !m.expired(now) {
			out = append(out, m)
		}
	}
	b.items = out
}
