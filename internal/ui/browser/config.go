// Package browser is the generic three-pane list/detail controller shared by
// every entity page: load, render list, select, render detail, mutate,
// re-sync. Entity pages configure it with a Config record instead of
// subclassing it.
package browser

import (
	"context"
	"html/template"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// API is the slice of the REST client a page needs.
type API[T entity.Entity] interface {
	WaitForInitialization(ctx context.Context) error
	List(ctx context.Context, query string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Save(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id string) error
	Enrich(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error)
	GetJob(ctx context.Context, jobID string) (enrichment.Job, error)
}

// FieldKind selects the form control.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
)

// Field is one create/update form field.
type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Placeholder string
	Options     []string
	// Identifying fields count toward the "at least one" submit rule.
	Identifying bool
}

// Action is an entity-specific batch action such as ID migration. Run
// returns the text of the success message.
type Action struct {
	Name  string
	Label string
	Run   func(ctx context.Context) (string, error)
	// Reload asks the page to reload the list after a successful run.
	Reload bool
}

// Config is the capability record an entity page supplies. Render hooks
// receive copies and must not mutate page state.
type Config[T entity.Entity] struct {
	Kind  common.Kind
	Title string

	API API[T]

	RenderCard   func(item T) template.HTML
	RenderDetail func(item T) template.HTML

	Form []Field
	// BuildItem turns submitted form values into an entity. When the form
	// edits an existing item, base is that item and ok is true; non-empty
	// values override its fields.
	BuildItem func(values map[string]string, base T, ok bool) (T, error)
	// FormValues pre-fills the form when editing item.
	FormValues func(item T) map[string]string

	Identifiers     func(item T) []common.Identifier
	ApplyEnrichment func(item T, res enrichment.Result) T

	// SearchText lists the strings the instant filter matches against.
	// Defaults to name, ID and description.
	SearchText func(item T) []string

	Actions []Action
}

func (c *Config[T]) searchText(item T) []string {
	if c.SearchText != nil {
		return c.SearchText(item)
	}
	return []string{item.GetName(), item.GetID(), item.GetDescription()}
}

func (c *Config[T]) matches(item T, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	for _, s := range c.searchText(item) {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func (c *Config[T]) identifying(values map[string]string) bool {
	for _, f := range c.Form {
		if f.Identifying && strings.TrimSpace(values[f.Name]) != "" {
			return true
		}
	}
	return false
}

func (c *Config[T]) action(name string) (Action, bool) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}
