package browser

import (
	"context"

	"github.com/turtacn/HyperBlend/internal/ui/dom"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Controller is the type-erased surface of a Page used by the HTTP layer,
// which routes the same fragment endpoints to every entity page.
type Controller interface {
	Kind() common.Kind
	Title() string
	Document() *dom.Document
	Regions() Regions
	State() PageState

	Init(ctx context.Context) error
	Search(ctx context.Context, query string) (bool, error)
	Select(ctx context.Context, id string) error
	CloseDetails()
	Edit(id string) error
	CancelEdit()
	SubmitForm(ctx context.Context, values map[string]string) error
	RequestDelete(id string) error
	ConfirmDelete(ctx context.Context, id string) error
	CancelDelete()
	Enrich(id string) (bool, error)
	RunAction(ctx context.Context, name string) error
	Dismiss(messageID string) bool
	Close()
}

var _ Controller = (*Page[entity.Molecule])(nil)
