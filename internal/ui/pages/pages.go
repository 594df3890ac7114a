// Package pages specializes the generic list/detail browser for the four
// entity kinds. Each specialization supplies rendering, form and
// data-shaping hooks; the lifecycle lives in package browser.
package pages

import (
	"context"

	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/internal/ui/dom"
	"github.com/turtacn/HyperBlend/pkg/client"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// NewDocument returns a document with the regions of kind's page mounted.
func NewDocument(kind common.Kind) *dom.Document {
	return dom.NewDocument(kind.Label()+"s", browser.RegionsFor(kind).All()...)
}

// New builds the page controller for kind.
func New(ctx context.Context, kind common.Kind, c *client.Client, doc *dom.Document, opts ...browser.Option) (browser.Controller, error) {
	switch kind {
	case common.KindMolecule:
		return browser.New(ctx, MoleculeConfig(c), doc, opts...), nil
	case common.KindTarget:
		return browser.New(ctx, TargetConfig(c), doc, opts...), nil
	case common.KindOrganism:
		return browser.New(ctx, OrganismConfig(c), doc, opts...), nil
	case common.KindEffect:
		return browser.New(ctx, EffectConfig(c), doc, opts...), nil
	}
	return nil, apperrors.New(apperrors.ErrCodeUnknownEntity, "unknown entity kind").WithDetail("kind=" + string(kind))
}

// ─────────────────────────────────────────────────────────────────────────────
// Client adapter
// ─────────────────────────────────────────────────────────────────────────────

// entityAPI adapts a typed entity client to browser.API.
type entityAPI[T entity.Entity] struct {
	c  *client.Client
	ec *client.EntityClient[T]
}

func newEntityAPI[T entity.Entity](c *client.Client, ec *client.EntityClient[T]) entityAPI[T] {
	return entityAPI[T]{c: c, ec: ec}
}

func (a entityAPI[T]) WaitForInitialization(ctx context.Context) error {
	return a.c.WaitForInitialization(ctx)
}

func (a entityAPI[T]) List(ctx context.Context, query string) ([]T, error) {
	return a.ec.List(ctx, query)
}

// Get validates graph element IDs locally before any request is made.
func (a entityAPI[T]) Get(ctx context.Context, id string) (T, error) {
	key, err := client.LookupKey(id)
	if err != nil {
		var zero T
		return zero, err
	}
	return a.ec.Get(ctx, key)
}

func (a entityAPI[T]) Save(ctx context.Context, item T) (T, error) {
	if item.GetID() == "" {
		return a.ec.Create(ctx, item)
	}
	return a.ec.Update(ctx, item.GetID(), item)
}

func (a entityAPI[T]) Delete(ctx context.Context, id string) error {
	return a.ec.Delete(ctx, id)
}

func (a entityAPI[T]) Enrich(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	return a.ec.Enrich(ctx, id, req)
}

func (a entityAPI[T]) GetJob(ctx context.Context, jobID string) (enrichment.Job, error) {
	return a.c.GetJob(ctx, jobID)
}
