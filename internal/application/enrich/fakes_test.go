package enrich

import (
	"context"
	"sync"

	"github.com/turtacn/HyperBlend/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HyperBlend/internal/infrastructure/providers"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// fakeCatalog is an in-memory catalog.Service keyed by ID.
type fakeCatalog[T entity.Entity] struct {
	mu      sync.Mutex
	items   map[string]T
	updates []T
}

func newFakeCatalog[T entity.Entity](items ...T) *fakeCatalog[T] {
	f := &fakeCatalog[T]{items: map[string]T{}}
	for _, it := range items {
		f.items[it.GetID()] = it
	}
	return f
}

func (f *fakeCatalog[T]) Kind() common.Kind {
	var zero T
	return zero.Kind()
}

func (f *fakeCatalog[T]) List(context.Context, string) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeCatalog[T]) Get(_ context.Context, id string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	for _, it := range f.items {
		if it.GetOriginalID() == id {
			return it, nil
		}
	}
	var zero T
	return zero, errors.Newf(errors.ErrCodeNotFound, "%s %s not found", f.Kind(), id)
}

func (f *fakeCatalog[T]) Create(_ context.Context, item T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.GetID()] = item
	return item, nil
}

func (f *fakeCatalog[T]) Update(_ context.Context, id string, item T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = item
	f.updates = append(f.updates, item)
	return item, nil
}

func (f *fakeCatalog[T]) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeCatalog[T]) FindByIdentifier(context.Context, string, string) (T, error) {
	var zero T
	return zero, errors.New(errors.ErrCodeNotFound, "not found")
}

func (f *fakeCatalog[T]) lastUpdate() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	if len(f.updates) == 0 {
		return zero, false
	}
	return f.updates[len(f.updates)-1], true
}

// stubEnricher returns a fixed result and records subjects.
type stubEnricher struct {
	mu       sync.Mutex
	result   *enrichment.Result
	err      error
	subjects []providers.Subject
	block    chan struct{}
}

func (e *stubEnricher) Enrich(ctx context.Context, s providers.Subject) (*enrichment.Result, error) {
	e.mu.Lock()
	e.subjects = append(e.subjects, s)
	e.mu.Unlock()
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.result, e.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*kafka.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) RecordEnrichmentJob(entity, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, entity+":"+status)
}
