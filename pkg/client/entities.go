package client

import (
	"context"
	"encoding/json"
	"net/url"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// EntityClient provides CRUD and enrichment for one entity kind.
type EntityClient[T entity.Entity] struct {
	c    *Client
	kind common.Kind
}

func newEntityClient[T entity.Entity](c *Client) *EntityClient[T] {
	var zero T
	return &EntityClient[T]{c: c, kind: zero.Kind()}
}

// Kind returns the entity kind served by this client.
func (ec *EntityClient[T]) Kind() common.Kind { return ec.kind }

func (ec *EntityClient[T]) collectionPath() string { return "/" + ec.kind.Plural() }

func (ec *EntityClient[T]) itemPath(id string) string {
	return ec.collectionPath() + "/" + url.PathEscape(id)
}

// List fetches the collection, filtered server-side when query is non-empty.
// The server may answer with a bare array or an object keyed by the plural
// name or "items".
func (ec *EntityClient[T]) List(ctx context.Context, query string) ([]T, error) {
	var q url.Values
	if query != "" {
		q = url.Values{"q": {query}}
	}
	var raw json.RawMessage
	if err := ec.c.get(ctx, ec.collectionPath(), q, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw, ec.kind)
}

// Get fetches one entity by ID.
func (ec *EntityClient[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	var raw json.RawMessage
	if err := ec.c.get(ctx, ec.itemPath(id), nil, &raw); err != nil {
		return zero, err
	}
	return decodeOne[T](raw, ec.kind)
}

// GetWithFallback tries each non-empty ID in order and returns the first hit.
// Only not-found errors move on to the next candidate.
func (ec *EntityClient[T]) GetWithFallback(ctx context.Context, ids ...string) (T, error) {
	var zero T
	var lastErr error
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		item, err := ec.Get(ctx, id)
		if err == nil {
			return item, nil
		}
		if !IsNotFound(err) {
			return zero, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	return zero, lastErr
}

// Create posts a new entity and returns the stored version.
func (ec *EntityClient[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	var raw json.RawMessage
	if err := ec.c.post(ctx, ec.collectionPath(), item, &raw); err != nil {
		return zero, err
	}
	return decodeOne[T](raw, ec.kind)
}

// Update replaces the entity with the given ID.
func (ec *EntityClient[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	if id == "" {
		return zero, apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	var raw json.RawMessage
	if err := ec.c.put(ctx, ec.itemPath(id), item, &raw); err != nil {
		return zero, err
	}
	return decodeOne[T](raw, ec.kind)
}

// Delete removes the entity with the given ID.
func (ec *EntityClient[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	return ec.c.delete(ctx, ec.itemPath(id))
}

// ─────────────────────────────────────────────────────────────────────────────
// Response shapes
// ─────────────────────────────────────────────────────────────────────────────

func decodeList[T any](raw json.RawMessage, kind common.Kind) ([]T, error) {
	out := []T{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, unexpectedShape(kind.Plural(), err)
		}
		return out, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, unexpectedShape(kind.Plural(), err)
	}
	for _, key := range []string{kind.Plural(), "items", "data"} {
		inner, ok := wrapped[key]
		if !ok {
			continue
		}
		if string(inner) == "null" {
			return out, nil
		}
		if err := json.Unmarshal(inner, &out); err != nil {
			return nil, unexpectedShape(kind.Plural(), err)
		}
		return out, nil
	}
	return nil, unexpectedShape(kind.Plural(), nil)
}

func decodeOne[T any](raw json.RawMessage, kind common.Kind) (T, error) {
	var out T
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return out, unexpectedShape(string(kind), err)
	}
	if inner, ok := wrapped[string(kind)]; ok && len(inner) > 0 && inner[0] == '{' {
		raw = inner
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, unexpectedShape(string(kind), err)
	}
	return out, nil
}

func unexpectedShape(what string, cause error) error {
	e := apperrors.Newf(apperrors.ErrCodeUnexpectedShape, "unexpected %s response shape", what)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}
