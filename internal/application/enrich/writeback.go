package enrich

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
	"github.com/turtacn/HyperBlend/internal/infrastructure/providers"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Catalog is the set of entity services enrichment reads from and writes
// back to.
type Catalog struct {
	Molecules catalog.Service[entity.Molecule]
	Targets   catalog.Service[entity.Target]
	Organisms catalog.Service[entity.Organism]
	Effects   catalog.Service[entity.Effect]
}

// subject resolves the entity and builds the provider subject. Request
// identifiers take precedence over the stored ones.
func (c Catalog) subject(ctx context.Context, kind common.Kind, id string, req enrichment.Request) (providers.Subject, error) {
	switch kind {
	case common.KindMolecule:
		return subjectOf(ctx, c.Molecules, id, req)
	case common.KindTarget:
		return subjectOf(ctx, c.Targets, id, req)
	case common.KindOrganism:
		return subjectOf(ctx, c.Organisms, id, req)
	case common.KindEffect:
		return subjectOf(ctx, c.Effects, id, req)
	}
	return providers.Subject{}, errors.Newf(errors.ErrCodeValidation, "unsupported entity kind %q", kind)
}

// writeBack merges data into the stored entity without overwriting values
// it already has.
func (c Catalog) writeBack(ctx context.Context, kind common.Kind, id string, data enrichment.Data) error {
	switch kind {
	case common.KindMolecule:
		return writeBackTo(ctx, c.Molecules, id, data)
	case common.KindTarget:
		return writeBackTo(ctx, c.Targets, id, data)
	case common.KindOrganism:
		return writeBackTo(ctx, c.Organisms, id, data)
	case common.KindEffect:
		return writeBackTo(ctx, c.Effects, id, data)
	}
	return errors.Newf(errors.ErrCodeValidation, "unsupported entity kind %q", kind)
}

type identified interface {
	Identifiers() []common.Identifier
}

func subjectOf[T entity.Entity](ctx context.Context, svc catalog.Service[T], id string, req enrichment.Request) (providers.Subject, error) {
	if svc == nil {
		return providers.Subject{}, errors.New(errors.ErrCodeServiceUnavailable, "entity service not configured")
	}
	item, err := svc.Get(ctx, id)
	if err != nil && errors.IsNotFound(err) && req.OriginalID != "" && req.OriginalID != id {
		item, err = svc.Get(ctx, req.OriginalID)
	}
	if err != nil {
		return providers.Subject{}, err
	}
	s := providers.Subject{Kind: item.Kind(), ID: item.GetID()}
	for _, ident := range req.Identifiers {
		if strings.TrimSpace(ident.Value) != "" {
			s.Identifiers = append(s.Identifiers, ident)
		}
	}
	if ider, ok := any(item).(identified); ok {
		s.Identifiers = append(s.Identifiers, ider.Identifiers()...)
	}
	return s, nil
}

func writeBackTo[T entity.Entity](ctx context.Context, svc catalog.Service[T], id string, data enrichment.Data) error {
	current, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	merged, changed, err := Apply(current, data)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	_, err = svc.Update(ctx, current.GetID(), merged)
	return err
}

// relationFields are never written by enrichment.
var relationFields = map[string]bool{
	"id": true, "original_id": true, "properties": true,
	"molecules": true, "targets": true, "organisms": true, "effects": true,
}

var fieldCache sync.Map // reflect.Type → map[string]bool

// jsonFields lists the JSON names of T's top-level fields.
func jsonFields(t reflect.Type) map[string]bool {
	if v, ok := fieldCache.Load(t); ok {
		return v.(map[string]bool)
	}
	out := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = true
		}
	}
	fieldCache.Store(t, out)
	return out
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	}
	return false
}

// Apply fills the empty fields of item from data. Keys naming an entity
// field go to that field; other properties land in the free-form
// properties map. Existing values always win. changed reports whether
// anything was added.
func Apply[T entity.Entity](item T, data enrichment.Data) (T, bool, error) {
	var zero T
	raw, err := json.Marshal(item)
	if err != nil {
		return zero, false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode entity")
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode entity")
	}
	for k := range relationFields {
		if k != "id" && k != "properties" {
			delete(doc, k)
		}
	}

	fields := jsonFields(reflect.TypeOf(item))
	extra, _ := doc["properties"].(map[string]any)
	if extra == nil {
		extra = map[string]any{}
	}
	changed := false

	put := func(k string, v any) {
		if isBlank(v) {
			return
		}
		if fields[k] && !relationFields[k] {
			if isBlank(doc[k]) {
				doc[k] = v
				changed = true
			}
			return
		}
		if relationFields[k] {
			return
		}
		if _, ok := extra[k]; !ok {
			extra[k] = v
			changed = true
		}
	}
	for k, v := range data.Properties {
		put(k, v)
	}
	for k, v := range data.Identifiers {
		put(k, v)
	}
	if len(extra) > 0 {
		doc["properties"] = extra
	}

	raw, err = json.Marshal(doc)
	if err != nil {
		return zero, false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode merged entity")
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false, errors.Wrap(err, errors.ErrCodeSerialization, "enriched data does not fit entity")
	}
	return out, changed, nil
}
