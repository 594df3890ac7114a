package repositories

import (
	"encoding/json"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Nested maps are stored as JSON strings under "<key>_json"; Neo4j
// properties only hold scalars and homogeneous lists.
const jsonSuffix = "_json"

// refKeys are the relation arrays of the entity payloads. They are persisted
// as relationships, never as properties.
var refKeys = map[string]bool{"molecules": true, "targets": true, "effects": true, "organisms": true}

// encodeProps flattens item into a Neo4j property map. Empty values are
// dropped so that SET n += $props never clears a stored property.
func encodeProps[T entity.Entity](item T) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding entity")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding entity")
	}

	props := make(map[string]any, len(fields))
	for k, v := range fields {
		if refKeys[k] {
			continue
		}
		switch val := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(val) != "" {
				props[k] = val
			}
		case map[string]any:
			if len(val) == 0 {
				continue
			}
			b, err := json.Marshal(val)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding "+k)
			}
			props[k+jsonSuffix] = string(b)
		case []any:
			if list, ok := stringList(val); ok && len(list) > 0 {
				props[k] = list
			}
		default:
			props[k] = val
		}
	}
	return props, nil
}

func stringList(in []any) ([]string, bool) {
	out := make([]string, 0, len(in))
	for _, v := range in {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// refRow is one neighbour returned alongside an entity node.
type refRow struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Label        string `json:"-"`
	Relationship string `json:"relationship,omitempty"`
	Activity     string `json:"activity,omitempty"`
}

// decodeProps rebuilds an entity from node properties and its neighbours.
// A node without an id property takes its element ID.
func decodeProps[T entity.Entity](props map[string]any, elementID string, refs []refRow) (T, error) {
	var out T
	fields := make(map[string]any, len(props)+2)
	for k, v := range props {
		if strings.HasSuffix(k, jsonSuffix) {
			if s, ok := v.(string); ok {
				var nested map[string]any
				if err := json.Unmarshal([]byte(s), &nested); err == nil {
					fields[strings.TrimSuffix(k, jsonSuffix)] = nested
				}
			}
			continue
		}
		fields[k] = v
	}
	if id, _ := fields["id"].(string); id == "" {
		fields["id"] = elementID
	}
	for _, r := range refs {
		if r.ID == "" {
			continue
		}
		key := strings.ToLower(r.Label) + "s"
		list, _ := fields[key].([]refRow)
		fields[key] = append(list, r)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return out, errors.Wrap(err, errors.ErrCodeSerialization, "decoding entity")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrap(err, errors.ErrCodeSerialization, "decoding entity")
	}
	return out, nil
}

// refsOf lists the relation arrays of item keyed by the related kind.
func refsOf(item entity.Entity) map[common.Kind][]entity.Ref {
	out := map[common.Kind][]entity.Ref{}
	add := func(k common.Kind, refs []entity.Ref) {
		if len(refs) > 0 {
			out[k] = refs
		}
	}
	switch v := item.(type) {
	case entity.Molecule:
		add(common.KindTarget, v.Targets)
		add(common.KindEffect, v.Effects)
	case entity.Target:
		add(common.KindMolecule, v.Molecules)
		add(common.KindEffect, v.Effects)
	case entity.Organism:
		add(common.KindMolecule, v.Molecules)
		add(common.KindTarget, v.Targets)
	case entity.Effect:
		add(common.KindMolecule, v.Molecules)
		add(common.KindTarget, v.Targets)
	}
	return out
}
