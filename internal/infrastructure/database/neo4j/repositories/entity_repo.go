package repositories

import (
	"context"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	driver "github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// EntityRepository persists one curated entity kind.
type EntityRepository[T entity.Entity] interface {
	Kind() common.Kind
	// List returns every entity whose searchable fields contain query
	// (case-insensitive), ordered by name. An empty query lists all.
	List(ctx context.Context, query string) ([]T, error)
	// Get resolves id against the canonical ID, then original_id, then the
	// graph element ID or its trailing segment.
	Get(ctx context.Context, id string) (T, error)
	// FindByIdentifier returns the first entity whose field equals value,
	// ignoring case.
	FindByIdentifier(ctx context.Context, field, value string) (T, error)
	// Create stores item under the lowest free canonical ID. A canonical ID
	// supplied by the caller is kept when free; any other supplied ID is
	// kept in original_id.
	Create(ctx context.Context, item T) (T, error)
	// Update merges the non-empty fields of item into the stored entity.
	Update(ctx context.Context, id string, item T) (T, error)
	Delete(ctx context.Context, id string) error
	// AllIDs lists the id property of every node of this kind.
	AllIDs(ctx context.Context) ([]string, error)
}

// searchFields are matched by List per kind.
var searchFields = map[common.Kind][]string{
	common.KindMolecule: {"id", "name", "description", "smiles", "formula", "inchikey", "pubchem_cid"},
	common.KindTarget:   {"id", "name", "description", "gene_name", "external_id", "organism"},
	common.KindOrganism: {"id", "name", "description", "common_name"},
	common.KindEffect:   {"id", "name", "description", "category"},
}

// identifierFields may be used with FindByIdentifier.
var identifierFields = map[common.Kind]map[string]bool{
	common.KindMolecule: {"pubchem_cid": true, "inchikey": true, "chembl_id": true, "drugbank_id": true, "cas_number": true, "smiles": true, "name": true},
	common.KindTarget:   {"external_id": true, "gene_name": true, "name": true},
	common.KindOrganism: {"external_id": true, "name": true},
	common.KindEffect:   {"external_id": true, "name": true},
}

type neo4jEntityRepo[T entity.Entity] struct {
	exec  driver.Executor
	kind  common.Kind
	label string
	log   logging.Logger
}

// NewEntityRepository returns the repository for T.
func NewEntityRepository[T entity.Entity](exec driver.Executor, log logging.Logger) EntityRepository[T] {
	var zero T
	kind := zero.Kind()
	return &neo4jEntityRepo[T]{
		exec:  exec,
		kind:  kind,
		label: Label(kind),
		log:   log.With(logging.Entity(string(kind))),
	}
}

func (r *neo4jEntityRepo[T]) Kind() common.Kind { return r.kind }

// returnClause projects a node n into props, element ID and neighbour refs.
const returnClause = `
	RETURN properties(n) AS props, elementId(n) AS eid,
	       [(n)-[rel]-(m) WHERE any(l IN labels(m) WHERE l IN $labels) |
	         {id: coalesce(m.id, elementId(m)), name: m.name,
	          label: [l IN labels(m) WHERE l IN $labels][0],
	          relationship: type(rel), activity: rel.activity_type}] AS refs`

func (r *neo4jEntityRepo[T]) notFound(id string) error {
	code := map[common.Kind]errors.ErrorCode{
		common.KindMolecule: errors.ErrCodeMoleculeNotFound,
		common.KindTarget:   errors.ErrCodeTargetNotFound,
		common.KindOrganism: errors.ErrCodeOrganismNotFound,
		common.KindEffect:   errors.ErrCodeEffectNotFound,
	}[r.kind]
	return errors.Newf(code, "%s not found: %s", r.kind, id)
}

func (r *neo4jEntityRepo[T]) mapRecord(rec *neo4j.Record) (T, error) {
	var zero T
	propsVal, _ := rec.Get("props")
	props, _ := propsVal.(map[string]any)
	eidVal, _ := rec.Get("eid")
	eid, _ := eidVal.(string)
	refsVal, _ := rec.Get("refs")
	refs := toRefRows(refsVal)
	item, err := decodeProps[T](props, eid, refs)
	if err != nil {
		r.log.Warn("skipping undecodable node", logging.String("element_id", eid), logging.Err(err))
		return zero, err
	}
	return item, nil
}

func toRefRows(v any) []refRow {
	list, _ := v.([]any)
	out := make([]refRow, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, refRow{
			ID:           asString(m["id"]),
			Name:         asString(m["name"]),
			Label:        asString(m["label"]),
			Relationship: asString(m["relationship"]),
			Activity:     asString(m["activity"]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func (r *neo4jEntityRepo[T]) List(ctx context.Context, query string) ([]T, error) {
	cypher := `
	MATCH (n:` + r.label + `)
	WHERE $q = '' OR any(f IN $fields WHERE toLower(toString(coalesce(n[f], ''))) CONTAINS $q)
	WITH n ORDER BY toLower(coalesce(n.name, '')), n.id` + returnClause
	params := map[string]any{
		"q":      strings.ToLower(strings.TrimSpace(query)),
		"fields": searchFields[r.kind],
		"labels": Labels,
	}
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, r.mapRecord)
	})
	if err != nil {
		return nil, err
	}
	return res.([]T), nil
}

func (r *neo4jEntityRepo[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, errors.New(errors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	cypher := `
	MATCH (n:` + r.label + `)
	WHERE n.id = $id OR n.original_id = $id OR elementId(n) = $id
	   OR split(elementId(n), ':')[-1] = $id
	WITH n ORDER BY CASE WHEN n.id = $id THEN 0 WHEN n.original_id = $id THEN 1 ELSE 2 END
	LIMIT 1` + returnClause
	return r.single(ctx, cypher, map[string]any{"id": id, "labels": Labels}, id)
}

func (r *neo4jEntityRepo[T]) FindByIdentifier(ctx context.Context, field, value string) (T, error) {
	var zero T
	if !identifierFields[r.kind][field] {
		return zero, errors.Newf(errors.ErrCodeValidation, "unsupported identifier type %q", field)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return zero, errors.Validation("identifier value is required")
	}
	cypher := `
	MATCH (n:` + r.label + `)
	WHERE toLower(toString(n[$field])) = toLower($value)
	WITH n ORDER BY n.id LIMIT 1` + returnClause
	return r.single(ctx, cypher, map[string]any{"field": field, "value": value, "labels": Labels}, field+"="+value)
}

func (r *neo4jEntityRepo[T]) single(ctx context.Context, cypher string, params map[string]any, key string) (T, error) {
	var zero T
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, result, r.mapRecord)
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return zero, r.notFound(key)
		}
		return zero, err
	}
	return res.(T), nil
}

func (r *neo4jEntityRepo[T]) AllIDs(ctx context.Context) ([]string, error) {
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		return allIDs(ctx, tx, r.label)
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

func allIDs(ctx context.Context, tx driver.Transaction, label string) ([]string, error) {
	result, err := tx.Run(ctx, `MATCH (n:`+label+`) WHERE n.id IS NOT NULL RETURN n.id AS id`, nil)
	if err != nil {
		return nil, err
	}
	return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (string, error) {
		v, _ := rec.Get("id")
		return asString(v), nil
	})
}

func (r *neo4jEntityRepo[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	props, err := encodeProps(item)
	if err != nil {
		return zero, err
	}
	supplied := strings.TrimSpace(item.GetID())
	prefix := IDPrefix(r.kind)

	res, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		existing, err := allIDs(ctx, tx, r.label)
		if err != nil {
			return nil, err
		}
		alloc := newIDAllocator(prefix, existing)
		var id string
		switch {
		case supplied != "" && IsCanonicalID(r.kind, supplied):
			if !alloc.reserve(supplied) {
				return nil, errors.Conflict(string(r.kind) + " " + supplied + " already exists")
			}
			id = supplied
		default:
			id = alloc.take()
			if supplied != "" && props["original_id"] == nil {
				props["original_id"] = supplied
			}
		}
		props["id"] = id

		result, err := tx.Run(ctx, `CREATE (n:`+r.label+`) SET n = $props`+returnClause,
			map[string]any{"props": props, "labels": Labels})
		if err != nil {
			return nil, err
		}
		if _, err := driver.ExtractSingleRecord(ctx, result, r.mapRecord); err != nil {
			return nil, err
		}
		if err := r.linkRefs(ctx, tx, id, refsOf(item)); err != nil {
			return nil, err
		}
		return id, nil
	})
	if err != nil {
		return zero, err
	}
	id := res.(string)
	r.log.Info("entity created", logging.EntityID(id))
	return r.Get(ctx, id)
}

func (r *neo4jEntityRepo[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	props, err := encodeProps(item)
	if err != nil {
		return zero, err
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	canonical := current.GetID()
	delete(props, "id")
	if current.GetOriginalID() != "" {
		delete(props, "original_id")
	}

	_, err = r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (n:`+r.label+` {id: $id}) SET n += $props RETURN n.id AS id`,
			map[string]any{"id": canonical, "props": props})
		if err != nil {
			return nil, err
		}
		if _, err := driver.ExtractSingleRecord(ctx, result, func(*neo4j.Record) (string, error) { return canonical, nil }); err != nil {
			return nil, err
		}
		return nil, r.linkRefs(ctx, tx, canonical, refsOf(item))
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return zero, r.notFound(id)
		}
		return zero, err
	}
	return r.Get(ctx, canonical)
}

// linkRefs merges one relationship per reference. References to unknown
// nodes are skipped.
func (r *neo4jEntityRepo[T]) linkRefs(ctx context.Context, tx driver.Transaction, id string, refs map[common.Kind][]entity.Ref) error {
	for kind, list := range refs {
		rs, err := relationFor(r.kind, kind)
		if err != nil {
			return err
		}
		rows := make([]map[string]any, 0, len(list))
		for _, ref := range list {
			if ref.ID == "" {
				continue
			}
			row := map[string]any{"id": ref.ID}
			if ref.Activity != "" {
				row["activity"] = ref.Activity
			}
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			continue
		}
		pattern := `(n)-[rel:` + rs.Type + `]->(m)`
		if !rs.Outgoing {
			pattern = `(m)-[rel:` + rs.Type + `]->(n)`
		}
		cypher := `
		MATCH (n:` + r.label + ` {id: $id})
		UNWIND $rows AS row
		MATCH (m:` + Label(kind) + `) WHERE m.id = row.id
		MERGE ` + pattern + `
		SET rel.activity_type = coalesce(row.activity, rel.activity_type)`
		if _, err := tx.Run(ctx, cypher, map[string]any{"id": id, "rows": rows}); err != nil {
			return err
		}
	}
	return nil
}

func (r *neo4jEntityRepo[T]) Delete(ctx context.Context, id string) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	canonical := current.GetID()
	res, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, `
		MATCH (n:`+r.label+` {id: $id})
		WITH n, n.id AS id
		DETACH DELETE n
		RETURN count(id) AS deleted`, map[string]any{"id": canonical})
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, result, func(rec *neo4j.Record) (int64, error) {
			v, _ := rec.Get("deleted")
			n, _ := v.(int64)
			return n, nil
		})
	})
	if err != nil {
		return err
	}
	if res.(int64) == 0 {
		return r.notFound(id)
	}
	r.log.Info("entity deleted", logging.EntityID(canonical))
	return nil
}
