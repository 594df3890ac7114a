package repositories

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	driver "github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// GraphRepository serves the cross-kind read models and maintenance tasks.
type GraphRepository interface {
	// Statistics counts nodes per curated label.
	Statistics(ctx context.Context) (entity.Statistics, error)
	// Graph returns every entity node and the links between them. A
	// non-empty query keeps the nodes whose name, description, SMILES or
	// formula contains it, plus their direct neighbours.
	Graph(ctx context.Context, query string) (graph.Data, error)
	// Node returns one node with its neighbours. id may be the canonical ID,
	// a graph element ID or its trailing segment.
	Node(ctx context.Context, id string) (graph.NodeDetail, error)
	// MigrateMoleculeIDs gives every molecule without a canonical ID the
	// lowest free "M-<n>", keeping the previous value in original_id.
	MigrateMoleculeIDs(ctx context.Context) (migrated, total int, err error)
}

type neo4jGraphRepo struct {
	exec driver.Executor
	log  logging.Logger
}

// NewGraphRepository returns the Neo4j-backed GraphRepository.
func NewGraphRepository(exec driver.Executor, log logging.Logger) GraphRepository {
	return &neo4jGraphRepo{exec: exec, log: log}
}

func (r *neo4jGraphRepo) Statistics(ctx context.Context) (entity.Statistics, error) {
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, `
		MATCH (n) WHERE any(l IN labels(n) WHERE l IN $labels)
		RETURN [l IN labels(n) WHERE l IN $labels][0] AS label, count(*) AS count`,
			map[string]any{"labels": Labels})
		if err != nil {
			return nil, err
		}
		var stats entity.Statistics
		for result.Next(ctx) {
			rec := result.Record()
			label, _ := rec.Get("label")
			count, _ := rec.Get("count")
			n, _ := count.(int64)
			switch label {
			case "Molecule":
				stats.Molecules = int(n)
			case "Target":
				stats.Targets = int(n)
			case "Organism":
				stats.Organisms = int(n)
			case "Effect":
				stats.Effects = int(n)
			}
		}
		return stats, result.Err()
	})
	if err != nil {
		return entity.Statistics{}, err
	}
	return res.(entity.Statistics), nil
}

const nodeProjection = `
	RETURN coalesce(x.id, elementId(x)) AS id, x.name AS name,
	       [l IN labels(x) WHERE l IN $labels][0] AS type,
	       x.description AS description, x.smiles AS smiles, x.formula AS formula,
	       x.molecular_weight AS molecular_weight, x.category AS category`

func (r *neo4jGraphRepo) Graph(ctx context.Context, query string) (graph.Data, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	nodesCypher := `
	MATCH (x) WHERE any(l IN labels(x) WHERE l IN $labels)` + nodeProjection + `
	ORDER BY type, toLower(coalesce(name, ''))`
	if q != "" {
		nodesCypher = `
		MATCH (n) WHERE any(l IN labels(n) WHERE l IN $labels)
		  AND any(f IN ['name', 'description', 'smiles', 'formula']
		          WHERE toLower(toString(coalesce(n[f], ''))) CONTAINS $q)
		OPTIONAL MATCH (n)--(m) WHERE any(l IN labels(m) WHERE l IN $labels)
		WITH collect(DISTINCT n) + collect(DISTINCT m) AS found
		UNWIND found AS x
		WITH DISTINCT x` + nodeProjection + `
		ORDER BY type, toLower(coalesce(name, ''))`
	}

	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, nodesCypher, map[string]any{"labels": Labels, "q": q})
		if err != nil {
			return nil, err
		}
		nodes, err := driver.CollectRecords(ctx, result, mapNode)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(nodes))
		for _, n := range nodes {
			ids = append(ids, n.ID)
		}
		result, err = tx.Run(ctx, `
		MATCH (a)-[rel]->(b)
		WHERE coalesce(a.id, elementId(a)) IN $ids AND coalesce(b.id, elementId(b)) IN $ids
		RETURN coalesce(a.id, elementId(a)) AS source, coalesce(b.id, elementId(b)) AS target,
		       type(rel) AS type, rel.activity_type AS activity_type,
		       rel.activity_value AS activity_value, rel.activity_unit AS activity_unit,
		       rel.confidence_score AS confidence_score`, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		links, err := driver.CollectRecords(ctx, result, mapLink)
		if err != nil {
			return nil, err
		}
		return graph.Data{Nodes: nodes, Links: links}, nil
	})
	if err != nil {
		return graph.Data{}, err
	}
	data := res.(graph.Data)
	data.Stats = data.ComputeStats()
	return data, nil
}

func mapNode(rec *neo4j.Record) (graph.Node, error) {
	get := func(k string) any { v, _ := rec.Get(k); return v }
	return graph.Node{
		ID:              asString(get("id")),
		Name:            asString(get("name")),
		Type:            graph.NodeType(asString(get("type"))),
		Description:     asString(get("description")),
		SMILES:          asString(get("smiles")),
		Formula:         asString(get("formula")),
		MolecularWeight: asFloat(get("molecular_weight")),
		Category:        asString(get("category")),
	}, nil
}

func mapLink(rec *neo4j.Record) (graph.Link, error) {
	get := func(k string) any { v, _ := rec.Get(k); return v }
	return graph.Link{
		Source:          asString(get("source")),
		Target:          asString(get("target")),
		Type:            asString(get("type")),
		ActivityType:    graph.ActivityType(asString(get("activity_type"))),
		ActivityValue:   asFloat(get("activity_value")),
		ActivityUnit:    asString(get("activity_unit")),
		ConfidenceScore: asFloat(get("confidence_score")),
	}, nil
}

func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

func (r *neo4jGraphRepo) Node(ctx context.Context, id string) (graph.NodeDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return graph.NodeDetail{}, errors.New(errors.ErrCodeInvalidEntityID, "node ID is required")
	}
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, `
		MATCH (x) WHERE any(l IN labels(x) WHERE l IN $labels)
		  AND (x.id = $id OR elementId(x) = $id OR split(elementId(x), ':')[-1] = $id)
		WITH x ORDER BY CASE WHEN x.id = $id THEN 0 ELSE 1 END LIMIT 1
		RETURN coalesce(x.id, elementId(x)) AS id, x.name AS name,
		       [l IN labels(x) WHERE l IN $labels][0] AS type, properties(x) AS props,
		       [(x)-[rel]-(m) WHERE any(l IN labels(m) WHERE l IN $labels) |
		         {id: coalesce(m.id, elementId(m)), name: m.name,
		          label: [l IN labels(m) WHERE l IN $labels][0],
		          relationship: type(rel), activity: rel.activity_type}] AS refs`,
			map[string]any{"id": id, "labels": Labels})
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, result, mapNodeDetail)
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return graph.NodeDetail{}, errors.Newf(errors.ErrCodeNodeNotFound, "node not found: %s", id)
		}
		return graph.NodeDetail{}, err
	}
	return res.(graph.NodeDetail), nil
}

func mapNodeDetail(rec *neo4j.Record) (graph.NodeDetail, error) {
	get := func(k string) any { v, _ := rec.Get(k); return v }
	props, _ := get("props").(map[string]any)
	clean := make(map[string]interface{}, len(props))
	for k, v := range props {
		if k == "id" || k == "name" || strings.HasSuffix(k, jsonSuffix) {
			continue
		}
		clean[k] = v
	}
	detail := graph.NodeDetail{
		ID:           asString(get("id")),
		Name:         asString(get("name")),
		Type:         graph.NodeType(asString(get("type"))),
		Properties:   clean,
		RelatedNodes: []graph.RelatedNode{},
	}
	for _, ref := range toRefRows(get("refs")) {
		detail.RelatedNodes = append(detail.RelatedNodes, graph.RelatedNode{
			ID: ref.ID, Name: ref.Name, Type: graph.NodeType(ref.Label),
			Relationship: ref.Relationship, Activity: ref.Activity,
		})
	}
	return detail, nil
}

type moleculeRow struct {
	eid string
	id  string
}

func (r *neo4jGraphRepo) MigrateMoleculeIDs(ctx context.Context) (int, int, error) {
	type outcome struct{ migrated, total int }
	res, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (m:Molecule) RETURN elementId(m) AS eid, m.id AS id ORDER BY eid`, nil)
		if err != nil {
			return nil, err
		}
		rows, err := driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (moleculeRow, error) {
			eid, _ := rec.Get("eid")
			id, _ := rec.Get("id")
			return moleculeRow{eid: asString(eid), id: asString(id)}, nil
		})
		if err != nil {
			return nil, err
		}

		existing := make([]string, 0, len(rows))
		for _, row := range rows {
			existing = append(existing, row.id)
		}
		alloc := newIDAllocator("M", existing)
		var updates []map[string]any
		for _, row := range rows {
			if IsCanonicalID(common.KindMolecule, row.id) {
				continue
			}
			previous := row.id
			if previous == "" {
				previous = row.eid
			}
			updates = append(updates, map[string]any{"eid": row.eid, "id": alloc.take(), "previous": previous})
		}
		if len(updates) > 0 {
			if _, err := tx.Run(ctx, `
			UNWIND $rows AS row
			MATCH (m:Molecule) WHERE elementId(m) = row.eid
			SET m.original_id = coalesce(m.original_id, row.previous), m.id = row.id`,
				map[string]any{"rows": updates}); err != nil {
				return nil, err
			}
		}
		return outcome{migrated: len(updates), total: len(rows)}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	out := res.(outcome)
	r.log.Info("molecule IDs migrated", logging.Int("migrated", out.migrated), logging.Int("total", out.total))
	return out.migrated, out.total, nil
}
