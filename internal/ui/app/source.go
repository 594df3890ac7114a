package app

import (
	"context"

	"github.com/turtacn/HyperBlend/pkg/client"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// Source is the slice of the API the landing page reads.
type Source interface {
	WaitForInitialization(ctx context.Context) error
	GetStatistics(ctx context.Context) (entity.Statistics, error)
	GetGraph(ctx context.Context, query string) (graph.Data, error)
	GetNode(ctx context.Context, id string) (graph.NodeDetail, error)
	// ListNodes returns the entities of kind matching query as graph nodes.
	ListNodes(ctx context.Context, kind common.Kind, query string) ([]graph.Node, error)
}

// ClientSource adapts the REST client to Source.
type ClientSource struct {
	*client.Client
}

// NewClientSource wraps c.
func NewClientSource(c *client.Client) ClientSource { return ClientSource{Client: c} }

// ListNodes lists kind through the typed entity clients.
func (s ClientSource) ListNodes(ctx context.Context, kind common.Kind, query string) ([]graph.Node, error) {
	switch kind {
	case common.KindMolecule:
		items, err := s.Molecules().List(ctx, query)
		return toNodes(items, err, func(m entity.Molecule) graph.Node {
			return graph.Node{ID: m.ID, Name: m.Name, Type: graph.NodeMolecule, Description: m.Description,
				SMILES: m.SMILES, Formula: m.Formula, MolecularWeight: m.MolecularWeight}
		})
	case common.KindTarget:
		items, err := s.Targets().List(ctx, query)
		return toNodes(items, err, func(t entity.Target) graph.Node {
			return graph.Node{ID: t.ID, Name: t.Name, Type: graph.NodeTarget, Description: t.Description}
		})
	case common.KindOrganism:
		items, err := s.Organisms().List(ctx, query)
		return toNodes(items, err, func(o entity.Organism) graph.Node {
			return graph.Node{ID: o.ID, Name: o.Name, Type: graph.NodeOrganism, Description: o.Description}
		})
	case common.KindEffect:
		items, err := s.Effects().List(ctx, query)
		return toNodes(items, err, func(e entity.Effect) graph.Node {
			return graph.Node{ID: e.ID, Name: e.Name, Type: graph.NodeEffect, Description: e.Description,
				Category: string(e.Category)}
		})
	}
	return nil, apperrors.New(apperrors.ErrCodeUnknownEntity, "unknown entity kind").WithDetail("kind=" + string(kind))
}

func toNodes[T any](items []T, err error, conv func(T) graph.Node) ([]graph.Node, error) {
	if err != nil {
		return nil, err
	}
	out := make([]graph.Node, 0, len(items))
	for _, it := range items {
		out = append(out, conv(it))
	}
	return out, nil
}

// MergeNodes returns data with every node in extra whose ID the graph
// response lacks appended, so unconnected entities stay on the canvas.
// Stats are recounted.
func MergeNodes(data graph.Data, extra ...[]graph.Node) graph.Data {
	seen := make(map[string]bool, len(data.Nodes))
	nodes := make([]graph.Node, 0, len(data.Nodes))
	for _, n := range data.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		nodes = append(nodes, n)
	}
	for _, list := range extra {
		for _, n := range list {
			if n.ID == "" || seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			nodes = append(nodes, n)
		}
	}
	out := graph.Data{Nodes: nodes, Links: data.Links}
	if out.Links == nil {
		out.Links = []graph.Link{}
	}
	out.Stats = out.ComputeStats()
	return out
}
