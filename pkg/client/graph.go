package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// GetGraph fetches the graph, optionally restricted to nodes matching query
// and their neighbours. Nodes and links are never nil.
func (c *Client) GetGraph(ctx context.Context, query string) (graph.Data, error) {
	var q url.Values
	if s := strings.TrimSpace(query); s != "" {
		q = url.Values{"q": {s}}
	}
	var data graph.Data
	if err := c.get(ctx, "/graph", q, &data); err != nil {
		return graph.Data{}, err
	}
	if data.Nodes == nil {
		data.Nodes = []graph.Node{}
	}
	if data.Links == nil {
		data.Links = []graph.Link{}
	}
	return data, nil
}

// GetNode fetches one graph node with its related nodes. Compound element IDs
// are reduced to their lookup key first.
func (c *Client) GetNode(ctx context.Context, id string) (graph.NodeDetail, error) {
	key, err := LookupKey(id)
	if err != nil {
		return graph.NodeDetail{}, err
	}
	var detail graph.NodeDetail
	if err := c.get(ctx, "/nodes/"+url.PathEscape(key), nil, &detail); err != nil {
		return graph.NodeDetail{}, err
	}
	if detail.RelatedNodes == nil {
		detail.RelatedNodes = []graph.RelatedNode{}
	}
	return detail, nil
}

// GetStatistics fetches the per-kind node counts.
func (c *Client) GetStatistics(ctx context.Context) (entity.Statistics, error) {
	var stats entity.Statistics
	if err := c.get(ctx, "/statistics", nil, &stats); err != nil {
		return entity.Statistics{}, err
	}
	return stats, nil
}
