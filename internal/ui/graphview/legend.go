package graphview

import (
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// NodeColors maps node types to fill colours.
var NodeColors = map[graph.NodeType]string{
	graph.NodeMolecule: "#4e79a7",
	graph.NodeTarget:   "#f28e2c",
	graph.NodeOrganism: "#59a14f",
	graph.NodeEffect:   "#e15759",
}

// ActivityColors maps edge activity types to stroke colours.
var ActivityColors = map[graph.ActivityType]string{
	graph.ActivityAgonist:        "#2ca02c",
	graph.ActivityAntagonist:     "#d62728",
	graph.ActivityPartialAgonist: "#98df8a",
	graph.ActivityInverseAgonist: "#ff9896",
	graph.ActivityInhibitor:      "#9467bd",
	graph.ActivityActivator:      "#17becf",
	graph.ActivitySubstrate:      "#bcbd22",
	graph.ActivityUnknown:        "#999999",
}

const (
	fallbackNodeColor = "#bab0ab"
	plainLinkColor    = "#cccccc"
)

func nodeColor(t graph.NodeType) string {
	if c, ok := NodeColors[t]; ok {
		return c
	}
	return fallbackNodeColor
}

func linkColor(a graph.ActivityType) string {
	if a == "" {
		return plainLinkColor
	}
	if c, ok := ActivityColors[a]; ok {
		return c
	}
	return ActivityColors[graph.ActivityUnknown]
}

// LegendEntry is one legend row.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// Legend lists the node types and edge activity types present in the data.
type Legend struct {
	NodeTypes  []LegendEntry `json:"node_types"`
	Activities []LegendEntry `json:"activities"`
}

// BuildLegend derives the legend from data. Every type present appears once;
// nothing absent appears.
func BuildLegend(data graph.Data) Legend {
	nodeCounts := map[graph.NodeType]int{}
	for _, n := range data.Nodes {
		nodeCounts[n.Type]++
	}
	actCounts := map[graph.ActivityType]int{}
	for _, l := range data.Links {
		if l.ActivityType != "" {
			actCounts[l.ActivityType]++
		}
	}

	lg := Legend{NodeTypes: []LegendEntry{}, Activities: []LegendEntry{}}
	for _, t := range data.NodeTypes() {
		lg.NodeTypes = append(lg.NodeTypes, LegendEntry{Label: string(t), Color: nodeColor(t), Count: nodeCounts[t]})
	}
	for _, a := range data.ActivityTypesPresent() {
		lg.Activities = append(lg.Activities, LegendEntry{Label: string(a), Color: linkColor(a), Count: actCounts[a]})
	}
	return lg
}
