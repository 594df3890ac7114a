// Package graph defines the node/link payload served by GET /graph and the
// node-detail payload served by GET /nodes/<id>.
package graph

import "sort"

// NodeType is the display type of a rendered node ("Molecule", "Target", ...).
type NodeType string

const (
	NodeMolecule NodeType = "Molecule"
	NodeTarget   NodeType = "Target"
	NodeOrganism NodeType = "Organism"
	NodeEffect   NodeType = "Effect"
)

// ActivityType is the pharmacological label on a molecule–target edge.
type ActivityType string

const (
	ActivityAgonist        ActivityType = "agonist"
	ActivityAntagonist     ActivityType = "antagonist"
	ActivityPartialAgonist ActivityType = "partial_agonist"
	ActivityInverseAgonist ActivityType = "inverse_agonist"
	ActivityInhibitor      ActivityType = "inhibitor"
	ActivityActivator      ActivityType = "activator"
	ActivitySubstrate      ActivityType = "substrate"
	ActivityUnknown        ActivityType = "unknown"
)

// ActivityTypes lists the vocabulary in legend order.
var ActivityTypes = []ActivityType{
	ActivityAgonist, ActivityAntagonist, ActivityPartialAgonist, ActivityInverseAgonist,
	ActivityInhibitor, ActivityActivator, ActivitySubstrate, ActivityUnknown,
}

// NormalizeActivity maps free text onto the vocabulary, defaulting to unknown.
func NormalizeActivity(s string) ActivityType {
	for _, a := range ActivityTypes {
		if string(a) == s {
			return a
		}
	}
	switch s {
	case "partial agonist", "partial-agonist":
		return ActivityPartialAgonist
	case "inverse agonist", "inverse-agonist":
		return ActivityInverseAgonist
	}
	return ActivityUnknown
}

// Node is a rendered entity.
type Node struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            NodeType `json:"type"`
	Description     string   `json:"description,omitempty"`
	SMILES          string   `json:"smiles,omitempty"`
	Formula         string   `json:"formula,omitempty"`
	MolecularWeight *float64 `json:"molecular_weight,omitempty"`
	Category        string   `json:"category,omitempty"`
}

// Link is a rendered relationship. ActivityType and the numeric fields are only
// set for molecule–target interactions.
type Link struct {
	Source          string       `json:"source"`
	Target          string       `json:"target"`
	Type            string       `json:"type"`
	ActivityType    ActivityType `json:"activity_type,omitempty"`
	ActivityValue   *float64     `json:"activity_value,omitempty"`
	ActivityUnit    string       `json:"activity_unit,omitempty"`
	ConfidenceScore *float64     `json:"confidence_score,omitempty"`
}

// Stats summarises a graph response.
type Stats struct {
	Molecules int `json:"molecules"`
	Targets   int `json:"targets"`
	Organisms int `json:"organisms"`
	Effects   int `json:"effects"`
}

// Data is the GET /graph payload.
type Data struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Stats Stats  `json:"stats"`
}

// ComputeStats recounts nodes per type.
func (d Data) ComputeStats() Stats {
	var s Stats
	for _, n := range d.Nodes {
		switch n.Type {
		case NodeMolecule:
			s.Molecules++
		case NodeTarget:
			s.Targets++
		case NodeOrganism:
			s.Organisms++
		case NodeEffect:
			s.Effects++
		}
	}
	return s
}

// HasNode reports whether a node with id is present.
func (d Data) HasNode(id string) bool {
	for _, n := range d.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// NodeTypes returns the distinct node types present, sorted.
func (d Data) NodeTypes() []NodeType {
	seen := map[NodeType]bool{}
	var out []NodeType
	for _, n := range d.Nodes {
		if n.Type != "" && !seen[n.Type] {
			seen[n.Type] = true
			out = append(out, n.Type)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ActivityTypesPresent returns the distinct edge activity types present, in
// vocabulary order followed by any unrecognised values sorted.
func (d Data) ActivityTypesPresent() []ActivityType {
	seen := map[ActivityType]bool{}
	for _, l := range d.Links {
		if l.ActivityType != "" {
			seen[l.ActivityType] = true
		}
	}
	var out []ActivityType
	for _, a := range ActivityTypes {
		if seen[a] {
			out = append(out, a)
			delete(seen, a)
		}
	}
	var rest []ActivityType
	for a := range seen {
		rest = append(rest, a)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

// RelatedNode is one neighbour in a node-detail response.
type RelatedNode struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         NodeType `json:"type"`
	Relationship string   `json:"relationship"`
	Activity     string   `json:"activity,omitempty"`
}

// NodeDetail is the GET /nodes/<id> payload.
type NodeDetail struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Type         NodeType               `json:"type"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
	RelatedNodes []RelatedNode          `json:"related_nodes"`
}
