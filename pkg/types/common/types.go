// Package common holds the small value types shared by every HyperBlend
// package: entity kinds, external identifiers and source citations.
package common

import (
	"fmt"
	"strings"
)

// Metadata is an open-ended key-value bag.
type Metadata map[string]interface{}

// Kind names one of the four curated entity kinds.
type Kind string

const (
	KindMolecule Kind = "molecule"
	KindTarget   Kind = "target"
	KindOrganism Kind = "organism"
	KindEffect   Kind = "effect"
)

// AllKinds lists the entity kinds in display order.
var AllKinds = []Kind{KindMolecule, KindTarget, KindOrganism, KindEffect}

// ParseKind accepts singular or plural, any case.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Plural returns the REST collection name, e.g. "molecules".
func (k Kind) Plural() string { return string(k) + "s" }

// Label returns the graph label, e.g. "Molecule".
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Prefix returns the canonical ID prefix for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindMolecule:
		return "M"
	case KindTarget:
		return "T"
	case KindOrganism:
		return "O"
	case KindEffect:
		return "E"
	}
	return ""
}

// Identifier is an external database reference, e.g. {type: "pubchem_cid", value: "2519"}.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Source is a citation for enriched data.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Attribute is a named value produced by enrichment.
type Attribute struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}
