// Package entity defines the four curated HyperBlend entity kinds as they
// travel over the REST API.
package entity

import (
	"encoding/json"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
)

// Entity is implemented by every curated entity. Methods use value receivers
// so that the list/detail browser can hold plain values.
type Entity interface {
	GetID() string
	GetOriginalID() string
	GetName() string
	GetDescription() string
	Kind() common.Kind
}

// Ref is a lightweight pointer to a related entity.
type Ref struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Activity     string `json:"activity,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is a chemical compound. ID is canonicalised to "M-<n>"; the value
// it replaced is kept in OriginalID.
type Molecule struct {
	ID               string          `json:"id"`
	OriginalID       string          `json:"original_id,omitempty"`
	Name             string          `json:"name"`
	Formula          string          `json:"formula,omitempty"`
	MolecularWeight  *float64        `json:"molecular_weight,omitempty"`
	SMILES           string          `json:"smiles,omitempty"`
	InChIKey         string          `json:"inchikey,omitempty"`
	CASNumber        string          `json:"cas_number,omitempty"`
	PubChemCID       string          `json:"pubchem_cid,omitempty"`
	ChEMBLID         string          `json:"chembl_id,omitempty"`
	DrugBankID       string          `json:"drugbank_id,omitempty"`
	Description      string          `json:"description,omitempty"`
	LogP             *float64        `json:"logp,omitempty"`
	PolarSurfaceArea *float64        `json:"polar_surface_area,omitempty"`
	HBondDonors      *int            `json:"hbond_donors,omitempty"`
	HBondAcceptors   *int            `json:"hbond_acceptors,omitempty"`
	RotatableBonds   *int            `json:"rotatable_bonds,omitempty"`
	Properties       common.Metadata `json:"properties,omitempty"`
	Targets          []Ref           `json:"targets,omitempty"`
	Effects          []Ref           `json:"effects,omitempty"`
}

func (m Molecule) GetID() string          { return m.ID }
func (m Molecule) GetOriginalID() string  { return m.OriginalID }
func (m Molecule) GetName() string        { return m.Name }
func (m Molecule) GetDescription() string { return m.Description }
func (m Molecule) Kind() common.Kind      { return common.KindMolecule }

// Identifiers returns the external identifiers that are set, in enrichment
// priority order.
func (m Molecule) Identifiers() []common.Identifier {
	var ids []common.Identifier
	add := func(t, v string) {
		if v = strings.TrimSpace(v); v != "" {
			ids = append(ids, common.Identifier{Type: t, Value: v})
		}
	}
	add("pubchem_cid", m.PubChemCID)
	add("chembl_id", m.ChEMBLID)
	add("drugbank_id", m.DrugBankID)
	add("inchikey", m.InChIKey)
	add("cas_number", m.CASNumber)
	add("smiles", m.SMILES)
	add("name", m.Name)
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// Target
// ─────────────────────────────────────────────────────────────────────────────

// Target is a biological interaction partner such as a receptor or enzyme.
type Target struct {
	ID          string          `json:"id"`
	OriginalID  string          `json:"original_id,omitempty"`
	Name        string          `json:"name"`
	Type        string          `json:"type,omitempty"`
	Organism    string          `json:"organism,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	GeneName    string          `json:"gene_name,omitempty"`
	Sequence    string          `json:"sequence,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  common.Metadata `json:"properties,omitempty"`
	Molecules   []Ref           `json:"molecules,omitempty"`
	Effects     []Ref           `json:"effects,omitempty"`
}

func (t Target) GetID() string          { return t.ID }
func (t Target) GetOriginalID() string  { return t.OriginalID }
func (t Target) GetName() string        { return t.Name }
func (t Target) GetDescription() string { return t.Description }
func (t Target) Kind() common.Kind      { return common.KindTarget }

// Identifiers returns the lookup keys used for enrichment.
func (t Target) Identifiers() []common.Identifier {
	var ids []common.Identifier
	if t.ExternalID != "" {
		ids = append(ids, common.Identifier{Type: "uniprot_id", Value: t.ExternalID})
	}
	if t.GeneName != "" {
		ids = append(ids, common.Identifier{Type: "gene_name", Value: t.GeneName})
	}
	if t.Name != "" {
		ids = append(ids, common.Identifier{Type: "name", Value: t.Name})
	}
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// Organism
// ─────────────────────────────────────────────────────────────────────────────

// TaxonomyPath is an ordered root-to-leaf rank sequence. It decodes from a JSON
// array or from a delimited string ("Plantae; Magnoliophyta; ...").
type TaxonomyPath []string

// UnmarshalJSON accepts an array of strings or a single delimited string.
func (p *TaxonomyPath) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*p = cleanRanks(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = ParseTaxonomy(s)
	return nil
}

// ParseTaxonomy splits a delimited lineage string.
func ParseTaxonomy(s string) TaxonomyPath {
	f := func(r rune) bool { return r == ';' || r == '>' || r == '|' || r == ',' }
	return cleanRanks(strings.FieldsFunc(s, f))
}

func cleanRanks(in []string) TaxonomyPath {
	out := make(TaxonomyPath, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// String joins the ranks root-to-leaf.
func (p TaxonomyPath) String() string { return strings.Join(p, " › ") }

// Organism is a natural source of molecules.
type Organism struct {
	ID          string          `json:"id"`
	OriginalID  string          `json:"original_id,omitempty"`
	Name        string          `json:"name"`
	CommonName  string          `json:"common_name,omitempty"`
	Taxonomy    TaxonomyPath    `json:"taxonomy,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  common.Metadata `json:"properties,omitempty"`
	Molecules   []Ref           `json:"molecules,omitempty"`
	Targets     []Ref           `json:"targets,omitempty"`
}

func (o Organism) GetID() string          { return o.ID }
func (o Organism) GetOriginalID() string  { return o.OriginalID }
func (o Organism) GetName() string        { return o.Name }
func (o Organism) GetDescription() string { return o.Description }
func (o Organism) Kind() common.Kind      { return common.KindOrganism }

// Identifiers returns the lookup keys used for enrichment.
func (o Organism) Identifiers() []common.Identifier {
	var ids []common.Identifier
	if o.ExternalID != "" {
		ids = append(ids, common.Identifier{Type: "taxonomy_id", Value: o.ExternalID})
	}
	if o.Name != "" {
		ids = append(ids, common.Identifier{Type: "scientific_name", Value: o.Name})
	}
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// Effect
// ─────────────────────────────────────────────────────────────────────────────

// EffectCategory is drawn from a fixed vocabulary.
type EffectCategory string

const (
	CategoryPhysiological EffectCategory = "physiological"
	CategoryPsychological EffectCategory = "psychological"
	CategoryCognitive     EffectCategory = "cognitive"
	CategoryPerceptual    EffectCategory = "perceptual"
	CategoryTherapeutic   EffectCategory = "therapeutic"
)

// EffectCategories lists the vocabulary in display order.
var EffectCategories = []EffectCategory{
	CategoryPhysiological, CategoryPsychological, CategoryCognitive,
	CategoryPerceptual, CategoryTherapeutic,
}

// IsValid reports whether c belongs to the vocabulary.
func (c EffectCategory) IsValid() bool {
	for _, v := range EffectCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Effect is an observed physiological or psychological effect.
type Effect struct {
	ID          string          `json:"id"`
	OriginalID  string          `json:"original_id,omitempty"`
	Name        string          `json:"name"`
	Category    EffectCategory  `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	OnsetTime   string          `json:"onset_time,omitempty"`
	Duration    string          `json:"duration,omitempty"`
	Source      string          `json:"source,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	Properties  common.Metadata `json:"properties,omitempty"`
	Molecules   []Ref           `json:"molecules,omitempty"`
	Targets     []Ref           `json:"targets,omitempty"`
}

func (e Effect) GetID() string          { return e.ID }
func (e Effect) GetOriginalID() string  { return e.OriginalID }
func (e Effect) GetName() string        { return e.Name }
func (e Effect) GetDescription() string { return e.Description }
func (e Effect) Kind() common.Kind      { return common.KindEffect }

// Identifiers returns the lookup keys used for enrichment.
func (e Effect) Identifiers() []common.Identifier {
	var ids []common.Identifier
	if e.Name != "" {
		ids = append(ids, common.Identifier{Type: "name", Value: e.Name})
	}
	if e.Category != "" {
		ids = append(ids, common.Identifier{Type: "category", Value: string(e.Category)})
	}
	if e.ExternalID != "" {
		ids = append(ids, common.Identifier{Type: "external_id", Value: e.ExternalID})
	}
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// Statistics
// ─────────────────────────────────────────────────────────────────────────────

// Statistics holds node counts per kind.
type Statistics struct {
	Molecules int `json:"molecule"`
	Targets   int `json:"target"`
	Organisms int `json:"organism"`
	Effects   int `json:"effect"`
}

// Count returns the count for k.
func (s Statistics) Count(k common.Kind) int {
	switch k {
	case common.KindMolecule:
		return s.Molecules
	case common.KindTarget:
		return s.Targets
	case common.KindOrganism:
		return s.Organisms
	case common.KindEffect:
		return s.Effects
	}
	return 0
}

// Total is the sum over all kinds.
func (s Statistics) Total() int {
	return s.Molecules + s.Targets + s.Organisms + s.Effects
}
