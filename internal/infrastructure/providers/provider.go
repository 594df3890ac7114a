// Package providers queries external reference databases for enrichment
// data. Each provider covers one entity kind and is rate limited per host.
package providers

import (
	"context"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// Provider fetches enrichment data for one kind of entity. Enrich returns
// (nil, nil) when the database has nothing for the subject.
type Provider interface {
	Name() string
	Source() common.Source
	Supports(kind common.Kind) bool
	Enrich(ctx context.Context, subject Subject) (*enrichment.Data, error)
}

// Subject is the entity being enriched, reduced to its lookup keys.
type Subject struct {
	Kind        common.Kind
	ID          string
	Identifiers []common.Identifier
}

// Value returns the first non-empty identifier matching any of types, in the
// order the identifiers were supplied.
func (s Subject) Value(types ...string) string {
	for _, id := range s.Identifiers {
		t := NormalizeIdentifierType(id.Type)
		for _, want := range types {
			if t == want {
				if v := strings.TrimSpace(id.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

var identifierAliases = map[string]string{
	"inchi_key":        "inchikey",
	"cid":              "pubchem_cid",
	"pubchem":          "pubchem_cid",
	"pubchem_id":       "pubchem_cid",
	"chembl":           "chembl_id",
	"uniprot":          "uniprot_id",
	"uniprot_acc":      "uniprot_id",
	"accession":        "uniprot_id",
	"gene":             "gene_name",
	"gene_symbol":      "gene_name",
	"taxid":            "taxonomy_id",
	"taxon_id":         "taxonomy_id",
	"gbif_id":          "taxonomy_id",
	"species":          "scientific_name",
	"latin_name":       "scientific_name",
	"canonical_smiles": "smiles",
	"cas":              "cas_number",
}

// NormalizeIdentifierType lower-cases t, folds separators to underscores and
// resolves common aliases ("InChI Key" → "inchikey").
func NormalizeIdentifierType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	if a, ok := identifierAliases[t]; ok {
		return a
	}
	return t
}

// newData returns an empty Data with its maps allocated.
func newData() *enrichment.Data {
	return &enrichment.Data{
		Identifiers: common.Metadata{},
		Properties:  common.Metadata{},
	}
}

// set records a property and, when label is non-empty, a display attribute.
// Empty strings and nil values are skipped.
func set(d *enrichment.Data, key, label string, v any) {
	switch x := v.(type) {
	case nil:
		return
	case string:
		if strings.TrimSpace(x) == "" {
			return
		}
	case *float64:
		if x == nil {
			return
		}
		v = *x
	case *int:
		if x == nil {
			return
		}
		v = *x
	}
	d.Properties[key] = v
	if label != "" {
		d.Attributes = append(d.Attributes, common.Attribute{Name: label, Value: v})
	}
}

func setID(d *enrichment.Data, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		d.Identifiers[key] = v
	}
}

// orNil maps an empty Data to nil so callers see "no data".
func orNil(d *enrichment.Data) *enrichment.Data {
	if d == nil || d.IsEmpty() {
		return nil
	}
	return d
}
