package pages

import (
	"html/template"
	"strings"

	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/pkg/client"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

var organismForm = []browser.Field{
	{Name: "name", Label: "Scientific name", Placeholder: "Psilocybe cubensis", Identifying: true},
	{Name: "common_name", Label: "Common name", Identifying: true},
	{Name: "external_id", Label: "NCBI Taxonomy ID", Placeholder: "181762", Identifying: true},
	{Name: "taxonomy", Label: "Lineage", Placeholder: "Fungi; Basidiomycota; Agaricomycetes"},
	{Name: "description", Label: "Description", Kind: browser.FieldTextarea},
}

func buildOrganism(v map[string]string, base entity.Organism, _ bool) (entity.Organism, error) {
	o := base
	set := func(dst *string, key string) {
		if s := v[key]; s != "" {
			*dst = s
		}
	}
	set(&o.Name, "name")
	set(&o.CommonName, "common_name")
	set(&o.ExternalID, "external_id")
	set(&o.Description, "description")
	if s := v["taxonomy"]; s != "" {
		o.Taxonomy = entity.ParseTaxonomy(s)
	}
	return o, nil
}

func organismFormValues(o entity.Organism) map[string]string {
	return map[string]string{
		"name":        o.Name,
		"common_name": o.CommonName,
		"external_id": o.ExternalID,
		"taxonomy":    strings.Join(o.Taxonomy, "; "),
		"description": o.Description,
	}
}

func applyOrganismEnrichment(o entity.Organism, res enrichment.Result) entity.Organism {
	f := fieldsOf(res)
	fill(&o.CommonName, f.str("common_name"))
	fill(&o.ExternalID, f.str("taxonomy_id", "taxid"))
	fill(&o.Description, f.str("description"))
	if len(o.Taxonomy) == 0 {
		if ranks := f.list("lineage", "taxonomy"); len(ranks) == 1 {
			o.Taxonomy = entity.ParseTaxonomy(ranks[0])
		} else if len(ranks) > 1 {
			o.Taxonomy = entity.TaxonomyPath(ranks)
		}
	}
	o.Properties = mergeProperties(o.Properties, res)
	return o
}

// OrganismConfig is the organism page with the taxonomy path.
func OrganismConfig(c *client.Client) browser.Config[entity.Organism] {
	return browser.Config[entity.Organism]{
		Kind:  common.KindOrganism,
		Title: "Organisms",
		API:   newEntityAPI(c, c.Organisms()),
		RenderCard: func(o entity.Organism) template.HTML {
			return render("organism-card", o)
		},
		RenderDetail: func(o entity.Organism) template.HTML {
			return render("organism-detail", o)
		},
		Form:            organismForm,
		BuildItem:       buildOrganism,
		FormValues:      organismFormValues,
		Identifiers:     func(o entity.Organism) []common.Identifier { return o.Identifiers() },
		ApplyEnrichment: applyOrganismEnrichment,
		SearchText: func(o entity.Organism) []string {
			return []string{o.Name, o.CommonName, o.ID, o.Taxonomy.String(), o.Description}
		},
	}
}
