package pages

import (
	"html/template"

	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/pkg/client"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// TargetTypes is the target type vocabulary offered by the form.
var TargetTypes = []string{"receptor", "enzyme", "transporter", "ion_channel", "other"}

var targetForm = []browser.Field{
	{Name: "name", Label: "Name", Placeholder: "5-HT2A receptor", Identifying: true},
	{Name: "gene_name", Label: "Gene", Placeholder: "HTR2A", Identifying: true},
	{Name: "external_id", Label: "UniProt ID", Placeholder: "P28223", Identifying: true},
	{Name: "type", Label: "Type", Kind: browser.FieldSelect, Options: TargetTypes},
	{Name: "organism", Label: "Organism", Placeholder: "Homo sapiens"},
	{Name: "sequence", Label: "Sequence", Kind: browser.FieldTextarea},
	{Name: "description", Label: "Description", Kind: browser.FieldTextarea},
}

func buildTarget(v map[string]string, base entity.Target, _ bool) (entity.Target, error) {
	t := base
	set := func(dst *string, key string) {
		if s := v[key]; s != "" {
			*dst = s
		}
	}
	set(&t.Name, "name")
	set(&t.GeneName, "gene_name")
	set(&t.ExternalID, "external_id")
	set(&t.Type, "type")
	set(&t.Organism, "organism")
	set(&t.Sequence, "sequence")
	set(&t.Description, "description")
	return t, nil
}

func targetFormValues(t entity.Target) map[string]string {
	return map[string]string{
		"name":        t.Name,
		"gene_name":   t.GeneName,
		"external_id": t.ExternalID,
		"type":        t.Type,
		"organism":    t.Organism,
		"sequence":    t.Sequence,
		"description": t.Description,
	}
}

func applyTargetEnrichment(t entity.Target, res enrichment.Result) entity.Target {
	f := fieldsOf(res)
	fill(&t.GeneName, f.str("gene_name", "gene"))
	fill(&t.Organism, f.str("organism", "organism_name"))
	fill(&t.Sequence, f.str("sequence"))
	fill(&t.ExternalID, f.str("uniprot_id", "accession"))
	fill(&t.Type, f.str("type", "target_type"))
	fill(&t.Description, f.str("function", "description"))
	t.Properties = mergeProperties(t.Properties, res)
	return t
}

// TargetConfig is the target page with the sequence block.
func TargetConfig(c *client.Client) browser.Config[entity.Target] {
	return browser.Config[entity.Target]{
		Kind:  common.KindTarget,
		Title: "Targets",
		API:   newEntityAPI(c, c.Targets()),
		RenderCard: func(t entity.Target) template.HTML {
			return render("target-card", t)
		},
		RenderDetail: func(t entity.Target) template.HTML {
			return render("target-detail", t)
		},
		Form:            targetForm,
		BuildItem:       buildTarget,
		FormValues:      targetFormValues,
		Identifiers:     func(t entity.Target) []common.Identifier { return t.Identifiers() },
		ApplyEnrichment: applyTargetEnrichment,
		SearchText: func(t entity.Target) []string {
			return []string{t.Name, t.ID, t.GeneName, t.Organism, t.ExternalID, t.Description}
		},
	}
}
