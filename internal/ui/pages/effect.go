package pages

import (
	"html/template"
	"strings"

	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/pkg/client"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

func effectForm() []browser.Field {
	cats := make([]string, 0, len(entity.EffectCategories))
	for _, c := range entity.EffectCategories {
		cats = append(cats, string(c))
	}
	return []browser.Field{
		{Name: "name", Label: "Name", Placeholder: "Visual distortion", Identifying: true},
		{Name: "category", Label: "Category", Kind: browser.FieldSelect, Options: cats},
		{Name: "onset_time", Label: "Onset", Placeholder: "20-40 min"},
		{Name: "duration", Label: "Duration", Placeholder: "4-6 h"},
		{Name: "source", Label: "Source"},
		{Name: "external_id", Label: "External ID", Identifying: true},
		{Name: "description", Label: "Description", Kind: browser.FieldTextarea},
	}
}

func buildEffect(v map[string]string, base entity.Effect, _ bool) (entity.Effect, error) {
	e := base
	set := func(dst *string, key string) {
		if s := v[key]; s != "" {
			*dst = s
		}
	}
	set(&e.Name, "name")
	set(&e.OnsetTime, "onset_time")
	set(&e.Duration, "duration")
	set(&e.Source, "source")
	set(&e.ExternalID, "external_id")
	set(&e.Description, "description")
	if s := v["category"]; s != "" {
		cat := entity.EffectCategory(strings.ToLower(s))
		if !cat.IsValid() {
			return entity.Effect{}, apperrors.Validation("unknown effect category").WithDetail("category=" + s)
		}
		e.Category = cat
	}
	return e, nil
}

func effectFormValues(e entity.Effect) map[string]string {
	return map[string]string{
		"name":        e.Name,
		"category":    string(e.Category),
		"onset_time":  e.OnsetTime,
		"duration":    e.Duration,
		"source":      e.Source,
		"external_id": e.ExternalID,
		"description": e.Description,
	}
}

func applyEffectEnrichment(e entity.Effect, res enrichment.Result) entity.Effect {
	f := fieldsOf(res)
	fill(&e.Description, f.str("description", "summary"))
	fill(&e.OnsetTime, f.str("onset_time", "onset"))
	fill(&e.Duration, f.str("duration"))
	if e.Category == "" {
		if cat := entity.EffectCategory(strings.ToLower(f.str("category"))); cat.IsValid() {
			e.Category = cat
		}
	}
	if e.Source == "" && len(res.Sources) > 0 {
		e.Source = res.Sources[0].Name
	}
	e.Properties = mergeProperties(e.Properties, res)
	return e
}

// EffectConfig is the effect page with the category badge.
func EffectConfig(c *client.Client) browser.Config[entity.Effect] {
	return browser.Config[entity.Effect]{
		Kind:  common.KindEffect,
		Title: "Effects",
		API:   newEntityAPI(c, c.Effects()),
		RenderCard: func(e entity.Effect) template.HTML {
			return render("effect-card", e)
		},
		RenderDetail: func(e entity.Effect) template.HTML {
			return render("effect-detail", e)
		},
		Form:            effectForm(),
		BuildItem:       buildEffect,
		FormValues:      effectFormValues,
		Identifiers:     func(e entity.Effect) []common.Identifier { return e.Identifiers() },
		ApplyEnrichment: applyEffectEnrichment,
		SearchText: func(e entity.Effect) []string {
			return []string{e.Name, e.ID, string(e.Category), e.Description}
		},
	}
}
