package providers

import (
	"context"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Effect reference sites.
var (
	PsychonautWiki = common.Source{Name: "PsychonautWiki", URL: "https://psychonautwiki.org/wiki/"}
	EffectIndex    = common.Source{Name: "EffectIndex", URL: "https://effectindex.com/effects/"}
	RxList         = common.Source{Name: "RxList", URL: "https://www.rxlist.com/"}
	TripSit        = common.Source{Name: "TripSit", URL: "https://drugs.tripsit.me/"}
)

// SourceLister is implemented by providers that cite more than one source
// depending on the subject.
type SourceLister interface {
	SourcesFor(s Subject) []common.Source
}

// EffectCatalog annotates effects from their category. It does no network
// I/O: each category maps to the reference sites that document it.
type EffectCatalog struct{}

func NewEffectCatalog() *EffectCatalog { return &EffectCatalog{} }

func (EffectCatalog) Name() string { return "EffectCatalog" }

func (EffectCatalog) Source() common.Source { return TripSit }

func (EffectCatalog) Supports(kind common.Kind) bool { return kind == common.KindEffect }

// SourcesFor returns the category-specific sites followed by TripSit, with
// the page URL for the named effect where the site has one.
func (EffectCatalog) SourcesFor(s Subject) []common.Source {
	name := s.Value("name")
	var out []common.Source
	switch category(s) {
	case entity.CategoryPsychological, entity.CategoryCognitive:
		out = append(out, common.Source{Name: PsychonautWiki.Name, URL: PsychonautWiki.URL + wikiSlug(name)})
	case entity.CategoryPerceptual:
		out = append(out, common.Source{Name: EffectIndex.Name, URL: EffectIndex.URL + indexSlug(name)})
	case entity.CategoryPhysiological, entity.CategoryTherapeutic:
		out = append(out, RxList)
	}
	return append(out, TripSit)
}

func (EffectCatalog) Enrich(_ context.Context, s Subject) (*enrichment.Data, error) {
	cat := category(s)
	if cat == "" {
		return nil, nil
	}
	d := newData()
	switch cat {
	case entity.CategoryPsychological, entity.CategoryCognitive:
		set(d, "mechanism", "Mechanism", "Receptor modulation")
		set(d, "risk_level", "Risk Level", "Moderate")
	case entity.CategoryPerceptual:
		set(d, "subjective_index", "Subjective Index", 4.2)
	case entity.CategoryPhysiological, entity.CategoryTherapeutic:
		set(d, "clinical_relevance", "Clinical Relevance", "Significant")
		set(d, "studied_in_clinical_trials", "Studied in Clinical Trials", true)
	default:
		return nil, nil
	}
	if s.ID != "" {
		setID(d, "psychonautwiki", "PSYW-"+s.ID)
		setID(d, "effectindex", "EI-"+s.ID)
	}
	return orNil(d), nil
}

func category(s Subject) entity.EffectCategory {
	c := entity.EffectCategory(strings.ToLower(s.Value("category")))
	if !c.IsValid() {
		return ""
	}
	return c
}

func wikiSlug(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

func indexSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
