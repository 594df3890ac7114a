package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

const (
	GBIFName    = "GBIF"
	GBIFBaseURL = "https://api.gbif.org/v1/species"
	GBIFSiteURL = "https://www.gbif.org/"
)

// GBIF resolves organisms to a taxonomy through the species match endpoint.
type GBIF struct {
	http *getter
}

func NewGBIF(cfg Config) *GBIF {
	return &GBIF{http: newGetter(GBIFName, GBIFBaseURL, cfg)}
}

func (g *GBIF) Name() string { return GBIFName }

func (g *GBIF) Source() common.Source {
	return common.Source{Name: GBIFName, URL: GBIFSiteURL}
}

func (g *GBIF) Supports(kind common.Kind) bool { return kind == common.KindOrganism }

func (g *GBIF) Enrich(ctx context.Context, s Subject) (*enrichment.Data, error) {
	var m gbifMatch
	if key := s.Value("taxonomy_id"); key != "" {
		if _, err := strconv.Atoi(key); err == nil {
			err := g.http.getJSON(ctx, "/"+key, nil, &m)
			if err == nil {
				m.MatchType = "EXACT"
				return orNil(m.toData()), nil
			}
			if !isNoRecord(err) {
				return nil, err
			}
		}
	}

	name := s.Value("scientific_name", "name")
	if name == "" {
		return nil, nil
	}
	err := g.http.getJSON(ctx, "/match", url.Values{"name": {name}}, &m)
	if isNoRecord(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.MatchType == "" || m.MatchType == "NONE" {
		return nil, nil
	}
	return orNil(m.toData()), nil
}

type gbifMatch struct {
	UsageKey       int    `json:"usageKey"`
	Key            int    `json:"key"`
	ScientificName string `json:"scientificName"`
	CanonicalName  string `json:"canonicalName"`
	Rank           string `json:"rank"`
	MatchType      string `json:"matchType"`
	Kingdom        string `json:"kingdom"`
	Phylum         string `json:"phylum"`
	Class          string `json:"class"`
	Order          string `json:"order"`
	Family         string `json:"family"`
	Genus          string `json:"genus"`
	Species        string `json:"species"`
}

func (m *gbifMatch) toData() *enrichment.Data {
	d := newData()
	key := m.UsageKey
	if key == 0 {
		key = m.Key
	}
	if key > 0 {
		k := strconv.Itoa(key)
		setID(d, "taxonomy_id", k)
		set(d, "external_id", "GBIF Taxon Key", k)
	}
	name := m.CanonicalName
	if name == "" {
		name = m.ScientificName
	}
	setID(d, "scientific_name", name)
	set(d, "scientific_name", "Scientific Name", name)
	set(d, "rank", "Rank", strings.ToLower(m.Rank))

	var lineage []string
	for _, rank := range []string{m.Kingdom, m.Phylum, m.Class, m.Order, m.Family, m.Genus, m.Species} {
		if rank != "" {
			lineage = append(lineage, rank)
		}
	}
	if len(lineage) > 0 {
		set(d, "taxonomy", "Taxonomy", lineage)
		set(d, "kingdom", "", m.Kingdom)
		set(d, "family", "Family", m.Family)
	}
	return d
}
