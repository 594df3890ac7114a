package providers

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

const (
	UniProtName    = "UniProt"
	UniProtBaseURL = "https://rest.uniprot.org/uniprotkb"
	UniProtSiteURL = "https://www.uniprot.org/"
)

var accessionPattern = regexp.MustCompile(`^([OPQ][0-9][A-Z0-9]{3}[0-9]|[A-NR-Z][0-9]([A-Z][A-Z0-9]{2}[0-9]){1,2})$`)

// UniProt resolves protein targets by accession, falling back to a gene or
// name search restricted to reviewed human entries.
type UniProt struct {
	http *getter
}

func NewUniProt(cfg Config) *UniProt {
	return &UniProt{http: newGetter(UniProtName, UniProtBaseURL, cfg)}
}

func (u *UniProt) Name() string { return UniProtName }

func (u *UniProt) Source() common.Source {
	return common.Source{Name: UniProtName, URL: UniProtSiteURL}
}

func (u *UniProt) Supports(kind common.Kind) bool { return kind == common.KindTarget }

func (u *UniProt) Enrich(ctx context.Context, s Subject) (*enrichment.Data, error) {
	acc := strings.ToUpper(s.Value("uniprot_id", "external_id"))
	if accessionPattern.MatchString(acc) {
		var e uniprotEntry
		err := u.http.getJSON(ctx, "/"+acc+".json", nil, &e)
		if err == nil {
			return orNil(e.toData()), nil
		}
		if !isNoRecord(err) {
			return nil, err
		}
	}

	var query string
	if gene := s.Value("gene_name"); gene != "" {
		query = "gene_exact:" + gene
	} else if name := s.Value("name"); name != "" {
		query = `protein_name:"` + name + `"`
	} else {
		return nil, nil
	}
	query += " AND reviewed:true AND organism_id:9606"

	var resp struct {
		Results []uniprotEntry `json:"results"`
	}
	err := u.http.getJSON(ctx, "/search", url.Values{
		"query":  {query},
		"format": {"json"},
		"size":   {"1"},
	}, &resp)
	if isNoRecord(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return orNil(resp.Results[0].toData()), nil
}

type uniprotEntry struct {
	PrimaryAccession   string `json:"primaryAccession"`
	UniProtKBID        string `json:"uniProtkbId"`
	ProteinDescription struct {
		RecommendedName *struct {
			FullName struct {
				Value string `json:"value"`
			} `json:"fullName"`
		} `json:"recommendedName"`
	} `json:"proteinDescription"`
	Genes []struct {
		GeneName *struct {
			Value string `json:"value"`
		} `json:"geneName"`
	} `json:"genes"`
	Organism struct {
		ScientificName string `json:"scientificName"`
		TaxonID        int    `json:"taxonId"`
	} `json:"organism"`
	Sequence struct {
		Value  string `json:"value"`
		Length int    `json:"length"`
	} `json:"sequence"`
}

func (e *uniprotEntry) toData() *enrichment.Data {
	d := newData()
	setID(d, "uniprot_id", e.PrimaryAccession)
	set(d, "external_id", "UniProt Accession", e.PrimaryAccession)
	set(d, "uniprot_entry", "", e.UniProtKBID)
	if rn := e.ProteinDescription.RecommendedName; rn != nil {
		set(d, "protein_name", "Protein Name", rn.FullName.Value)
	}
	if len(e.Genes) > 0 && e.Genes[0].GeneName != nil {
		gene := e.Genes[0].GeneName.Value
		setID(d, "gene_name", gene)
		set(d, "gene_name", "Gene", gene)
	}
	set(d, "organism", "Organism", e.Organism.ScientificName)
	set(d, "sequence", "", e.Sequence.Value)
	if e.Sequence.Length > 0 {
		set(d, "sequence_length", "Sequence Length", e.Sequence.Length)
	}
	if e.PrimaryAccession != "" {
		set(d, "type", "", "protein")
	}
	return d
}
