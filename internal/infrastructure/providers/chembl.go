package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

const (
	ChEMBLName    = "ChEMBL"
	ChEMBLBaseURL = "https://www.ebi.ac.uk/chembl/api/data"
	ChEMBLSiteURL = "https://www.ebi.ac.uk/chembl/"
)

// knownChEMBL short-circuits the free-text search for frequently curated
// substances whose search results rank salts or analogues first.
var knownChEMBL = map[string]string{
	"mescaline":  "CHEMBL8857",
	"lsd":        "CHEMBL18597",
	"psilocybin": "CHEMBL9237",
	"dmt":        "CHEMBL1336",
	"mdma":       "CHEMBL1833",
	"cocaine":    "CHEMBL370847",
	"morphine":   "CHEMBL70",
	"caffeine":   "CHEMBL113",
	"nicotine":   "CHEMBL3",
	"thc":        "CHEMBL465",
	"ketamine":   "CHEMBL658",
}

// ChEMBL resolves molecules against the ChEMBL web services.
type ChEMBL struct {
	http *getter
}

func NewChEMBL(cfg Config) *ChEMBL {
	return &ChEMBL{http: newGetter(ChEMBLName, ChEMBLBaseURL, cfg)}
}

func (c *ChEMBL) Name() string { return ChEMBLName }

func (c *ChEMBL) Source() common.Source {
	return common.Source{Name: ChEMBLName, URL: ChEMBLSiteURL}
}

func (c *ChEMBL) Supports(kind common.Kind) bool { return kind == common.KindMolecule }

func (c *ChEMBL) Enrich(ctx context.Context, s Subject) (*enrichment.Data, error) {
	id := strings.ToUpper(s.Value("chembl_id"))
	if id == "" {
		if name := strings.ToLower(s.Value("name")); name != "" {
			id = knownChEMBL[name]
		}
	}
	if id != "" {
		var m chemblMolecule
		err := c.http.getJSON(ctx, "/molecule/"+url.PathEscape(id)+".json", nil, &m)
		if err == nil {
			return orNil(m.toData()), nil
		}
		if !isNoRecord(err) {
			return nil, err
		}
	}

	if key := s.Value("inchikey"); key != "" {
		m, err := c.first(ctx, "/molecule.json", url.Values{"molecule_structures__standard_inchi_key": {key}})
		if err != nil {
			return nil, err
		}
		if m != nil {
			return orNil(m.toData()), nil
		}
	}

	if name := s.Value("name"); name != "" {
		m, err := c.first(ctx, "/molecule/search.json", url.Values{"q": {name}})
		if err != nil {
			return nil, err
		}
		if m != nil {
			return orNil(m.toData()), nil
		}
	}
	return nil, nil
}

func (c *ChEMBL) first(ctx context.Context, path string, q url.Values) (*chemblMolecule, error) {
	q.Set("limit", "1")
	var resp struct {
		Molecules []chemblMolecule `json:"molecules"`
	}
	err := c.http.getJSON(ctx, path, q, &resp)
	if isNoRecord(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Molecules) == 0 {
		return nil, nil
	}
	return &resp.Molecules[0], nil
}

type chemblMolecule struct {
	ChEMBLID     string    `json:"molecule_chembl_id"`
	PrefName     string    `json:"pref_name"`
	MaxPhase     flexFloat `json:"max_phase"`
	MoleculeType string    `json:"molecule_type"`
	Properties   *struct {
		FullMWT     flexFloat `json:"full_mwt"`
		ALogP       flexFloat `json:"alogp"`
		PSA         flexFloat `json:"psa"`
		HBA         flexFloat `json:"hba"`
		HBD         flexFloat `json:"hbd"`
		RTB         flexFloat `json:"rtb"`
		FullFormula string    `json:"full_molformula"`
	} `json:"molecule_properties"`
	Structures *struct {
		CanonicalSMILES  string `json:"canonical_smiles"`
		StandardInChIKey string `json:"standard_inchi_key"`
	} `json:"molecule_structures"`
}

func (m *chemblMolecule) toData() *enrichment.Data {
	d := newData()
	setID(d, "chembl_id", m.ChEMBLID)
	set(d, "chembl_id", "ChEMBL ID", m.ChEMBLID)
	set(d, "preferred_name", "Preferred Name", m.PrefName)
	set(d, "molecule_type", "Molecule Type", m.MoleculeType)
	if p := m.MaxPhase.ptr(); p != nil {
		set(d, "max_phase", "Max Clinical Phase", int(*p))
	}
	if p := m.Properties; p != nil {
		set(d, "formula", "Molecular Formula", p.FullFormula)
		set(d, "molecular_weight", "Molecular Weight", p.FullMWT.ptr())
		set(d, "logp", "ALogP", p.ALogP.ptr())
		set(d, "polar_surface_area", "Polar Surface Area", p.PSA.ptr())
		set(d, "hbond_acceptors", "H-Bond Acceptors", p.HBA.intPtr())
		set(d, "hbond_donors", "H-Bond Donors", p.HBD.intPtr())
		set(d, "rotatable_bonds", "Rotatable Bonds", p.RTB.intPtr())
	}
	if st := m.Structures; st != nil {
		setID(d, "smiles", st.CanonicalSMILES)
		setID(d, "inchikey", st.StandardInChIKey)
		set(d, "smiles", "", st.CanonicalSMILES)
		set(d, "inchikey", "", st.StandardInChIKey)
	}
	return d
}

func (f flexFloat) intPtr() *int {
	if !f.valid {
		return nil
	}
	v := int(f.v)
	return &v
}
