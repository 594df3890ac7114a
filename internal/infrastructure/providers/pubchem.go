package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

const (
	PubChemName    = "PubChem"
	PubChemBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	PubChemSiteURL = "https://pubchem.ncbi.nlm.nih.gov/"

	pubchemProperties = "MolecularFormula,MolecularWeight,CanonicalSMILES,InChIKey,IUPACName,XLogP,TPSA,HBondDonorCount,HBondAcceptorCount,RotatableBondCount"
)

// PubChem resolves molecules through the PUG REST property endpoint.
type PubChem struct {
	http *getter
}

func NewPubChem(cfg Config) *PubChem {
	return &PubChem{http: newGetter(PubChemName, PubChemBaseURL, cfg)}
}

func (p *PubChem) Name() string { return PubChemName }

func (p *PubChem) Source() common.Source {
	return common.Source{Name: PubChemName, URL: PubChemSiteURL}
}

func (p *PubChem) Supports(kind common.Kind) bool { return kind == common.KindMolecule }

// Enrich looks the molecule up by CID, InChIKey, SMILES or name, in that
// order of preference.
func (p *PubChem) Enrich(ctx context.Context, s Subject) (*enrichment.Data, error) {
	for _, ns := range []string{"pubchem_cid", "inchikey", "smiles", "name"} {
		v := s.Value(ns)
		if v == "" {
			continue
		}
		rec, err := p.properties(ctx, ns, v)
		if isNoRecord(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return orNil(rec.toData()), nil
		}
	}
	return nil, nil
}

// Lookup resolves a single identifier without an entity, for previews.
func (p *PubChem) Lookup(ctx context.Context, idType, value string) (*enrichment.Data, error) {
	return p.Enrich(ctx, Subject{
		Kind:        common.KindMolecule,
		Identifiers: []common.Identifier{{Type: idType, Value: value}},
	})
}

// Structure fetches the 2D depiction for cid.
func (p *PubChem) Structure(ctx context.Context, cid string) ([]byte, string, error) {
	if _, err := strconv.Atoi(cid); err != nil {
		return nil, "", errors.Newf(errors.ErrCodeValidation, "invalid PubChem CID %q", cid)
	}
	body, ctype, err := p.http.get(ctx, "/compound/cid/"+cid+"/PNG", nil, "image/png")
	if isNoRecord(err) {
		return nil, "", errors.Newf(errors.ErrCodeNotFound, "no structure image for CID %s", cid)
	}
	if err != nil {
		return nil, "", err
	}
	if ctype == "" {
		ctype = "image/png"
	}
	return body, ctype, nil
}

func (p *PubChem) properties(ctx context.Context, ns, value string) (*pubchemRecord, error) {
	var (
		path  string
		query url.Values
	)
	switch ns {
	case "pubchem_cid":
		if _, err := strconv.Atoi(value); err != nil {
			return nil, errNoRecord
		}
		path = "/compound/cid/" + value
	case "inchikey":
		path = "/compound/inchikey/" + url.PathEscape(value)
	case "smiles":
		path = "/compound/smiles"
		query = url.Values{"smiles": {value}}
	default:
		path = "/compound/name/" + url.PathEscape(value)
	}
	path += "/property/" + pubchemProperties + "/JSON"

	var resp struct {
		PropertyTable struct {
			Properties []pubchemRecord `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if err := p.http.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.PropertyTable.Properties) == 0 {
		return nil, nil
	}
	return &resp.PropertyTable.Properties[0], nil
}

type pubchemRecord struct {
	CID                int       `json:"CID"`
	MolecularFormula   string    `json:"MolecularFormula"`
	MolecularWeight    flexFloat `json:"MolecularWeight"`
	CanonicalSMILES    string    `json:"CanonicalSMILES"`
	ConnectivitySMILES string    `json:"ConnectivitySMILES"`
	InChIKey           string    `json:"InChIKey"`
	IUPACName          string    `json:"IUPACName"`
	XLogP              *float64  `json:"XLogP"`
	TPSA               *float64  `json:"TPSA"`
	HBondDonorCount    *int      `json:"HBondDonorCount"`
	HBondAcceptorCount *int      `json:"HBondAcceptorCount"`
	RotatableBondCount *int      `json:"RotatableBondCount"`
}

func (r *pubchemRecord) toData() *enrichment.Data {
	d := newData()
	smiles := r.CanonicalSMILES
	if smiles == "" {
		smiles = r.ConnectivitySMILES
	}
	if r.CID > 0 {
		cid := strconv.Itoa(r.CID)
		setID(d, "pubchem_cid", cid)
		set(d, "pubchem_cid", "PubChem CID", cid)
	}
	setID(d, "inchikey", r.InChIKey)
	setID(d, "smiles", smiles)

	set(d, "formula", "Molecular Formula", r.MolecularFormula)
	set(d, "molecular_weight", "Molecular Weight", r.MolecularWeight.ptr())
	set(d, "iupac_name", "IUPAC Name", r.IUPACName)
	set(d, "smiles", "", smiles)
	set(d, "inchikey", "", r.InChIKey)
	set(d, "logp", "XLogP", r.XLogP)
	set(d, "polar_surface_area", "Topological Polar Surface Area", r.TPSA)
	set(d, "hbond_donors", "H-Bond Donors", r.HBondDonorCount)
	set(d, "hbond_acceptors", "H-Bond Acceptors", r.HBondAcceptorCount)
	set(d, "rotatable_bonds", "Rotatable Bonds", r.RotatableBondCount)
	return d
}

// flexFloat decodes a JSON number or numeric string; PubChem sends
// MolecularWeight as a string.
type flexFloat struct {
	v     float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		f.v, f.valid = v, true
		return nil
	}
	if err := json.Unmarshal(b, &f.v); err != nil {
		return err
	}
	f.valid = true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.v
	return &v
}
