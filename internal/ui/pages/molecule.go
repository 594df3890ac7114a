package pages

import (
	"context"
	"fmt"
	"html/template"
	"strconv"

	"github.com/turtacn/HyperBlend/internal/ui/browser"
	"github.com/turtacn/HyperBlend/pkg/client"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// MigrateIDsAction is the name of the molecule ID migration action.
const MigrateIDsAction = "migrate-ids"

// moleculeAPI routes molecule traffic through the standardizing client.
type moleculeAPI struct {
	entityAPI[entity.Molecule]
	mc *client.MoleculesClient
}

func (a moleculeAPI) List(ctx context.Context, query string) ([]entity.Molecule, error) {
	return a.mc.List(ctx, query)
}

func (a moleculeAPI) Get(ctx context.Context, id string) (entity.Molecule, error) {
	key, err := client.LookupKey(id)
	if err != nil {
		return entity.Molecule{}, err
	}
	return a.mc.Get(ctx, key)
}

// Save creates or updates m. A new molecule given only an external
// identifier is first resolved through the lookup endpoint so the stored
// record carries the resolved name and structure, then upserted so an
// existing record with the same identifier is updated rather than duplicated.
func (a moleculeAPI) Save(ctx context.Context, m entity.Molecule) (entity.Molecule, error) {
	if m.ID == "" && m.Name == "" && m.SMILES == "" {
		if ident, ok := lookupIdentifier(m); ok {
			preview, err := a.mc.Preview(ctx, ident)
			if err != nil {
				return entity.Molecule{}, err
			}
			return a.mc.Upsert(ctx, mergeMolecule(m, preview))
		}
	}
	return a.mc.CreateOrUpdate(ctx, m)
}

func (a moleculeAPI) Enrich(ctx context.Context, id string, req enrichment.Request) (enrichment.Outcome, error) {
	return a.c.EnrichMolecule(ctx, id, req)
}

func lookupIdentifier(m entity.Molecule) (common.Identifier, bool) {
	switch {
	case m.PubChemCID != "":
		return common.Identifier{Type: "pubchem_cid", Value: m.PubChemCID}, true
	case m.InChIKey != "":
		return common.Identifier{Type: "inchikey", Value: m.InChIKey}, true
	case m.ChEMBLID != "":
		return common.Identifier{Type: "chembl_id", Value: m.ChEMBLID}, true
	}
	return common.Identifier{}, false
}

// mergeMolecule fills m's blank fields from src.
func mergeMolecule(m, src entity.Molecule) entity.Molecule {
	fill(&m.Name, src.Name)
	fill(&m.SMILES, src.SMILES)
	fill(&m.Formula, src.Formula)
	fill(&m.InChIKey, src.InChIKey)
	fill(&m.CASNumber, src.CASNumber)
	fill(&m.PubChemCID, src.PubChemCID)
	fill(&m.ChEMBLID, src.ChEMBLID)
	fill(&m.DrugBankID, src.DrugBankID)
	fill(&m.Description, src.Description)
	fillFloat(&m.MolecularWeight, src.MolecularWeight)
	fillFloat(&m.LogP, src.LogP)
	fillFloat(&m.PolarSurfaceArea, src.PolarSurfaceArea)
	fillInt(&m.HBondDonors, src.HBondDonors)
	fillInt(&m.HBondAcceptors, src.HBondAcceptors)
	fillInt(&m.RotatableBonds, src.RotatableBonds)
	return m
}

var moleculeForm = []browser.Field{
	{Name: "name", Label: "Name", Placeholder: "Psilocin", Identifying: true},
	{Name: "smiles", Label: "SMILES", Placeholder: "CN(C)CCc1c[nH]c2cccc(O)c12", Identifying: true},
	{Name: "pubchem_cid", Label: "PubChem CID", Placeholder: "4980", Identifying: true},
	{Name: "chembl_id", Label: "ChEMBL ID", Identifying: true},
	{Name: "inchikey", Label: "InChIKey", Identifying: true},
	{Name: "formula", Label: "Formula"},
	{Name: "molecular_weight", Label: "Molecular weight", Kind: browser.FieldNumber},
	{Name: "cas_number", Label: "CAS number"},
	{Name: "description", Label: "Description", Kind: browser.FieldTextarea},
}

func buildMolecule(v map[string]string, base entity.Molecule, _ bool) (entity.Molecule, error) {
	m := base
	set := func(dst *string, key string) {
		if s := v[key]; s != "" {
			*dst = s
		}
	}
	set(&m.Name, "name")
	set(&m.SMILES, "smiles")
	set(&m.PubChemCID, "pubchem_cid")
	set(&m.ChEMBLID, "chembl_id")
	set(&m.InChIKey, "inchikey")
	set(&m.Formula, "formula")
	set(&m.CASNumber, "cas_number")
	set(&m.Description, "description")
	if s := v["molecular_weight"]; s != "" {
		w, err := strconv.ParseFloat(s, 64)
		if err != nil || w <= 0 {
			return entity.Molecule{}, apperrors.Validation("molecular weight must be a positive number").WithDetail("value=" + s)
		}
		m.MolecularWeight = &w
	}
	return m, nil
}

func moleculeFormValues(m entity.Molecule) map[string]string {
	return map[string]string{
		"name":             m.Name,
		"smiles":           m.SMILES,
		"pubchem_cid":      m.PubChemCID,
		"chembl_id":        m.ChEMBLID,
		"inchikey":         m.InChIKey,
		"formula":          m.Formula,
		"molecular_weight": formatFloat(m.MolecularWeight),
		"cas_number":       m.CASNumber,
		"description":      m.Description,
	}
}

func applyMoleculeEnrichment(m entity.Molecule, res enrichment.Result) entity.Molecule {
	f := fieldsOf(res)
	fill(&m.Formula, f.str("formula", "molecular_formula"))
	fill(&m.SMILES, f.str("smiles", "canonical_smiles", "isomeric_smiles"))
	fill(&m.InChIKey, f.str("inchikey", "inchi_key"))
	fill(&m.PubChemCID, f.str("pubchem_cid", "cid"))
	fill(&m.ChEMBLID, f.str("chembl_id"))
	fill(&m.DrugBankID, f.str("drugbank_id"))
	fill(&m.CASNumber, f.str("cas_number", "cas"))
	fill(&m.Description, f.str("description"))
	fillFloat(&m.MolecularWeight, f.float("molecular_weight", "mw"))
	fillFloat(&m.LogP, f.float("logp", "xlogp"))
	fillFloat(&m.PolarSurfaceArea, f.float("polar_surface_area", "tpsa"))
	fillInt(&m.HBondDonors, f.int("hbond_donors", "h_bond_donor_count"))
	fillInt(&m.HBondAcceptors, f.int("hbond_acceptors", "h_bond_acceptor_count"))
	fillInt(&m.RotatableBonds, f.int("rotatable_bonds", "rotatable_bond_count"))
	m.Properties = mergeProperties(m.Properties, res)
	return m
}

// MoleculeConfig is the molecule page: structure image panel, chemistry
// fields and the ID migration action.
func MoleculeConfig(c *client.Client) browser.Config[entity.Molecule] {
	mc := c.Molecules()
	return browser.Config[entity.Molecule]{
		Kind:  common.KindMolecule,
		Title: "Molecules",
		API:   moleculeAPI{entityAPI: newEntityAPI(c, mc.EntityClient), mc: mc},
		RenderCard: func(m entity.Molecule) template.HTML {
			return render("molecule-card", m)
		},
		RenderDetail: func(m entity.Molecule) template.HTML {
			return render("molecule-detail", m)
		},
		Form:            moleculeForm,
		BuildItem:       buildMolecule,
		FormValues:      moleculeFormValues,
		Identifiers:     func(m entity.Molecule) []common.Identifier { return m.Identifiers() },
		ApplyEnrichment: applyMoleculeEnrichment,
		SearchText: func(m entity.Molecule) []string {
			return []string{m.Name, m.ID, m.OriginalID, m.SMILES, m.Formula, m.Description}
		},
		Actions: []browser.Action{{
			Name:  MigrateIDsAction,
			Label: "Migrate IDs",
			Run: func(ctx context.Context) (string, error) {
				res, err := mc.MigrateIDs(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Migrated %d of %d molecules to canonical IDs.", res.Migrated, res.Total), nil
			},
			Reload: true,
		}},
	}
}
