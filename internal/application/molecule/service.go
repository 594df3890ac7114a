// Package molecule provides the molecule-specific use cases that sit beside
// the generic catalog: identifier previews, create-or-update from an
// external record and structure images.
package molecule

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/HyperBlend/internal/application/catalog"
	"github.com/turtacn/HyperBlend/internal/application/enrich"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/infrastructure/providers"
	"github.com/turtacn/HyperBlend/internal/infrastructure/storage/minio"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// Previewer resolves one external identifier. *providers.PubChem
// implements it.
type Previewer interface {
	Lookup(ctx context.Context, idType, value string) (*enrichment.Data, error)
}

// StructureFetcher downloads a structure depiction by PubChem CID.
type StructureFetcher interface {
	Structure(ctx context.Context, cid string) ([]byte, string, error)
}

// Service defines the molecule use cases.
type Service interface {
	Lookup(ctx context.Context, idType, value string) (entity.Molecule, error)
	CreateOrUpdate(ctx context.Context, m entity.Molecule) (entity.Molecule, bool, error)
	Structure(ctx context.Context, id string) (*minio.Image, error)
}

// matchFields are tried in order when looking for an existing molecule.
var matchFields = []string{"pubchem_cid", "inchikey", "chembl_id", "drugbank_id", "cas_number", "name"}

type serviceImpl struct {
	molecules catalog.Service[entity.Molecule]
	preview   Previewer
	images    StructureFetcher
	store     minio.StructureStore
	logger    logging.Logger
}

// NewService creates the molecule service. store may be nil, in which case
// structure images are fetched on every request.
func NewService(molecules catalog.Service[entity.Molecule], preview Previewer, images StructureFetcher, store minio.StructureStore, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		molecules: molecules,
		preview:   preview,
		images:    images,
		store:     store,
		logger:    logger.Named("molecule"),
	}
}

func (s *serviceImpl) Lookup(ctx context.Context, idType, value string) (entity.Molecule, error) {
	idType = providers.NormalizeIdentifierType(idType)
	value = strings.TrimSpace(value)
	if idType == "" || value == "" {
		return entity.Molecule{}, errors.InvalidParam("identifier type and value are required")
	}
	data, err := s.preview.Lookup(ctx, idType, value)
	if err != nil {
		return entity.Molecule{}, err
	}
	if data == nil {
		return entity.Molecule{}, errors.Newf(errors.ErrCodeMoleculeNotFound, "no compound found for %s %q", idType, value)
	}

	var tmpl entity.Molecule
	if idType == "name" {
		tmpl.Name = value
	} else if name, ok := data.Properties["iupac_name"].(string); ok {
		tmpl.Name = name
	}
	m, _, err := enrich.Apply(tmpl, *data)
	if err != nil {
		return entity.Molecule{}, err
	}
	return m, nil
}

// CreateOrUpdate updates the molecule sharing an identifier with m, or
// creates m when none does. created reports which happened.
func (s *serviceImpl) CreateOrUpdate(ctx context.Context, m entity.Molecule) (entity.Molecule, bool, error) {
	if m.ID != "" {
		if _, err := s.molecules.Get(ctx, m.ID); err == nil {
			out, err := s.molecules.Update(ctx, m.ID, m)
			return out, false, err
		} else if !errors.IsNotFound(err) {
			return entity.Molecule{}, false, err
		}
	}

	existing, err := s.findExisting(ctx, m)
	if err != nil {
		return entity.Molecule{}, false, err
	}
	if existing != nil {
		m.ID = ""
		out, err := s.molecules.Update(ctx, existing.ID, m)
		if err != nil {
			return entity.Molecule{}, false, err
		}
		s.logger.Info("molecule matched existing record", logging.EntityID(out.ID))
		return out, false, nil
	}

	out, err := s.molecules.Create(ctx, m)
	if err != nil {
		return entity.Molecule{}, false, err
	}
	return out, true, nil
}

func (s *serviceImpl) findExisting(ctx context.Context, m entity.Molecule) (*entity.Molecule, error) {
	values := map[string]string{
		"pubchem_cid": m.PubChemCID,
		"inchikey":    m.InChIKey,
		"chembl_id":   m.ChEMBLID,
		"drugbank_id": m.DrugBankID,
		"cas_number":  m.CASNumber,
		"name":        m.Name,
	}
	for _, field := range matchFields {
		v := strings.TrimSpace(values[field])
		if v == "" {
			continue
		}
		found, err := s.molecules.FindByIdentifier(ctx, field, v)
		if err == nil {
			return &found, nil
		}
		if !errors.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

// Structure returns the PNG depiction for the molecule, serving it from the
// object store when cached.
func (s *serviceImpl) Structure(ctx context.Context, id string) (*minio.Image, error) {
	m, err := s.molecules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cid := strings.TrimSpace(m.PubChemCID)
	if cid == "" {
		return nil, errors.Newf(errors.ErrCodeNotFound, "molecule %s has no PubChem CID", m.ID)
	}

	if s.store != nil {
		img, err := s.store.Get(ctx, cid)
		if err == nil {
			return img, nil
		}
		if !errors.IsNotFound(err) {
			s.logger.Warn("structure cache read failed", logging.String("cid", cid), logging.Err(err))
		}
	}

	data, ctype, err := s.images.Structure(ctx, cid)
	if err != nil {
		return nil, err
	}
	img := &minio.Image{Data: data, ContentType: ctype, StoredAt: time.Now().UTC()}
	if s.store != nil {
		if err := s.store.Put(ctx, cid, img); err != nil {
			s.logger.Warn("structure cache write failed", logging.String("cid", cid), logging.Err(err))
		}
	}
	return img, nil
}
