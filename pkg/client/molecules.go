package client

import (
	"context"
	"net/url"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// MoleculesClient adds ID standardisation and molecule-only endpoints to the
// generic entity client.
type MoleculesClient struct {
	*EntityClient[entity.Molecule]
}

// MigrationResult is the POST /molecules/migrate_ids payload.
type MigrationResult struct {
	Migrated int `json:"migrated"`
	Total    int `json:"total"`
}

// List returns every molecule with a canonical ID.
func (mc *MoleculesClient) List(ctx context.Context, query string) ([]entity.Molecule, error) {
	items, err := mc.EntityClient.List(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = EnsureStandardized(items[i])
	}
	return items, nil
}

// Get fetches a molecule by its canonical ID, falling back to the raw ID when
// the canonical one is unknown to the server.
func (mc *MoleculesClient) Get(ctx context.Context, id string) (entity.Molecule, error) {
	m, err := mc.EntityClient.GetWithFallback(ctx, StandardizeMoleculeID(id), id)
	if err != nil {
		return entity.Molecule{}, err
	}
	return EnsureStandardized(m), nil
}

// GetWithFallback tries each candidate after standardising it, then the raw
// values.
func (mc *MoleculesClient) GetWithFallback(ctx context.Context, ids ...string) (entity.Molecule, error) {
	candidates := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		candidates = append(candidates, StandardizeMoleculeID(id))
	}
	candidates = append(candidates, ids...)
	m, err := mc.EntityClient.GetWithFallback(ctx, candidates...)
	if err != nil {
		return entity.Molecule{}, err
	}
	return EnsureStandardized(m), nil
}

// Create stores a new molecule.
func (mc *MoleculesClient) Create(ctx context.Context, m entity.Molecule) (entity.Molecule, error) {
	out, err := mc.EntityClient.Create(ctx, m)
	if err != nil {
		return entity.Molecule{}, err
	}
	return EnsureStandardized(out), nil
}

// Update replaces a molecule. The ID is standardised before the call.
func (mc *MoleculesClient) Update(ctx context.Context, id string, m entity.Molecule) (entity.Molecule, error) {
	out, err := mc.EntityClient.Update(ctx, StandardizeMoleculeID(id), m)
	if err != nil {
		return entity.Molecule{}, err
	}
	return EnsureStandardized(out), nil
}

// CreateOrUpdate updates m when it carries an ID and creates it otherwise.
func (mc *MoleculesClient) CreateOrUpdate(ctx context.Context, m entity.Molecule) (entity.Molecule, error) {
	if m.ID == "" {
		return mc.Create(ctx, m)
	}
	return mc.Update(ctx, m.ID, m)
}

// Upsert sends m to POST /molecules/create_or_update. The server updates the
// record whose ID or external identifier matches m and creates one otherwise.
func (mc *MoleculesClient) Upsert(ctx context.Context, m entity.Molecule) (entity.Molecule, error) {
	var out entity.Molecule
	if err := mc.c.post(ctx, "/molecules/create_or_update", m, &out); err != nil {
		return entity.Molecule{}, err
	}
	return EnsureStandardized(out), nil
}

// Preview resolves an external identifier to a molecule template without
// storing anything.
func (mc *MoleculesClient) Preview(ctx context.Context, ident common.Identifier) (entity.Molecule, error) {
	if ident.Type == "" || ident.Value == "" {
		return entity.Molecule{}, apperrors.InvalidParam("identifier type and value are required")
	}
	q := url.Values{"type": {ident.Type}, "value": {ident.Value}}
	var m entity.Molecule
	if err := mc.c.get(ctx, "/molecules/lookup", q, &m); err != nil {
		return entity.Molecule{}, err
	}
	return m, nil
}

// MigrateIDs asks the server to rewrite every stored molecule ID into the
// canonical form.
func (mc *MoleculesClient) MigrateIDs(ctx context.Context) (MigrationResult, error) {
	var res MigrationResult
	if err := mc.c.post(ctx, "/molecules/migrate_ids", struct{}{}, &res); err != nil {
		return MigrationResult{}, err
	}
	return res, nil
}
