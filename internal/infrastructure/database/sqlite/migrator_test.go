package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_AppliesAllVersions(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	version, dirty, err := MigrationStatus(db)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, RunMigrations(db))
	// Re-running is a no-op.
	require.NoError(t, RunMigrations(db))

	version, dirty, err = MigrationStatus(db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	assert.False(t, dirty)

	var name string
	require.NoError(t, db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_jobs_updated_at'`).Scan(&name))
	assert.Equal(t, "idx_jobs_updated_at", name)
}

func TestOpen_MigratesSchema(t *testing.T) {
	store := openTestStore(t, 0)

	version, dirty, err := MigrationStatus(store.db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	assert.False(t, dirty)
}
