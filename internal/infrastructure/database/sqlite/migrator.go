package sqlite

import (
	"database/sql"
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/HyperBlend/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// newMigrator binds the embedded migrations to db. The returned instance must
// not be closed: its database driver would close db with it.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading job store migrations")
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "preparing job store migrations")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "preparing job store migrations")
	}
	return m, nil
}

// RunMigrations applies all pending job store migrations to db.
func RunMigrations(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "running job store migrations")
	}
	return nil
}

// MigrationStatus reports the applied schema version and whether a previous
// migration failed halfway. An unmigrated database reports version 0.
func MigrationStatus(db *sql.DB) (version uint, dirty bool, err error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "reading job store schema version")
	}
	return version, dirty, nil
}
