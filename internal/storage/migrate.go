package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// baseSchemaVersion creates the logs table. Later versions may reference
// user_email, so the owner column is reconciled before they run.
const baseSchemaVersion = 1

// Initialize brings the schema up to date. It is idempotent and also
// upgrades a logs table created before rows carried an owner.
func (s *Store) Initialize(ctx context.Context) error {
	m, err := s.newMigrator()
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		version = 0
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		return fmt.Errorf("%w: version %d", ErrDirtySchema, version)
	}

	if version < baseSchemaVersion {
		if err := m.Migrate(baseSchemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply base schema: %w", err)
		}
	}

	if err := s.ensureOwnerColumn(ctx); err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Schema initialized", "driver", s.dialect.name)
	return nil
}

// newMigrator uses a separate connection because closing the migrate
// instance closes its database handle.
func (s *Store) newMigrator() (*migrate.Migrate, error) {
	migrateDB, err := s.dialect.open(s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	var driver database.Driver
	switch s.dialect.name {
	case DriverPostgres:
		driver, err = postgres.WithInstance(migrateDB, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	}
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create %s migration driver: %w", s.dialect.name, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+s.dialect.name)
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.name, driver)
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// ensureOwnerColumn adds user_email to a logs table that lacks it. Existing
// rows take the placeholder owner through the column default.
func (s *Store) ensureOwnerColumn(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.ownerCheck).Scan(&n); err != nil {
		return fmt.Errorf("inspect logs columns: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.ownerAddStmt); err != nil {
		return fmt.Errorf("add user_email column: %w", err)
	}
	slog.InfoContext(ctx, "Added owner column to legacy logs table", "driver", s.dialect.name)
	return nil
}
