package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// newMigrate returns a migrate instance for the store's driver. It must not be
// closed, as closing it would close the store's connection too.
func (s *SQLStore) newMigrate() (*migrate.Migrate, error) {
	if s.db == nil {
		return nil, errors.New("store is not connected")
	}

	src, err := iofs.New(migrations, "migrations/"+s.driver)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case Postgres:
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	case SQLite:
		driver, err = sqlite3.WithInstance(s.db.DB, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported driver %q", s.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", src, s.driver, driver)
}

// Migrate runs all pending migrations and returns the resulting schema version.
func (s *SQLStore) Migrate() (uint, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, nil
}

// MigrateDown rolls back the last migration.
func (s *SQLStore) MigrateDown() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	return nil
}
