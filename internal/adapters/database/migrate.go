package database

import (
	"fmt"
	"path"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// newMigrator builds a migrate instance for the active driver. Migration
// files live in per-dialect subdirectories of migrationsRoot.
func newMigrator(db *DB, migrationsRoot string) (*migrate.Migrate, error) {
	var (
		driver migratedb.Driver
		dir    string
		err    error
	)

	switch db.Driver() {
	case DriverPostgres:
		driver, err = postgres.WithInstance(db.Conn(), &postgres.Config{})
		dir = path.Join(migrationsRoot, "postgres")
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(db.Conn(), &sqlite3.Config{})
		dir = path.Join(migrationsRoot, "sqlite")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", db.Driver(), err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", dir),
		db.Driver(),
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

// RunMigrations executes all pending database migrations
func RunMigrations(db *DB, migrationsRoot string) error {
	logger.Info("running database migrations",
		zap.String("path", migrationsRoot),
		zap.String("driver", db.Driver()),
	)

	m, err := newMigrator(db, migrationsRoot)
	if err != nil {
		return err
	}

	// Get current version
	currentVersion, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		logger.Warn("database is in dirty state, attempting to force version",
			zap.Uint("version", currentVersion),
		)
		if err := m.Force(int(currentVersion)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	// Run migrations
	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Info("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	logger.Info("migrations completed successfully",
		zap.Uint("old_version", currentVersion),
		zap.Uint("new_version", newVersion),
	)

	return nil
}

// RollbackMigration rolls back the last applied migration
func RollbackMigration(db *DB, migrationsRoot string) error {
	logger.Info("rolling back last migration",
		zap.String("path", migrationsRoot),
	)

	m, err := newMigrator(db, migrationsRoot)
	if err != nil {
		return err
	}

	currentVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	logger.Info("migration rolled back successfully",
		zap.Uint("from_version", currentVersion),
		zap.Uint("to_version", currentVersion-1),
	)

	return nil
}
