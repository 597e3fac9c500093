package testdb

import (
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/database"
)

// migrationsRoot resolves the migrations directory relative to this file
// so tests work regardless of the package they run from
func migrationsRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// Setup creates a fully migrated embedded database in a temp directory.
// The connection is closed automatically when the test finishes.
func Setup(t *testing.T) *database.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		SQLitePath: filepath.Join(t.TempDir(), "btcbuzzbot_test.db"),
	}

	db, err := database.New(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.RunMigrations(db, migrationsRoot()); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	return db
}

// Exec executes SQL against the test database, failing the test on error
func Exec(t *testing.T, db *database.DB, query string, args ...interface{}) {
	t.Helper()

	if _, err := db.DB().Exec(query, args...); err != nil {
		t.Fatalf("failed to execute query: %v\nQuery: %s", err, query)
	}
}

// Count returns the row count of a table
func Count(t *testing.T, db *database.DB, table string) int {
	t.Helper()

	var count int
	if err := db.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}

	return count
}

// ClearContent empties the seeded quotes and jokes tables so tests can
// build exact fixtures
func ClearContent(t *testing.T, db *database.DB) {
	t.Helper()

	Exec(t, db, "DELETE FROM quotes")
	Exec(t, db, "DELETE FROM jokes")
}
