package store

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/database"
)

// Store provides typed persistence over PostgreSQL or the embedded
// SQLite backend. Queries are written with ? placeholders and rebound
// for the active driver.
type Store struct {
	db *sqlx.DB
}

// New creates new store on top of an open database connection
func New(db *database.DB) *Store {
	return &Store{db: db.DB()}
}

// IsUniqueViolation reports whether err is a unique constraint violation
// from either backend
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
