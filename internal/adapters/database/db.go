package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// Driver names as registered with database/sql
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DB wraps an sqlx connection to either PostgreSQL or the embedded
// SQLite store
type DB struct {
	conn   *sqlx.DB
	driver string
}

// New creates new database connection. PostgreSQL is used when a DSN is
// configured, otherwise the embedded SQLite file store.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	driver := DriverSQLite
	dsn := cfg.SQLitePath + "?_journal_mode=WAL&_busy_timeout=5000&_loc=UTC"
	if cfg.UsePostgres() {
		driver = DriverPostgres
		dsn = cfg.URL
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Pool parameters only matter for the network backend
	if driver == DriverPostgres {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("driver", driver),
	)

	return &DB{conn: conn, driver: driver}, nil
}

// Close closes database connection
func (db *DB) Close() error {
	if db.conn != nil {
		logger.Info("closing database connection")
		return db.conn.Close()
	}
	return nil
}

// Conn returns underlying *sql.DB connection (for migrations)
func (db *DB) Conn() *sql.DB {
	return db.conn.DB
}

// DB returns the sqlx handle
func (db *DB) DB() *sqlx.DB {
	return db.conn
}

// Driver returns the database/sql driver name in use
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks if database is alive
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// BeginTxx starts a new sqlx transaction
func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Health checks database health
func (db *DB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
