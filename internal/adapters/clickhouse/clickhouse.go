package clickhouse

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"

	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS llm_call_metrics (
		timestamp    DateTime,
		provider     String,
		model        String,
		status       String,
		source       String,
		tweet_id     String,
		latency_ms   Int32,
		total_tokens Int32
	) ENGINE = MergeTree()
	ORDER BY timestamp`,

	`CREATE TABLE IF NOT EXISTS publish_metrics (
		timestamp    DateTime,
		job          String,
		content_type String,
		tweet_id     String,
		skip_reason  String,
		price        Float64,
		change_pct   Float64,
		duration_ms  Int32,
		posted       Bool
	) ENGINE = MergeTree()
	ORDER BY timestamp`,
}

// Connect opens a ClickHouse connection and verifies it with a ping
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("clickhouse ping failed: %w", err)
	}

	logger.Info("clickhouse connection established")

	return db, nil
}

// EnsureSchema creates the metric tables when they do not exist yet
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create metrics table: %w", err)
		}
	}
	return nil
}
