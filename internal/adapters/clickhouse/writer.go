package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/metrics"
)

// Repository handles ClickHouse data operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new ClickHouse repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertBatch inserts rows into a ClickHouse table inside one
// transaction, which the driver turns into a single batch insert
func (r *Repository) InsertBatch(ctx context.Context, tableName string, columns []string, values [][]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return fmt.Errorf("no columns for table %s", tableName)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range values {
		if len(row) != len(columns) {
			tx.Rollback()
			return fmt.Errorf("row %d has wrong column count: expected %d, got %d", i, len(columns), len(row))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("clickhouse batch insert successful",
		zap.String("table", tableName),
		zap.Int("rows", len(values)),
	)

	return nil
}

// Writer implements metrics.Writer on top of Repository
type Writer struct {
	repo *Repository
}

// NewWriter creates new metrics writer
func NewWriter(repo *Repository) *Writer {
	return &Writer{repo: repo}
}

// Write writes batch of metrics to ClickHouse
func (w *Writer) Write(ctx context.Context, tableName string, batch []metrics.Metric) error {
	if len(batch) == 0 {
		return nil
	}

	columns := batch[0].Columns()
	values := make([][]interface{}, len(batch))
	for i, m := range batch {
		values[i] = m.Values()
	}

	return w.repo.InsertBatch(ctx, tableName, columns, values)
}

// Close closes writer. The connection itself is managed by the caller.
func (w *Writer) Close() error {
	return nil
}
