package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// LogBotStatus appends a lifecycle log entry
func (s *Store) LogBotStatus(ctx context.Context, status, message string, nextRun *time.Time) error {
	query := s.db.Rebind(`
		INSERT INTO bot_status (timestamp, status, next_scheduled_run, message)
		VALUES (?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), status, nextRun, message)
	if err != nil {
		return fmt.Errorf("failed to log bot status: %w", err)
	}

	return nil
}

// GetLatestStatus returns the newest lifecycle entry, or nil when none exist
func (s *Store) GetLatestStatus(ctx context.Context) (*models.BotStatus, error) {
	query := `
		SELECT id, timestamp, status, next_scheduled_run, message
		FROM bot_status
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var status models.BotStatus
	err := s.db.GetContext(ctx, &status, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest status: %w", err)
	}

	return &status, nil
}

// GetRecentStatuses returns the newest lifecycle entries for the admin surface
func (s *Store) GetRecentStatuses(ctx context.Context, limit int) ([]models.BotStatus, error) {
	query := s.db.Rebind(`
		SELECT id, timestamp, status, next_scheduled_run, message
		FROM bot_status
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`)

	statuses := make([]models.BotStatus, 0)
	if err := s.db.SelectContext(ctx, &statuses, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent statuses: %w", err)
	}

	return statuses, nil
}
