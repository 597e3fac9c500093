package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const scheduleKey = "schedule"

// GetScheduleConfig returns the stored "HH:MM,HH:MM,…" schedule string,
// or "" when the row is absent
func (s *Store) GetScheduleConfig(ctx context.Context) (string, error) {
	query := s.db.Rebind(`SELECT value FROM scheduler_config WHERE key = ?`)

	var value string
	err := s.db.GetContext(ctx, &value, query, scheduleKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get schedule config: %w", err)
	}

	return value, nil
}

// SetScheduleConfig upserts the schedule string
func (s *Store) SetScheduleConfig(ctx context.Context, value string) error {
	query := s.db.Rebind(`
		INSERT INTO scheduler_config (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)

	_, err := s.db.ExecContext(ctx, query, scheduleKey, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set schedule config: %w", err)
	}

	return nil
}
