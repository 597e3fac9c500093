package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// contentTable maps a content kind to its table name. Kind strings come
// from code, never from user input, but the whitelist keeps table names
// out of formatted SQL everywhere else.
func contentTable(kind string) (string, error) {
	switch kind {
	case models.ContentKindQuote:
		return "quotes", nil
	case models.ContentKindJoke:
		return "jokes", nil
	default:
		return "", fmt.Errorf("unknown content kind %q", kind)
	}
}

// GetRandomContent selects one quote or joke, preferring the least used
// among items outside the reuse window, falling back to any random item.
// The selection and the used_count/last_used update happen in one
// transaction. Returns nil only when the table is empty.
func (s *Store) GetRandomContent(ctx context.Context, kind string, reuseWindow time.Duration) (*models.ContentItem, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := time.Now().UTC().Add(-reuseWindow)

	var item models.ContentItem
	query := tx.Rebind(fmt.Sprintf(`
		SELECT id, text, category, created_at, used_count, last_used
		FROM %s
		WHERE last_used IS NULL OR last_used < ?
		ORDER BY used_count ASC, RANDOM()
		LIMIT 1
	`, table))

	err = tx.GetContext(ctx, &item, query, cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		// Everything is inside the reuse window; fall back to any item
		query = fmt.Sprintf(`
			SELECT id, text, category, created_at, used_count, last_used
			FROM %s
			ORDER BY RANDOM()
			LIMIT 1
		`, table)
		err = tx.GetContext(ctx, &item, query)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", kind, err)
	}

	now := time.Now().UTC()
	update := tx.Rebind(fmt.Sprintf(`
		UPDATE %s
		SET used_count = used_count + 1, last_used = ?
		WHERE id = ?
	`, table))

	if _, err := tx.ExecContext(ctx, update, now, item.ID); err != nil {
		return nil, fmt.Errorf("failed to mark %s as used: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	item.UsedCount++
	item.LastUsed = &now

	return &item, nil
}

func (s *Store) addContent(ctx context.Context, kind, text, category string) (int64, error) {
	table, err := contentTable(kind)
	if err != nil {
		return 0, err
	}

	query := s.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (text, category, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`, table))

	var id int64
	err = s.db.QueryRowContext(ctx, query, text, category, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add %s: %w", kind, err)
	}

	return id, nil
}

func (s *Store) deleteContent(ctx context.Context, kind string, id int64) (bool, error) {
	table, err := contentTable(kind)
	if err != nil {
		return false, err
	}

	query := s.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table))

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return deleted > 0, nil
}

func (s *Store) listContent(ctx context.Context, kind string) ([]models.ContentItem, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, text, category, created_at, used_count, last_used
		FROM %s
		ORDER BY id ASC
	`, table)

	items := make([]models.ContentItem, 0)
	if err := s.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	return items, nil
}

// AddQuote inserts a curated quote
func (s *Store) AddQuote(ctx context.Context, text, category string) (int64, error) {
	if category == "" {
		category = "motivational"
	}
	return s.addContent(ctx, models.ContentKindQuote, text, category)
}

// AddJoke inserts a curated joke
func (s *Store) AddJoke(ctx context.Context, text, category string) (int64, error) {
	if category == "" {
		category = "humor"
	}
	return s.addContent(ctx, models.ContentKindJoke, text, category)
}

// DeleteQuote removes a quote; returns false when the id does not exist
func (s *Store) DeleteQuote(ctx context.Context, id int64) (bool, error) {
	return s.deleteContent(ctx, models.ContentKindQuote, id)
}

// DeleteJoke removes a joke; returns false when the id does not exist
func (s *Store) DeleteJoke(ctx context.Context, id int64) (bool, error) {
	return s.deleteContent(ctx, models.ContentKindJoke, id)
}

// ListQuotes returns all quotes
func (s *Store) ListQuotes(ctx context.Context) ([]models.ContentItem, error) {
	return s.listContent(ctx, models.ContentKindQuote)
}

// ListJokes returns all jokes
func (s *Store) ListJokes(ctx context.Context) ([]models.ContentItem, error) {
	return s.listContent(ctx, models.ContentKindJoke)
}
