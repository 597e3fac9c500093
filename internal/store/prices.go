package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// StoreLatestPrice appends a price observation and returns its row id
func (s *Store) StoreLatestPrice(ctx context.Context, price float64, source string) (int64, error) {
	if source == "" {
		source = "coingecko"
	}

	query := s.db.Rebind(`
		INSERT INTO prices (price, timestamp, source)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := s.db.QueryRowContext(ctx, query, price, time.Now().UTC(), source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to store price: %w", err)
	}

	return id, nil
}

// GetLatestPrice returns the newest price observation, or nil when the
// table is empty
func (s *Store) GetLatestPrice(ctx context.Context) (*models.Price, error) {
	query := `
		SELECT id, price, timestamp, source
		FROM prices
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var price models.Price
	err := s.db.GetContext(ctx, &price, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	return &price, nil
}

// GetPriceAt24hAgo returns the newest price recorded at least 24 hours
// ago, or nil when no such observation exists. Serves analytics reads;
// the publish cycle compares against the immediately previous price.
func (s *Store) GetPriceAt24hAgo(ctx context.Context) (*float64, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	query := s.db.Rebind(`
		SELECT price
		FROM prices
		WHERE timestamp <= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`)

	var price float64
	err := s.db.GetContext(ctx, &price, query, cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price at 24h ago: %w", err)
	}

	return &price, nil
}
