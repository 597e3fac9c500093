package store

import (
	"context"
	"fmt"
	"time"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// Engagement refresh policy: only posts from the last week are ever
// re-checked, and not more often than every six hours.
const (
	engagementWindow  = 7 * 24 * time.Hour
	engagementRecheck = 6 * time.Hour
)

// LogPost records a successfully published message and returns its row id
func (s *Store) LogPost(ctx context.Context, externalPostID, text string, price, changePct float64, contentType string) (int64, error) {
	query := s.db.Rebind(`
		INSERT INTO posts (external_post_id, text, timestamp, price, price_change_pct, content_type)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		externalPostID,
		text,
		time.Now().UTC(),
		price,
		changePct,
		contentType,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to log post: %w", err)
	}

	return id, nil
}

// HasPostedWithin reports whether any post exists newer than the given
// window. Used as the duplicate guard before publishing.
func (s *Store) HasPostedWithin(ctx context.Context, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)

	query := s.db.Rebind(`
		SELECT EXISTS (SELECT 1 FROM posts WHERE timestamp > ?)
	`)

	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, cutoff); err != nil {
		return false, fmt.Errorf("failed to check recent posts: %w", err)
	}

	return exists, nil
}

// GetRecentPosts returns the newest posts for the admin surface
func (s *Store) GetRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	query := s.db.Rebind(`
		SELECT id, external_post_id, text, timestamp, price, price_change_pct,
		       content_type, likes, retweets, engagement_last_checked
		FROM posts
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`)

	posts := make([]models.Post, 0)
	if err := s.db.SelectContext(ctx, &posts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent posts: %w", err)
	}

	return posts, nil
}

// GetPostsNeedingEngagementUpdate returns recent posts whose engagement
// counters were never fetched or have gone stale, newest first
func (s *Store) GetPostsNeedingEngagementUpdate(ctx context.Context, limit int) ([]models.Post, error) {
	now := time.Now().UTC()

	query := s.db.Rebind(`
		SELECT id, external_post_id, text, timestamp, price, price_change_pct,
		       content_type, likes, retweets, engagement_last_checked
		FROM posts
		WHERE timestamp > ?
		  AND (engagement_last_checked IS NULL OR engagement_last_checked < ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`)

	posts := make([]models.Post, 0)
	err := s.db.SelectContext(ctx, &posts, query,
		now.Add(-engagementWindow),
		now.Add(-engagementRecheck),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts needing engagement update: %w", err)
	}

	return posts, nil
}

// UpdatePostEngagement stores refreshed engagement counters for a post
func (s *Store) UpdatePostEngagement(ctx context.Context, externalPostID string, likes, retweets int) error {
	query := s.db.Rebind(`
		UPDATE posts
		SET likes = ?, retweets = ?, engagement_last_checked = ?
		WHERE external_post_id = ?
	`)

	_, err := s.db.ExecContext(ctx, query, likes, retweets, time.Now().UTC(), externalPostID)
	if err != nil {
		return fmt.Errorf("failed to update post engagement: %w", err)
	}

	return nil
}
