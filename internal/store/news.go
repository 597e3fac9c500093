package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

const newsColumns = `
	id, external_tweet_id, author_id, text, published_at, fetched_at,
	metrics, source, processed, sentiment_score, sentiment_label,
	significance_score, significance_label, summary, sentiment_source,
	llm_analysis
`

// NewsAnalysis carries the fields written back by the analyzer for a
// successfully analyzed tweet. Numeric scores are derived from the
// labels inside UpdateNewsAnalysis.
type NewsAnalysis struct {
	SentimentLabel    *string
	SignificanceLabel *string
	Summary           *string
	RawResponse       *string
	SentimentSource   string
}

// UpsertNewsItem inserts a fetched tweet, silently skipping duplicates on
// external_tweet_id. Returns the row id and whether a new row was created.
func (s *Store) UpsertNewsItem(ctx context.Context, item *models.NewsTweet) (int64, bool, error) {
	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	source := item.Source
	if source == "" {
		source = "twitter"
	}

	query := s.db.Rebind(`
		INSERT INTO news_tweets (external_tweet_id, author_id, text, published_at, fetched_at, metrics, source, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_tweet_id) DO NOTHING
		RETURNING id
	`)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		item.ExternalTweetID,
		item.AuthorID,
		item.Text,
		item.PublishedAt.UTC(),
		fetchedAt,
		item.Metrics,
		source,
		false,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows) || IsUniqueViolation(err):
		// Conflict: the row already exists
		lookup := s.db.Rebind(`SELECT id FROM news_tweets WHERE external_tweet_id = ?`)
		if err := s.db.GetContext(ctx, &id, lookup, item.ExternalTweetID); err != nil {
			return 0, false, fmt.Errorf("failed to load existing news row: %w", err)
		}
		return id, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to upsert news item: %w", err)
	}

	return id, true, nil
}

// GetLastFetchedExternalID returns the numerically greatest stored tweet
// id, used as since_id on the next search. Tweet ids are decimal strings,
// so length-then-lexicographic ordering gives numeric order.
func (s *Store) GetLastFetchedExternalID(ctx context.Context) (string, error) {
	query := `
		SELECT external_tweet_id
		FROM news_tweets
		ORDER BY LENGTH(external_tweet_id) DESC, external_tweet_id DESC
		LIMIT 1
	`

	var id string
	err := s.db.GetContext(ctx, &id, query)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last fetched tweet id: %w", err)
	}

	return id, nil
}

// GetUnprocessedNews returns tweets awaiting analysis, newest fetch first
func (s *Store) GetUnprocessedNews(ctx context.Context, limit int) ([]models.NewsTweet, error) {
	query := s.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM news_tweets
		WHERE processed = ? OR processed IS NULL
		ORDER BY fetched_at DESC
		LIMIT ?
	`, newsColumns))

	items := make([]models.NewsTweet, 0)
	if err := s.db.SelectContext(ctx, &items, query, false, limit); err != nil {
		return nil, fmt.Errorf("failed to get unprocessed news: %w", err)
	}

	return items, nil
}

// GetRecentAnalyzedNews returns analyzed tweets published within the last
// N hours, most significant first
func (s *Store) GetRecentAnalyzedNews(ctx context.Context, hours int) ([]models.NewsTweet, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	query := s.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM news_tweets
		WHERE processed = ? AND significance_score IS NOT NULL AND published_at >= ?
		ORDER BY significance_score DESC, published_at DESC
	`, newsColumns))

	items := make([]models.NewsTweet, 0)
	if err := s.db.SelectContext(ctx, &items, query, true, cutoff); err != nil {
		return nil, fmt.Errorf("failed to get recent analyzed news: %w", err)
	}

	return items, nil
}

// UpdateNewsAnalysis marks a tweet processed and stores the analysis
// outcome. For AnalysisFailed and AnalysisTimeout only sentiment_source
// is set, to the status itself. Returns false when no row matched.
func (s *Store) UpdateNewsAnalysis(ctx context.Context, externalTweetID, status string, data *NewsAnalysis) (bool, error) {
	var (
		query string
		args  []interface{}
	)

	switch status {
	case models.AnalysisAnalyzed:
		if data == nil {
			return false, fmt.Errorf("analysis data required for status %q", status)
		}

		var sentimentScore, significanceScore *float64
		if data.SentimentLabel != nil {
			sentimentScore = models.SentimentScoreFor(*data.SentimentLabel)
		}
		if data.SignificanceLabel != nil {
			significanceScore = models.SignificanceScoreFor(*data.SignificanceLabel)
		}

		query = `
			UPDATE news_tweets
			SET processed = ?, sentiment_label = ?, sentiment_score = ?,
			    significance_label = ?, significance_score = ?, summary = ?,
			    sentiment_source = ?, llm_analysis = ?
			WHERE external_tweet_id = ?
		`
		args = []interface{}{
			true,
			data.SentimentLabel,
			sentimentScore,
			data.SignificanceLabel,
			significanceScore,
			data.Summary,
			data.SentimentSource,
			data.RawResponse,
			externalTweetID,
		}

	case models.AnalysisFailed, models.AnalysisTimeout:
		query = `
			UPDATE news_tweets
			SET processed = ?, sentiment_source = ?
			WHERE external_tweet_id = ?
		`
		args = []interface{}{true, status, externalTweetID}

	default:
		return false, fmt.Errorf("unknown analysis status %q", status)
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update news analysis: %w", err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return updated > 0, nil
}
