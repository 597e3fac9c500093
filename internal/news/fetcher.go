package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/twitter"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// SearchClient is the slice of the Twitter client the fetcher needs
type SearchClient interface {
	SearchRecent(ctx context.Context, q twitter.SearchQuery) (*twitter.SearchResult, error)
}

// Fetcher pulls recent Bitcoin tweets into the news table
type Fetcher struct {
	store      *store.Store
	client     SearchClient
	query      string
	maxResults int
}

// NewFetcher creates new news fetcher
func NewFetcher(st *store.Store, client SearchClient, query string, maxResults int) *Fetcher {
	return &Fetcher{
		store:      st,
		client:     client,
		query:      ensureEnglish(query),
		maxResults: maxResults,
	}
}

// ensureEnglish appends an English language filter unless the query
// already carries a lang operator
func ensureEnglish(query string) string {
	if strings.Contains(query, "lang:") {
		return query
	}
	return query + " lang:en"
}

// FetchCycle runs one search-and-store pass. The newest already stored
// tweet id is passed as since_id so each cycle only pulls new tweets.
// Rate limiting is logged and swallowed, the scheduler retries on the
// next tick.
func (f *Fetcher) FetchCycle(ctx context.Context) error {
	sinceID, err := f.store.GetLastFetchedExternalID(ctx)
	if err != nil {
		return fmt.Errorf("failed to load since_id: %w", err)
	}

	result, err := f.client.SearchRecent(ctx, twitter.SearchQuery{
		Query:      f.query,
		SinceID:    sinceID,
		MaxResults: f.maxResults,
	})
	if err != nil {
		if twitter.IsRateLimited(err) {
			logger.Warn("tweet search rate limited, skipping fetch cycle", zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to search tweets: %w", err)
	}

	stored := 0
	skipped := 0
	for _, tw := range result.Tweets {
		item, err := newsItemFromTweet(tw)
		if err != nil {
			logger.Warn("failed to build news item",
				zap.String("tweet_id", tw.ID),
				zap.Error(err),
			)
			continue
		}

		_, created, err := f.store.UpsertNewsItem(ctx, item)
		if err != nil {
			logger.Warn("failed to store news item",
				zap.String("tweet_id", tw.ID),
				zap.Error(err),
			)
			continue
		}

		if created {
			stored++
		} else {
			skipped++
		}
	}

	logger.Info("news fetch cycle finished",
		zap.Int("fetched", len(result.Tweets)),
		zap.Int("stored", stored),
		zap.Int("skipped", skipped),
		zap.String("since_id", sinceID),
	)

	return nil
}

func newsItemFromTweet(tw twitter.Tweet) (*models.NewsTweet, error) {
	metrics, err := json.Marshal(models.TweetMetrics{
		AuthorUsername: tw.AuthorUsername,
		LikeCount:      tw.LikeCount,
		RetweetCount:   tw.RetweetCount,
		ReplyCount:     tw.ReplyCount,
		QuoteCount:     tw.QuoteCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tweet metrics: %w", err)
	}

	metricsJSON := string(metrics)

	var authorID *string
	if tw.AuthorID != "" {
		authorID = &tw.AuthorID
	}

	return &models.NewsTweet{
		ExternalTweetID: tw.ID,
		AuthorID:        authorID,
		Text:            tw.Text,
		PublishedAt:     tw.CreatedAt,
		Metrics:         &metricsJSON,
		Source:          "twitter",
	}, nil
}
