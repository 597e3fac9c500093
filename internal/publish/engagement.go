package publish

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/twitter"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// EngagementClient reads public engagement counters for a tweet
type EngagementClient interface {
	GetEngagement(ctx context.Context, tweetID string) (*twitter.Engagement, error)
}

// EngagementRefresher re-reads like and retweet counts for recent posts
type EngagementRefresher struct {
	store  *store.Store
	client EngagementClient
	limit  int
}

// NewEngagementRefresher creates new engagement refresher
func NewEngagementRefresher(st *store.Store, client EngagementClient, limit int) *EngagementRefresher {
	if limit <= 0 {
		limit = 10
	}

	return &EngagementRefresher{store: st, client: client, limit: limit}
}

// RefreshCycle updates counters for posts due a re-check. A rate limit
// ends the cycle quietly, the rest of the batch waits for the next tick.
func (r *EngagementRefresher) RefreshCycle(ctx context.Context) error {
	posts, err := r.store.GetPostsNeedingEngagementUpdate(ctx, r.limit)
	if err != nil {
		return fmt.Errorf("failed to load posts for engagement update: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	updated := 0
	for _, post := range posts {
		eng, err := r.client.GetEngagement(ctx, post.ExternalPostID)
		if err != nil {
			if twitter.IsRateLimited(err) {
				logger.Warn("engagement refresh rate limited, stopping cycle", zap.Error(err))
				break
			}
			logger.Warn("failed to fetch engagement",
				zap.String("tweet_id", post.ExternalPostID),
				zap.Error(err),
			)
			continue
		}

		if err := r.store.UpdatePostEngagement(ctx, post.ExternalPostID, eng.Likes, eng.Retweets); err != nil {
			logger.Warn("failed to store engagement",
				zap.String("tweet_id", post.ExternalPostID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	logger.Info("engagement refresh finished",
		zap.Int("checked", len(posts)),
		zap.Int("updated", updated),
	)

	return nil
}
