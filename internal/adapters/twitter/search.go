package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// Twitter v2 recent search accepts max_results between 10 and 100
const (
	searchMinResults = 10
	searchMaxResults = 100
)

// SearchQuery represents a recent search request
type SearchQuery struct {
	Query      string
	SinceID    string
	MaxResults int
}

// Tweet represents a tweet returned by recent search
type Tweet struct {
	CreatedAt      time.Time
	ID             string
	AuthorID       string
	AuthorUsername string
	Text           string
	LikeCount      int
	RetweetCount   int
	ReplyCount     int
	QuoteCount     int
}

// SearchResult represents a recent search response
type SearchResult struct {
	NewestID string
	Tweets   []Tweet
}

// SearchRecent fetches recent tweets matching the query, newest first.
// SinceID restricts results to tweets posted after that ID.
func (c *Client) SearchRecent(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	params := url.Values{}
	params.Add("query", q.Query)
	params.Add("max_results", fmt.Sprintf("%d", clampResults(q.MaxResults)))
	params.Add("tweet.fields", "created_at,author_id,public_metrics")
	params.Add("expansions", "author_id")
	params.Add("user.fields", "username")
	if q.SinceID != "" {
		params.Add("since_id", q.SinceID)
	}

	reqURL := fmt.Sprintf("%s/tweets/search/recent?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.readClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyReadError(resp.StatusCode, body)
	}

	var result struct {
		Data []struct {
			ID            string    `json:"id"`
			Text          string    `json:"text"`
			AuthorID      string    `json:"author_id"`
			CreatedAt     time.Time `json:"created_at"`
			PublicMetrics struct {
				LikeCount    int `json:"like_count"`
				RetweetCount int `json:"retweet_count"`
				ReplyCount   int `json:"reply_count"`
				QuoteCount   int `json:"quote_count"`
			} `json:"public_metrics"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"users"`
		} `json:"includes"`
		Meta struct {
			NewestID    string `json:"newest_id"`
			ResultCount int    `json:"result_count"`
		} `json:"meta"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Map user IDs to usernames
	userMap := make(map[string]string)
	for _, user := range result.Includes.Users {
		userMap[user.ID] = user.Username
	}

	tweets := make([]Tweet, 0, len(result.Data))
	for _, tw := range result.Data {
		tweets = append(tweets, Tweet{
			ID:             tw.ID,
			AuthorID:       tw.AuthorID,
			AuthorUsername: userMap[tw.AuthorID],
			Text:           tw.Text,
			CreatedAt:      tw.CreatedAt,
			LikeCount:      tw.PublicMetrics.LikeCount,
			RetweetCount:   tw.PublicMetrics.RetweetCount,
			ReplyCount:     tw.PublicMetrics.ReplyCount,
			QuoteCount:     tw.PublicMetrics.QuoteCount,
		})
	}

	logger.Debug("fetched tweets from recent search",
		zap.Int("count", len(tweets)),
		zap.String("query", q.Query),
		zap.String("since_id", q.SinceID),
	)

	return &SearchResult{Tweets: tweets, NewestID: result.Meta.NewestID}, nil
}

func clampResults(n int) int {
	if n < searchMinResults {
		return searchMinResults
	}
	if n > searchMaxResults {
		return searchMaxResults
	}
	return n
}
