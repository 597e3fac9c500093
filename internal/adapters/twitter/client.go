package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

const twitterAPIURL = "https://api.twitter.com/2"

// Client talks to the Twitter v2 API. Posting uses OAuth 1.0a user
// context, reads use the app-only bearer token.
type Client struct {
	postClient  *http.Client
	readClient  *http.Client
	bearerToken string
	baseURL     string
}

// Engagement represents public metrics for a posted tweet
type Engagement struct {
	Likes    int
	Retweets int
}

// NewClient creates new Twitter client
func NewClient(cfg *config.TwitterConfig) *Client {
	c := &Client{
		readClient:  &http.Client{Timeout: 10 * time.Second},
		bearerToken: cfg.BearerToken,
		baseURL:     twitterAPIURL,
	}

	if cfg.HasUserContext() {
		oauthCfg := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
		token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
		c.postClient = oauthCfg.Client(oauth1.NoContext, token)
		c.postClient.Timeout = 10 * time.Second
	}

	return c
}

// GetName returns provider name
func (c *Client) GetName() string {
	return "twitter"
}

// CanPost reports whether user-context credentials are configured
func (c *Client) CanPost() bool {
	return c.postClient != nil
}

// PostTweet publishes text and returns the assigned tweet ID
func (c *Client) PostTweet(ctx context.Context, text string) (string, error) {
	if c.postClient == nil {
		return "", fmt.Errorf("twitter user-context credentials are not configured")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode tweet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.postClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", classifyPostError(resp.StatusCode, body)
	}

	var result struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("tweet ID missing from response: %s", string(body))
	}

	logger.Debug("tweet posted", zap.String("tweet_id", result.Data.ID))

	return result.Data.ID, nil
}

// GetEngagement returns current public metrics for a tweet. The
// app-only bearer token is preferred, the user-context client signs the
// request when no bearer token is configured.
func (c *Client) GetEngagement(ctx context.Context, tweetID string) (*Engagement, error) {
	url := fmt.Sprintf("%s/tweets/%s?tweet.fields=public_metrics", c.baseURL, tweetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpClient := c.readClient
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	} else if c.postClient != nil {
		httpClient = c.postClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, classifyReadError(resp.StatusCode, body)
	}

	var result struct {
		Data struct {
			PublicMetrics struct {
				LikeCount    int `json:"like_count"`
				RetweetCount int `json:"retweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Engagement{
		Likes:    result.Data.PublicMetrics.LikeCount,
		Retweets: result.Data.PublicMetrics.RetweetCount,
	}, nil
}

func classifyPostError(status int, body []byte) error {
	detail := string(body)

	switch {
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(detail), "duplicate"):
		return &Error{Kind: KindDuplicate, StatusCode: status, Detail: detail}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: status, Detail: detail}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, StatusCode: status, Detail: detail}
	default:
		return &Error{Kind: KindOther, StatusCode: status, Detail: detail}
	}
}

func classifyReadError(status int, body []byte) error {
	detail := string(body)

	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, StatusCode: status, Detail: detail}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: status, Detail: detail}
	default:
		return &Error{Kind: KindOther, StatusCode: status, Detail: detail}
	}
}
