package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

const coingeckoAPIURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient implements Provider using the CoinGecko simple price API
type CoinGeckoClient struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	retryLimit int
}

// NewCoinGeckoClient creates new CoinGecko price client
func NewCoinGeckoClient(cfg *config.CoinGeckoConfig) *CoinGeckoClient {
	return &CoinGeckoClient{
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    coingeckoAPIURL,
		apiKey:     cfg.APIKey,
		retryLimit: cfg.RetryLimit,
	}
}

// GetName returns provider name
func (cg *CoinGeckoClient) GetName() string {
	return "coingecko"
}

// GetBTCPrice returns current BTC/USD price with 24h change. Transport
// errors and 429 responses are retried with exponential backoff; any
// other failure aborts the call.
func (cg *CoinGeckoClient) GetBTCPrice(ctx context.Context) (*Quote, error) {
	var lastErr error

	for attempt := 0; attempt < cg.retryLimit; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s, 8s
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			logger.Debug("retrying coingecko request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", cg.retryLimit),
				zap.Duration("backoff", backoff),
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &Error{
					Kind: KindTransport,
					Err:  fmt.Errorf("context canceled during retry backoff: %w", ctx.Err()),
				}
			}
		}

		quote, err := cg.fetch(ctx)
		if err == nil {
			return quote, nil
		}

		lastErr = err

		if !retryable(err) {
			logger.Warn("non-retryable coingecko error, aborting", zap.Error(err))
			return nil, err
		}

		logger.Warn("retryable coingecko error encountered",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", cg.retryLimit, lastErr)
}

func (cg *CoinGeckoClient) fetch(ctx context.Context) (*Quote, error) {
	url := fmt.Sprintf("%s/simple/price?ids=bitcoin&vs_currencies=usd&include_24hr_change=true", cg.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if cg.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", cg.apiKey)
	}

	resp, err := cg.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindRateLimited, Err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &Error{Kind: KindProvider, Err: fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))}
	}

	var result map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	data, ok := result["bitcoin"]
	if !ok {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("bitcoin price missing from response")}
	}

	return &Quote{USD: data.USD, Change24h: data.Change24h}, nil
}
