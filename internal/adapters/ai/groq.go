package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider implements Provider against Groq's OpenAI-compatible API
type GroqProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	enabled     bool
}

// NewGroqProvider creates new Groq provider. Without an API key the
// provider is disabled and callers fall back to lexicon scoring.
func NewGroqProvider(cfg *config.GroqConfig) *GroqProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = groqBaseURL

	return &GroqProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		enabled:     cfg.APIKey != "",
	}
}

func (g *GroqProvider) GetName() string {
	return "groq"
}

func (g *GroqProvider) IsEnabled() bool {
	return g.enabled
}

// AnalyzeTweet sends the tweet to the model and parses the returned JSON
// verdict. Parse failures are reported via ErrNoJSON and ErrBadJSON.
func (g *GroqProvider) AnalyzeTweet(ctx context.Context, text string) (*Verdict, error) {
	if !g.enabled {
		return nil, fmt.Errorf("groq provider is not configured")
	}

	startTime := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisPrompt(text)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("groq request failed: %w", err)
	}

	latency := time.Since(startTime)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content

	logger.Debug("groq response",
		zap.Duration("latency", latency),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("response", content),
	)

	verdict, err := ParseVerdict(content)
	if err != nil {
		return nil, err
	}

	verdict.Model = g.model
	verdict.TokensUsed = resp.Usage.TotalTokens
	verdict.Latency = latency

	return verdict, nil
}
