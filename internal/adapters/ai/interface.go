package ai

import (
	"context"
	"time"
)

// Verdict represents the structured outcome of a single tweet analysis.
// Label fields are nil when the model omitted the key.
type Verdict struct {
	Significance *string
	Sentiment    *string
	Summary      *string

	// Raw holds the extracted JSON object exactly as the model returned it
	Raw string

	Model      string
	TokensUsed int
	Latency    time.Duration
}

// Provider represents LLM analysis provider interface
type Provider interface {
	// AnalyzeTweet classifies a tweet and returns significance, sentiment and summary
	AnalyzeTweet(ctx context.Context, text string) (*Verdict, error)

	// GetName returns provider name
	GetName() string

	// IsEnabled returns whether provider is configured and usable
	IsEnabled() bool
}
