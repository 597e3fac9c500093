package models

import "time"

// Sentiment labels emitted by the LLM analysis
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// Significance labels emitted by the LLM analysis
const (
	SignificanceHigh   = "High"
	SignificanceMedium = "Medium"
	SignificanceLow    = "Low"
)

// Analysis outcome statuses recorded by the analyzer
const (
	AnalysisAnalyzed = "analyzed"
	AnalysisFailed   = "analysis_failed"
	AnalysisTimeout  = "analysis_timeout"
)

// Sentiment source values; everything but SourceGroq marks some flavor of
// lexicon fallback or a terminal failure
const (
	SourceGroq                     = "groq"
	SourceFallbackNoSentiment      = "vader_fallback_groq_no_sentiment"
	SourceFallbackJSONError        = "vader_fallback_groq_json_error"
	SourceFallbackJSONDecodeError  = "vader_fallback_groq_json_decode_error"
	SourceFallbackAPIError         = "vader_fallback_groq_api_error"
	SourceFallbackNoClient         = "vader_fallback_no_groq_client"
	SourceFallbackSentimentMissing = "vader_fallback_groq_sentiment_missing"
	SourceUnavailable              = "unavailable"
)

// NewsTweet represents single fetched Bitcoin-related tweet with optional
// analysis fields filled in once processed
type NewsTweet struct {
	PublishedAt       time.Time  `json:"published_at" db:"published_at"`
	FetchedAt         time.Time  `json:"fetched_at" db:"fetched_at"`
	AuthorID          *string    `json:"author_id,omitempty" db:"author_id"`
	Metrics           *string    `json:"metrics,omitempty" db:"metrics"`
	SentimentScore    *float64   `json:"sentiment_score,omitempty" db:"sentiment_score"`
	SentimentLabel    *string    `json:"sentiment_label,omitempty" db:"sentiment_label"`
	SignificanceScore *float64   `json:"significance_score,omitempty" db:"significance_score"`
	SignificanceLabel *string    `json:"significance_label,omitempty" db:"significance_label"`
	Summary           *string    `json:"summary,omitempty" db:"summary"`
	SentimentSource   *string    `json:"sentiment_source,omitempty" db:"sentiment_source"`
	LLMAnalysis       *string    `json:"llm_analysis,omitempty" db:"llm_analysis"`
	ExternalTweetID   string     `json:"external_tweet_id" db:"external_tweet_id"`
	Text              string     `json:"text" db:"text"`
	Source            string     `json:"source" db:"source"`
	ID                int64      `json:"id" db:"id"`
	Processed         bool       `json:"processed" db:"processed"`
}

// TweetMetrics is the engagement snapshot stored as JSON on a NewsTweet
type TweetMetrics struct {
	AuthorUsername string `json:"author_username,omitempty"`
	LikeCount      int    `json:"like_count"`
	RetweetCount   int    `json:"retweet_count"`
	ReplyCount     int    `json:"reply_count"`
	QuoteCount     int    `json:"quote_count"`
}

// SentimentScoreFor maps a sentiment label to its numeric score.
// Unknown labels map to nil.
func SentimentScoreFor(label string) *float64 {
	var score float64
	switch label {
	case SentimentPositive:
		score = 0.7
	case SentimentNeutral:
		score = 0.0
	case SentimentNegative:
		score = -0.7
	default:
		return nil
	}
	return &score
}

// SignificanceScoreFor maps a significance label to its numeric score.
// Unknown labels map to nil.
func SignificanceScoreFor(label string) *float64 {
	var score float64
	switch label {
	case SignificanceHigh:
		score = 1.0
	case SignificanceMedium:
		score = 0.5
	case SignificanceLow:
		score = 0.1
	default:
		return nil
	}
	return &score
}
