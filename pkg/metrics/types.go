package metrics

import "time"

// LLMCallMetric records one model call in the news analysis pipeline
type LLMCallMetric struct {
	Timestamp   time.Time
	Provider    string
	Model       string
	Status      string
	Source      string
	TweetID     string
	LatencyMs   int
	TotalTokens int
}

func (m *LLMCallMetric) TableName() string {
	return "llm_call_metrics"
}

func (m *LLMCallMetric) Columns() []string {
	return []string{
		"timestamp",
		"provider",
		"model",
		"status",
		"source",
		"tweet_id",
		"latency_ms",
		"total_tokens",
	}
}

func (m *LLMCallMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Provider,
		m.Model,
		m.Status,
		m.Source,
		m.TweetID,
		m.LatencyMs,
		m.TotalTokens,
	}
}

// PublishMetric records the outcome of one publish cycle. Job carries
// the scheduler job label that triggered the cycle.
type PublishMetric struct {
	Timestamp   time.Time
	Job         string
	ContentType string
	TweetID     string
	SkipReason  string
	Price       float64
	ChangePct   float64
	DurationMs  int
	Posted      bool
}

func (m *PublishMetric) TableName() string {
	return "publish_metrics"
}

func (m *PublishMetric) Columns() []string {
	return []string{
		"timestamp",
		"job",
		"content_type",
		"tweet_id",
		"skip_reason",
		"price",
		"change_pct",
		"duration_ms",
		"posted",
	}
}

func (m *PublishMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Job,
		m.ContentType,
		m.TweetID,
		m.SkipReason,
		m.Price,
		m.ChangePct,
		m.DurationMs,
		m.Posted,
	}
}
