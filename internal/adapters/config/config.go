package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Database   DatabaseConfig
	Twitter    TwitterConfig
	CoinGecko  CoinGeckoConfig
	Groq       GroqConfig
	News       NewsConfig
	Publish    PublishConfig
	Discord    DiscordConfig
	Telegram   TelegramConfig
	Admin      AdminConfig
	ClickHouse ClickHouseConfig
	Logging    LoggingConfig
}

// DatabaseConfig represents persistence settings; DATABASE_URL selects
// PostgreSQL, otherwise the embedded SQLite file is used
type DatabaseConfig struct {
	URL        string `envconfig:"DATABASE_URL" required:"false"`
	SQLitePath string `envconfig:"SQLITE_DB_PATH" default:"btcbuzzbot.db"`
}

// TwitterConfig represents Twitter API credentials and search settings
type TwitterConfig struct {
	APIKey            string `envconfig:"TWITTER_API_KEY" required:"false"`
	APISecret         string `envconfig:"TWITTER_API_SECRET" required:"false"`
	AccessToken       string `envconfig:"TWITTER_ACCESS_TOKEN" required:"false"`
	AccessTokenSecret string `envconfig:"TWITTER_ACCESS_TOKEN_SECRET" required:"false"`
	BearerToken       string `envconfig:"TWITTER_BEARER_TOKEN" required:"false"`
	SearchQuery       string `envconfig:"TWITTER_SEARCH_QUERY" default:"#Bitcoin -is:retweet"`
}

// CoinGeckoConfig represents price provider settings
type CoinGeckoConfig struct {
	APIKey     string `envconfig:"COINGECKO_API_KEY" required:"false"`
	RetryLimit int    `envconfig:"COINGECKO_RETRY_LIMIT" default:"3"`
}

// GroqConfig represents LLM provider settings
type GroqConfig struct {
	APIKey                string  `envconfig:"GROQ_API_KEY" required:"false"`
	Model                 string  `envconfig:"GROQ_MODEL" default:"llama-3.1-8b-instant"`
	Temperature           float32 `envconfig:"LLM_ANALYZE_TEMP" default:"0.2"`
	MaxTokens             int     `envconfig:"LLM_ANALYZE_MAX_TOKENS" default:"150"`
	RequestTimeoutSeconds int     `envconfig:"LLM_REQUEST_TIMEOUT_SECONDS" default:"10"`
}

// NewsConfig represents news pipeline settings
type NewsConfig struct {
	FetchMaxResults          int `envconfig:"NEWS_FETCH_MAX_RESULTS" default:"10"`
	AnalysisBatchSize        int `envconfig:"NEWS_ANALYSIS_BATCH_SIZE" default:"30"`
	AnalysisConcurrency      int `envconfig:"NEWS_ANALYSIS_CONCURRENCY" default:"5"`
	ProcessingTimeoutSeconds int `envconfig:"NEWS_PROCESSING_TIMEOUT_SECONDS" default:"300"`
	HoursLimit               int `envconfig:"NEWS_HOURS_LIMIT" default:"12"`
	FetchIntervalMinutes     int `envconfig:"NEWS_FETCH_INTERVAL_MINUTES" default:"720"`
	AnalyzeIntervalMinutes   int `envconfig:"NEWS_ANALYZE_INTERVAL_MINUTES" default:"30"`
}

// PublishConfig represents publish cycle and schedule settings
type PublishConfig struct {
	PostTimes                    string `envconfig:"POST_TIMES" default:"08:00,12:00,16:00,20:00"`
	Timezone                     string `envconfig:"TIMEZONE" default:"UTC"`
	DuplicateWindowMinutes       int    `envconfig:"DUPLICATE_POST_CHECK_MINUTES" default:"5"`
	ContentReuseDays             int    `envconfig:"CONTENT_REUSE_DAYS" default:"7"`
	ScheduleWatchIntervalMinutes int    `envconfig:"SCHEDULE_WATCH_INTERVAL_MINUTES" default:"5"`
	EngagementEnabled            bool   `envconfig:"ENABLE_ENGAGEMENT_REFRESH" default:"false"`
	EngagementIntervalMinutes    int    `envconfig:"ENGAGEMENT_REFRESH_INTERVAL_MINUTES" default:"360"`
}

// DiscordConfig represents Discord side channel settings
type DiscordConfig struct {
	WebhookURL string `envconfig:"DISCORD_WEBHOOK_URL" required:"false"`
	Enabled    bool   `envconfig:"ENABLE_DISCORD_POSTING" default:"false"`
}

// TelegramConfig represents Telegram side channel settings
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" default:"0"`
	Enabled  bool   `envconfig:"ENABLE_TELEGRAM_POSTING" default:"false"`
}

// AdminConfig represents admin HTTP server settings
type AdminConfig struct {
	Port string `envconfig:"ADMIN_PORT" default:"8080"`
}

// ClickHouseConfig represents optional metrics sink settings
type ClickHouseConfig struct {
	DSN     string `envconfig:"CLICKHOUSE_DSN" required:"false"`
	Enabled bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from .env (when present) and environment variables
func Load() (*Config, error) {
	// Missing .env is fine; real deployments inject env directly
	_ = godotenv.Load()

	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	// Posting needs the full user-context credential set
	if !c.Twitter.HasUserContext() {
		return fmt.Errorf("twitter user-context credentials are required for posting (TWITTER_API_KEY, TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_TOKEN_SECRET)")
	}
	if c.Twitter.BearerToken == "" {
		return fmt.Errorf("twitter bearer token is required for news search")
	}

	if c.CoinGecko.RetryLimit < 1 {
		return fmt.Errorf("coingecko retry limit must be at least 1")
	}

	if c.News.FetchMaxResults < 5 || c.News.FetchMaxResults > 100 {
		return fmt.Errorf("news fetch max results must be between 5 and 100")
	}
	if c.News.AnalysisBatchSize < 1 {
		return fmt.Errorf("news analysis batch size must be at least 1")
	}
	if c.News.AnalysisConcurrency < 1 {
		return fmt.Errorf("news analysis concurrency must be at least 1")
	}

	if c.Publish.DuplicateWindowMinutes < 1 {
		return fmt.Errorf("duplicate post check window must be at least 1 minute")
	}
	if c.Publish.PostTimes == "" {
		return fmt.Errorf("post times must not be empty")
	}

	if c.Discord.Enabled && c.Discord.WebhookURL == "" {
		return fmt.Errorf("discord posting enabled but webhook url is missing")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram posting enabled but bot token or chat_id is missing")
	}

	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" {
		return fmt.Errorf("clickhouse enabled but dsn is missing")
	}

	return nil
}

// UsePostgres returns true when a PostgreSQL DSN is configured
func (c *DatabaseConfig) UsePostgres() bool {
	return c.URL != ""
}

// HasUserContext returns true when all four posting credentials are set
func (c *TwitterConfig) HasUserContext() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// RequestTimeout returns the per-call LLM deadline
func (c *GroqConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ProcessingTimeout returns the analyzer cycle deadline
func (c *NewsConfig) ProcessingTimeout() time.Duration {
	return time.Duration(c.ProcessingTimeoutSeconds) * time.Second
}

// FetchInterval returns the news fetch cadence
func (c *NewsConfig) FetchInterval() time.Duration {
	return time.Duration(c.FetchIntervalMinutes) * time.Minute
}

// AnalyzeInterval returns the news analyze cadence
func (c *NewsConfig) AnalyzeInterval() time.Duration {
	return time.Duration(c.AnalyzeIntervalMinutes) * time.Minute
}

// DuplicateWindow returns the publish duplicate-guard window
func (c *PublishConfig) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowMinutes) * time.Minute
}

// ReuseWindow returns the quote/joke reuse window
func (c *PublishConfig) ReuseWindow() time.Duration {
	return time.Duration(c.ContentReuseDays) * 24 * time.Hour
}

// ScheduleWatchInterval returns the schedule change poll cadence
func (c *PublishConfig) ScheduleWatchInterval() time.Duration {
	return time.Duration(c.ScheduleWatchIntervalMinutes) * time.Minute
}

// EngagementInterval returns the engagement refresh cadence
func (c *PublishConfig) EngagementInterval() time.Duration {
	return time.Duration(c.EngagementIntervalMinutes) * time.Minute
}
