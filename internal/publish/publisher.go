package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/price"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/twitter"
	"github.com/DITreneris/btcbuzzbot/internal/content"
	"github.com/DITreneris/btcbuzzbot/internal/status"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/metrics"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// News selection thresholds on significance_score
const (
	// A story this significant is published regardless of sentiment
	significanceAlways = 0.8
	// Below this a story is never published
	significanceFloor = 0.4
)

// SocialClient posts to the primary platform
type SocialClient interface {
	PostTweet(ctx context.Context, text string) (string, error)
}

// ContentPicker supplies the quote or joke for a price tweet
type ContentPicker interface {
	Next(ctx context.Context) (*content.Pick, error)
}

// SideChannel mirrors published tweets to a secondary destination.
// Send reports success, channel failures must never surface as errors.
type SideChannel interface {
	Send(ctx context.Context, text string) bool
	GetName() string
}

// Publisher runs the scheduled publish cycle: fetch the price, choose
// content, guard against duplicates, post, record.
type Publisher struct {
	store           *store.Store
	prices          price.Provider
	social          SocialClient
	picker          ContentPicker
	status          *status.Logger
	composer        *Composer
	buffer          *metrics.BufferedMetrics
	channels        []SideChannel
	newsWindowHours int
	duplicateWindow time.Duration
}

// PublisherConfig wires the publisher dependencies. Buffer is optional,
// cycle metrics are dropped when it is nil.
type PublisherConfig struct {
	Store           *store.Store
	Prices          price.Provider
	Social          SocialClient
	Picker          ContentPicker
	Status          *status.Logger
	Buffer          *metrics.BufferedMetrics
	Channels        []SideChannel
	NewsWindowHours int
	DuplicateWindow time.Duration
}

// NewPublisher creates new publisher
func NewPublisher(cfg PublisherConfig) *Publisher {
	if cfg.NewsWindowHours <= 0 {
		cfg.NewsWindowHours = 12
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 5 * time.Minute
	}

	return &Publisher{
		store:           cfg.Store,
		prices:          cfg.Prices,
		social:          cfg.Social,
		picker:          cfg.Picker,
		status:          cfg.Status,
		composer:        NewComposer(),
		buffer:          cfg.Buffer,
		channels:        cfg.Channels,
		newsWindowHours: cfg.NewsWindowHours,
		duplicateWindow: cfg.DuplicateWindow,
	}
}

// RunCycle executes one publish cycle for the given scheduler job label.
// A failed cycle writes an Error status and never produces a post row.
func (p *Publisher) RunCycle(ctx context.Context, jobLabel string) error {
	started := time.Now()

	metric := &metrics.PublishMetric{
		Timestamp: started.UTC(),
		Job:       jobLabel,
	}
	defer p.recordCycle(metric, started)

	quote, err := p.prices.GetBTCPrice(ctx)
	if err != nil {
		metric.SkipReason = "price_fetch_failed"
		p.status.Log(ctx, models.StatusError, fmt.Sprintf("Price fetch failed: %v", err), nil)
		return fmt.Errorf("failed to fetch price: %w", err)
	}
	metric.Price = quote.USD

	prev, err := p.store.GetLatestPrice(ctx)
	if err != nil {
		metric.SkipReason = "store_error"
		p.status.Log(ctx, models.StatusError, fmt.Sprintf("Price lookup failed: %v", err), nil)
		return fmt.Errorf("failed to read previous price: %w", err)
	}

	changePct := 0.0
	if prev != nil && prev.Price > 0 {
		changePct = 100 * (quote.USD - prev.Price) / prev.Price
	}
	metric.ChangePct = changePct

	if _, err := p.store.StoreLatestPrice(ctx, quote.USD, p.prices.GetName()); err != nil {
		metric.SkipReason = "store_error"
		p.status.Log(ctx, models.StatusError, fmt.Sprintf("Price store failed: %v", err), nil)
		return fmt.Errorf("failed to store price: %w", err)
	}

	text, contentType := p.selectContent(ctx, quote.USD, changePct)
	metric.ContentType = contentType

	recent, err := p.store.HasPostedWithin(ctx, p.duplicateWindow)
	if err != nil {
		logger.Warn("duplicate guard check failed", zap.Error(err))
	}
	if recent {
		logger.Info("skipping publish, recent post exists", zap.String("job", jobLabel))
		p.status.Log(ctx, models.StatusRunning,
			fmt.Sprintf("Skipped %s: recent post within %d minutes", jobLabel, int(p.duplicateWindow.Minutes())), nil)
		metric.SkipReason = "recent_post"
		return nil
	}

	tweetID, err := p.social.PostTweet(ctx, text)
	if err != nil {
		if twitter.IsDuplicate(err) {
			logger.Warn("tweet rejected as duplicate content", zap.String("job", jobLabel))
			p.status.Log(ctx, models.StatusRunning,
				fmt.Sprintf("Skipped %s: duplicate content", jobLabel), nil)
			metric.SkipReason = "duplicate_content"
			return nil
		}
		metric.SkipReason = "post_failed"
		p.status.Log(ctx, models.StatusError, fmt.Sprintf("Tweet failed: %v", err), nil)
		return fmt.Errorf("failed to post tweet: %w", err)
	}
	metric.TweetID = tweetID
	metric.Posted = true

	if _, err := p.store.LogPost(ctx, tweetID, text, quote.USD, changePct, contentType); err != nil {
		// The tweet is out; losing the row is an accounting problem only
		logger.Error("tweet published but post row write failed",
			zap.String("tweet_id", tweetID),
			zap.Error(err),
		)
	}

	p.fanOut(ctx, text)

	p.status.Log(ctx, models.StatusRunning,
		fmt.Sprintf("Posted %s tweet for %s at $%.2f", contentType, jobLabel, quote.USD), nil)

	logger.Info("publish cycle finished",
		zap.String("job", jobLabel),
		zap.String("content_type", contentType),
		zap.String("tweet_id", tweetID),
		zap.Float64("price", quote.USD),
		zap.Float64("change_pct", changePct),
		zap.Float64("change_24h", quote.Change24h),
	)

	return nil
}

// selectContent picks what to tweet: usable news first, then a quote or
// joke, then the bare price line.
func (p *Publisher) selectContent(ctx context.Context, priceUSD, changePct float64) (string, string) {
	items, err := p.store.GetRecentAnalyzedNews(ctx, p.newsWindowHours)
	if err != nil {
		logger.Warn("failed to load analyzed news", zap.Error(err))
	}

	if item := firstUsableNews(items); item != nil {
		logger.Debug("selected news item",
			zap.String("tweet_id", item.ExternalTweetID),
			zap.Float64("significance", *item.SignificanceScore),
		)
		text := p.composer.ComposeNews(priceUSD, changePct,
			strVal(item.SignificanceLabel),
			strVal(item.SentimentLabel),
			strings.TrimSpace(strVal(item.Summary)),
		)
		return text, models.ContentTypeNews
	}

	pick, err := p.picker.Next(ctx)
	if err != nil {
		logger.Warn("content picker failed", zap.Error(err))
	} else if pick != nil {
		return p.composer.ComposeContent(priceUSD, changePct, pick.Text), pick.Kind
	}

	return p.composer.ComposePriceOnly(priceUSD, changePct), models.ContentTypePriceFallback
}

// firstUsableNews walks items in their stored order, most significant
// first, and returns the first one fit for publishing
func firstUsableNews(items []models.NewsTweet) *models.NewsTweet {
	for i := range items {
		if newsUsable(&items[i]) {
			return &items[i]
		}
	}
	return nil
}

func newsUsable(item *models.NewsTweet) bool {
	if item.Summary == nil || strings.TrimSpace(*item.Summary) == "" {
		return false
	}
	if item.SignificanceScore == nil {
		return false
	}
	sig := *item.SignificanceScore

	// Lexicon-derived sentiment is weaker evidence, only headline news
	// rides on it
	if item.SentimentSource != nil && strings.Contains(*item.SentimentSource, "vader_fallback") {
		return sig >= significanceAlways
	}

	if sig >= significanceAlways {
		return true
	}
	if sig < significanceFloor {
		return false
	}

	sentiment := strVal(item.SentimentLabel)
	return sentiment == models.SentimentPositive || sentiment == models.SentimentNeutral
}

// fanOut mirrors the tweet to every side channel with a short deadline
// per channel
func (p *Publisher) fanOut(ctx context.Context, text string) {
	for _, ch := range p.channels {
		if ch == nil {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if !ch.Send(sendCtx, text) {
			logger.Warn("side channel send failed", zap.String("channel", ch.GetName()))
		}
		cancel()
	}
}

func (p *Publisher) recordCycle(m *metrics.PublishMetric, started time.Time) {
	if p.buffer == nil {
		return
	}

	m.DurationMs = int(time.Since(started).Milliseconds())
	if err := p.buffer.Add(m); err != nil {
		logger.Warn("failed to buffer publish metric", zap.Error(err))
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
