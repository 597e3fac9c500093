package news

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/ai"
	"github.com/DITreneris/btcbuzzbot/internal/sentiment"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/metrics"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// Analyzer runs model-based analysis over fetched tweets, falling back
// to the lexicon scorer when the model is unavailable or its output is
// unusable. Every tweet it picks up ends the cycle processed, whatever
// the outcome.
type Analyzer struct {
	store        *store.Store
	provider     ai.Provider
	fallback     *sentiment.Analyzer
	buffer       *metrics.BufferedMetrics
	batchSize    int
	concurrency  int
	callTimeout  time.Duration
	cycleTimeout time.Duration
}

// AnalyzerConfig wires the analyzer dependencies. Buffer is optional,
// call metrics are dropped when it is nil.
type AnalyzerConfig struct {
	Store        *store.Store
	Provider     ai.Provider
	Fallback     *sentiment.Analyzer
	Buffer       *metrics.BufferedMetrics
	BatchSize    int
	Concurrency  int
	CallTimeout  time.Duration
	CycleTimeout time.Duration
}

// NewAnalyzer creates new news analyzer
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 5 * time.Minute
	}

	return &Analyzer{
		store:        cfg.Store,
		provider:     cfg.Provider,
		fallback:     cfg.Fallback,
		buffer:       cfg.Buffer,
		batchSize:    cfg.BatchSize,
		concurrency:  cfg.Concurrency,
		callTimeout:  cfg.CallTimeout,
		cycleTimeout: cfg.CycleTimeout,
	}
}

type cycleStats struct {
	analyzed atomic.Int32
	fallback atomic.Int32
	timeout  atomic.Int32
	failed   atomic.Int32
}

// AnalyzeCycle processes one batch of unanalyzed tweets with bounded
// concurrency. Item failures are counted, never propagated, so one bad
// tweet cannot cancel the rest of the batch.
func (a *Analyzer) AnalyzeCycle(ctx context.Context) error {
	items, err := a.store.GetUnprocessedNews(ctx, a.batchSize)
	if err != nil {
		return fmt.Errorf("failed to load unprocessed news: %w", err)
	}
	if len(items) == 0 {
		logger.Debug("no unprocessed news to analyze")
		return nil
	}

	cycleCtx, cancel := context.WithTimeout(ctx, a.cycleTimeout)
	defer cancel()

	var stats cycleStats

	g, gctx := errgroup.WithContext(cycleCtx)
	g.SetLimit(a.concurrency)

	for _, item := range items {
		g.Go(func() error {
			a.analyzeOne(gctx, item, &stats)
			return nil
		})
	}

	_ = g.Wait()

	logger.Info("news analysis cycle finished",
		zap.Int("batch", len(items)),
		zap.Int32("analyzed", stats.analyzed.Load()),
		zap.Int32("fallback", stats.fallback.Load()),
		zap.Int32("timeout", stats.timeout.Load()),
		zap.Int32("failed", stats.failed.Load()),
	)

	return nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, item models.NewsTweet, stats *cycleStats) {
	if ctx.Err() != nil {
		// Cycle deadline passed before this tweet got a turn
		a.persist(item.ExternalTweetID, models.AnalysisTimeout, nil)
		a.recordCall(item.ExternalTweetID, models.AnalysisTimeout, nil, nil)
		stats.timeout.Add(1)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	analysis, verdict := a.evaluate(callCtx, item.Text)

	status := models.AnalysisAnalyzed
	if analysis.SentimentLabel == nil && analysis.SignificanceLabel == nil && analysis.Summary == nil {
		status = models.AnalysisFailed
	}

	a.recordCall(item.ExternalTweetID, status, analysis, verdict)

	if status == models.AnalysisFailed {
		a.persist(item.ExternalTweetID, models.AnalysisFailed, nil)
		stats.failed.Add(1)
		return
	}

	if !a.persist(item.ExternalTweetID, models.AnalysisAnalyzed, analysis) {
		stats.failed.Add(1)
		return
	}

	logger.Debug("tweet analyzed",
		zap.String("tweet_id", item.ExternalTweetID),
		zap.String("source", analysis.SentimentSource),
	)

	if analysis.SentimentSource == models.SourceGroq {
		stats.analyzed.Add(1)
	} else {
		stats.fallback.Add(1)
	}
}

// persist stores an analysis outcome. The cycle deadline bounds model
// calls, not bookkeeping writes, so outcomes are written under their own
// short context.
func (a *Analyzer) persist(externalID, status string, data *store.NewsAnalysis) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := a.store.UpdateNewsAnalysis(ctx, externalID, status, data); err != nil {
		logger.Warn("failed to store analysis outcome",
			zap.String("tweet_id", externalID),
			zap.String("status", status),
			zap.Error(err),
		)
		return false
	}

	return true
}

// evaluate produces the analysis to store for one tweet, plus the model
// verdict behind it when the model returned one.
func (a *Analyzer) evaluate(ctx context.Context, text string) (*store.NewsAnalysis, *ai.Verdict) {
	if a.provider == nil || !a.provider.IsEnabled() {
		return a.fallbackAnalysis(text, models.SourceFallbackNoClient, nil), nil
	}

	verdict, err := a.provider.AnalyzeTweet(ctx, text)
	switch {
	case errors.Is(err, ai.ErrNoJSON):
		return a.fallbackAnalysis(text, models.SourceFallbackJSONError, nil), nil
	case errors.Is(err, ai.ErrBadJSON):
		return a.fallbackAnalysis(text, models.SourceFallbackJSONDecodeError, nil), nil
	case err != nil:
		return a.fallbackAnalysis(text, models.SourceFallbackAPIError, nil), nil
	}

	if verdict.Sentiment == nil {
		return a.fallbackAnalysis(text, models.SourceFallbackNoSentiment, verdict), verdict
	}
	if models.SentimentScoreFor(*verdict.Sentiment) == nil {
		return a.fallbackAnalysis(text, models.SourceFallbackSentimentMissing, verdict), verdict
	}

	return &store.NewsAnalysis{
		SentimentLabel:    verdict.Sentiment,
		SignificanceLabel: verdict.Significance,
		Summary:           verdict.Summary,
		RawResponse:       &verdict.Raw,
		SentimentSource:   models.SourceGroq,
	}, verdict
}

// fallbackAnalysis classifies text with the lexicon scorer, keeping any
// usable fields from a partial model verdict
func (a *Analyzer) fallbackAnalysis(text, source string, verdict *ai.Verdict) *store.NewsAnalysis {
	analysis := &store.NewsAnalysis{SentimentSource: source}

	if verdict != nil {
		analysis.SignificanceLabel = verdict.Significance
		analysis.Summary = verdict.Summary
		analysis.RawResponse = &verdict.Raw
	}

	if a.fallback == nil {
		analysis.SentimentSource = models.SourceUnavailable
		return analysis
	}

	label, _ := a.fallback.Classify(text)
	analysis.SentimentLabel = &label

	return analysis
}

func (a *Analyzer) recordCall(tweetID, status string, analysis *store.NewsAnalysis, verdict *ai.Verdict) {
	if a.buffer == nil {
		return
	}

	m := &metrics.LLMCallMetric{
		Timestamp: time.Now().UTC(),
		Provider:  "none",
		Status:    status,
		Source:    status,
		TweetID:   tweetID,
	}

	if analysis != nil {
		m.Source = analysis.SentimentSource
		switch {
		case analysis.SentimentSource == models.SourceGroq:
			m.Provider = a.provider.GetName()
		case analysis.SentimentLabel != nil:
			m.Provider = "lexicon"
		}
	}
	if verdict != nil {
		m.Model = verdict.Model
		m.LatencyMs = int(verdict.Latency.Milliseconds())
		m.TotalTokens = verdict.TokensUsed
	}

	if err := a.buffer.Add(m); err != nil {
		logger.Warn("failed to buffer llm call metric", zap.Error(err))
	}
}
