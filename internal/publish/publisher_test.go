package publish

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/database"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/price"
	"github.com/DITreneris/btcbuzzbot/internal/adapters/twitter"
	"github.com/DITreneris/btcbuzzbot/internal/content"
	"github.com/DITreneris/btcbuzzbot/internal/status"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/metrics"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
	"github.com/DITreneris/btcbuzzbot/test/testdb"
)

type fakePriceProvider struct {
	quote *price.Quote
	err   error
}

func (f *fakePriceProvider) GetBTCPrice(_ context.Context) (*price.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

func (f *fakePriceProvider) GetName() string { return "coingecko" }

type fakeSocial struct {
	id    string
	err   error
	posts []string
}

func (f *fakeSocial) PostTweet(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, text)
	return f.id, nil
}

type fakeChannel struct {
	name string
	sent []string
	ok   bool
}

func (f *fakeChannel) Send(_ context.Context, text string) bool {
	f.sent = append(f.sent, text)
	return f.ok
}

func (f *fakeChannel) GetName() string { return f.name }

type fakeEngagementClient struct {
	eng  *twitter.Engagement
	err  error
	gets []string
}

func (f *fakeEngagementClient) GetEngagement(_ context.Context, tweetID string) (*twitter.Engagement, error) {
	f.gets = append(f.gets, tweetID)
	if f.err != nil {
		return nil, f.err
	}
	return f.eng, nil
}

type captureWriter struct {
	writes map[string][]metrics.Metric
	mu     sync.Mutex
}

func (w *captureWriter) Write(_ context.Context, table string, ms []metrics.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writes == nil {
		w.writes = make(map[string][]metrics.Metric)
	}
	w.writes[table] = append(w.writes[table], ms...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestPublisher(t *testing.T, prices price.Provider, social SocialClient, channels ...SideChannel) (*Publisher, *store.Store, *database.DB) {
	t.Helper()

	db := testdb.Setup(t)
	st := store.New(db)

	pub := NewPublisher(PublisherConfig{
		Store:           st,
		Prices:          prices,
		Social:          social,
		Picker:          content.NewPicker(st, 24*time.Hour),
		Status:          status.NewLogger(st),
		Channels:        channels,
		DuplicateWindow: 5 * time.Minute,
	})

	return pub, st, db
}

func seedAnalyzedNews(t *testing.T, st *store.Store, externalID, sigLabel, sentLabel, summary, source string) {
	t.Helper()

	ctx := context.Background()
	_, _, err := st.UpsertNewsItem(ctx, &models.NewsTweet{
		ExternalTweetID: externalID,
		Text:            "seeded news tweet",
		PublishedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to seed news item: %v", err)
	}

	_, err = st.UpdateNewsAnalysis(ctx, externalID, models.AnalysisAnalyzed, &store.NewsAnalysis{
		SentimentLabel:    &sentLabel,
		SignificanceLabel: &sigLabel,
		Summary:           &summary,
		SentimentSource:   source,
	})
	if err != nil {
		t.Fatalf("failed to seed news analysis: %v", err)
	}
}

func latestStatus(t *testing.T, st *store.Store) *models.BotStatus {
	t.Helper()

	s, err := st.GetLatestStatus(context.Background())
	if err != nil {
		t.Fatalf("failed to read latest status: %v", err)
	}
	if s == nil {
		t.Fatal("expected a status row")
	}
	return s
}

func TestRunCycleNewsBeatsOtherContent(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 50000, Change24h: 1.5}}
	social := &fakeSocial{id: "tweet-1"}
	pub, st, db := newTestPublisher(t, prices, social)

	if _, err := st.StoreLatestPrice(ctx, 49000, ""); err != nil {
		t.Fatalf("failed to seed previous price: %v", err)
	}
	seedAnalyzedNews(t, st, "9001",
		models.SignificanceHigh, models.SentimentPositive,
		"Major retailer integrates Bitcoin.", models.SourceGroq)

	if err := pub.RunCycle(ctx, "08:00"); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(social.posts) != 1 {
		t.Fatalf("expected 1 tweet, got %d", len(social.posts))
	}
	text := social.posts[0]
	if !strings.HasPrefix(text, "BTC: $50,000.00 | +2.04% 🚀") {
		t.Errorf("unexpected price line: %q", text)
	}
	if !strings.Contains(text, "Major retailer integrates Bitcoin.") {
		t.Errorf("expected summary in tweet: %q", text)
	}
	if !strings.Contains(text, "#CryptoNews") {
		t.Errorf("expected class hashtag in tweet: %q", text)
	}

	posts, err := st.GetRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecentPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post row, got %d", len(posts))
	}
	if posts[0].ContentType != models.ContentTypeNews {
		t.Errorf("expected news content type, got %q", posts[0].ContentType)
	}
	if posts[0].ExternalPostID != "tweet-1" {
		t.Errorf("unexpected external post id: %q", posts[0].ExternalPostID)
	}
	if posts[0].Price != 50000 {
		t.Errorf("unexpected post price: %v", posts[0].Price)
	}
	if math.Abs(posts[0].PriceChangePct-2.0408163) > 1e-4 {
		t.Errorf("unexpected change pct: %v", posts[0].PriceChangePct)
	}

	if got := testdb.Count(t, db, "prices"); got != 2 {
		t.Errorf("expected 2 price rows, got %d", got)
	}

	s := latestStatus(t, st)
	if s.Status != models.StatusRunning {
		t.Errorf("expected Running status, got %q", s.Status)
	}
}

func TestRunCycleQuoteFallback(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 48000}}
	social := &fakeSocial{id: "tweet-2"}
	pub, st, db := newTestPublisher(t, prices, social)

	testdb.ClearContent(t, db)
	if _, err := st.AddQuote(ctx, "HODL to the moon!", ""); err != nil {
		t.Fatalf("failed to seed quote: %v", err)
	}
	if _, err := st.StoreLatestPrice(ctx, 49000, ""); err != nil {
		t.Fatalf("failed to seed previous price: %v", err)
	}

	if err := pub.RunCycle(ctx, "12:00"); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(social.posts) != 1 {
		t.Fatalf("expected 1 tweet, got %d", len(social.posts))
	}
	expected := "BTC: $48,000.00 | -2.04% 📉\nHODL to the moon!\n#Bitcoin #Crypto"
	if social.posts[0] != expected {
		t.Errorf("unexpected tweet:\ngot:      %q\nexpected: %q", social.posts[0], expected)
	}

	posts, err := st.GetRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecentPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ContentType != models.ContentTypeQuote {
		t.Errorf("expected one quote post, got %+v", posts)
	}
}

func TestRunCycleBarePriceFallback(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 61500.5}}
	social := &fakeSocial{id: "tweet-3"}
	pub, st, db := newTestPublisher(t, prices, social)

	testdb.ClearContent(t, db)

	if err := pub.RunCycle(ctx, "16:00"); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	expected := "BTC: $61,500.50 | +0.00% 📈\n#Bitcoin #Price"
	if len(social.posts) != 1 || social.posts[0] != expected {
		t.Errorf("unexpected tweet: %v", social.posts)
	}

	posts, err := st.GetRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecentPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ContentType != models.ContentTypePriceFallback {
		t.Errorf("expected one price_fallback post, got %+v", posts)
	}
}

func TestRunCycleDuplicateGuard(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 50000}}
	social := &fakeSocial{id: "tweet-4"}
	pub, st, db := newTestPublisher(t, prices, social)

	if _, err := st.LogPost(ctx, "prior", "earlier tweet", 50000, 0, models.ContentTypeQuote); err != nil {
		t.Fatalf("failed to seed prior post: %v", err)
	}

	if err := pub.RunCycle(ctx, "20:00"); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(social.posts) != 0 {
		t.Errorf("expected no tweet during duplicate window, got %v", social.posts)
	}
	if got := testdb.Count(t, db, "posts"); got != 1 {
		t.Errorf("expected posts table unchanged, got %d rows", got)
	}

	s := latestStatus(t, st)
	if !strings.Contains(s.Message, "Skipped") || !strings.Contains(s.Message, "recent post") {
		t.Errorf("unexpected skip message: %q", s.Message)
	}
}

func TestRunCyclePriceFetchFailure(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{err: errors.New("provider down")}
	social := &fakeSocial{id: "tweet-5"}
	pub, st, db := newTestPublisher(t, prices, social)

	if err := pub.RunCycle(ctx, "08:00"); err == nil {
		t.Fatal("expected price failure to abort the cycle")
	}

	if len(social.posts) != 0 {
		t.Errorf("expected no tweet after price failure, got %v", social.posts)
	}
	if got := testdb.Count(t, db, "posts"); got != 0 {
		t.Errorf("expected no post rows, got %d", got)
	}
	if got := testdb.Count(t, db, "prices"); got != 0 {
		t.Errorf("expected no price rows, got %d", got)
	}

	s := latestStatus(t, st)
	if s.Status != models.StatusError {
		t.Errorf("expected Error status, got %q", s.Status)
	}
	if !strings.Contains(s.Message, "Price fetch failed") {
		t.Errorf("unexpected error message: %q", s.Message)
	}
}

func TestRunCycleDuplicateContentSoftSkip(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 50000}}
	social := &fakeSocial{err: &twitter.Error{Kind: twitter.KindDuplicate, StatusCode: 403, Detail: "duplicate content"}}
	pub, st, db := newTestPublisher(t, prices, social)

	if err := pub.RunCycle(ctx, "08:00"); err != nil {
		t.Fatalf("expected duplicate rejection to be soft, got %v", err)
	}

	if got := testdb.Count(t, db, "posts"); got != 0 {
		t.Errorf("expected no post rows, got %d", got)
	}

	s := latestStatus(t, st)
	if !strings.Contains(s.Message, "duplicate") {
		t.Errorf("unexpected message: %q", s.Message)
	}
}

func TestRunCyclePostFailureAborts(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 50000}}
	social := &fakeSocial{err: errors.New("network down")}
	pub, st, db := newTestPublisher(t, prices, social)

	if err := pub.RunCycle(ctx, "08:00"); err == nil {
		t.Fatal("expected post failure to abort the cycle")
	}

	if got := testdb.Count(t, db, "posts"); got != 0 {
		t.Errorf("expected no post rows, got %d", got)
	}

	s := latestStatus(t, st)
	if s.Status != models.StatusError {
		t.Errorf("expected Error status, got %q", s.Status)
	}
}

func TestRunCycleSideChannelFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	prices := &fakePriceProvider{quote: &price.Quote{USD: 50000}}
	social := &fakeSocial{id: "tweet-6"}
	discord := &fakeChannel{name: "discord", ok: false}
	telegram := &fakeChannel{name: "telegram", ok: true}
	pub, st, _ := newTestPublisher(t, prices, social, discord, telegram)

	if err := pub.RunCycle(ctx, "08:00"); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(discord.sent) != 1 || len(telegram.sent) != 1 {
		t.Errorf("expected fan-out to both channels, got discord=%d telegram=%d",
			len(discord.sent), len(telegram.sent))
	}

	posts, err := st.GetRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecentPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected post row despite channel failure, got %d", len(posts))
	}

	s := latestStatus(t, st)
	if s.Status != models.StatusRunning {
		t.Errorf("expected Running status, got %q", s.Status)
	}
}

func TestRunCycleRecordsPublishMetric(t *testing.T) {
	ctx := context.Background()
	writer := &captureWriter{}
	buffer := metrics.NewBufferedMetrics(metrics.BufferConfig{
		Writer:        writer,
		BatchSize:     100,
		FlushInterval: time.Hour,
	})

	db := testdb.Setup(t)
	st := store.New(db)
	testdb.ClearContent(t, db)

	pub := NewPublisher(PublisherConfig{
		Store:  st,
		Prices: &fakePriceProvider{quote: &price.Quote{USD: 50000}},
		Social: &fakeSocial{id: "tweet-7"},
		Picker: content.NewPicker(st, 24*time.Hour),
		Status: status.NewLogger(st),
		Buffer: buffer,
	})

	if err := pub.RunCycle(ctx, "12:00"); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if err := buffer.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	recorded := writer.writes["publish_metrics"]
	if len(recorded) != 1 {
		t.Fatalf("expected 1 publish metric, got %d", len(recorded))
	}
	m, ok := recorded[0].(*metrics.PublishMetric)
	if !ok {
		t.Fatalf("unexpected metric type %T", recorded[0])
	}
	if m.Job != "12:00" {
		t.Errorf("unexpected job label: %q", m.Job)
	}
	if !m.Posted {
		t.Error("expected metric to be marked posted")
	}
	if m.ContentType != models.ContentTypePriceFallback {
		t.Errorf("unexpected content type: %q", m.ContentType)
	}
	if m.TweetID != "tweet-7" {
		t.Errorf("unexpected tweet id: %q", m.TweetID)
	}
	if m.Price != 50000 {
		t.Errorf("unexpected price: %v", m.Price)
	}
}

func TestNewsUsable(t *testing.T) {
	testCases := []struct {
		name     string
		item     models.NewsTweet
		expected bool
	}{
		{
			name: "high significance negative sentiment",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(1.0),
				SentimentLabel:    strPtr(models.SentimentNegative),
				SentimentSource:   strPtr(models.SourceGroq),
				Summary:           strPtr("Exchange collapse."),
			},
			expected: true,
		},
		{
			name: "medium significance positive sentiment",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(0.5),
				SentimentLabel:    strPtr(models.SentimentPositive),
				SentimentSource:   strPtr(models.SourceGroq),
				Summary:           strPtr("Partnership announced."),
			},
			expected: true,
		},
		{
			name: "medium significance neutral sentiment",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(0.5),
				SentimentLabel:    strPtr(models.SentimentNeutral),
				SentimentSource:   strPtr(models.SourceGroq),
				Summary:           strPtr("Protocol update shipped."),
			},
			expected: true,
		},
		{
			name: "medium significance negative sentiment",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(0.5),
				SentimentLabel:    strPtr(models.SentimentNegative),
				SentimentSource:   strPtr(models.SourceGroq),
				Summary:           strPtr("Minor outage."),
			},
			expected: false,
		},
		{
			name: "low significance",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(0.1),
				SentimentLabel:    strPtr(models.SentimentPositive),
				SentimentSource:   strPtr(models.SourceGroq),
				Summary:           strPtr("Meme of the day."),
			},
			expected: false,
		},
		{
			name: "lexicon fallback needs high significance",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(0.5),
				SentimentLabel:    strPtr(models.SentimentPositive),
				SentimentSource:   strPtr(models.SourceFallbackAPIError),
				Summary:           strPtr("Partnership announced."),
			},
			expected: false,
		},
		{
			name: "lexicon fallback with high significance",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(1.0),
				SentimentLabel:    strPtr(models.SentimentNegative),
				SentimentSource:   strPtr(models.SourceFallbackAPIError),
				Summary:           strPtr("Major ban announced."),
			},
			expected: true,
		},
		{
			name: "empty summary",
			item: models.NewsTweet{
				SignificanceScore: floatPtr(1.0),
				SentimentLabel:    strPtr(models.SentimentPositive),
				SentimentSource:   strPtr(models.SourceGroq),
				Summary:           strPtr("   "),
			},
			expected: false,
		},
		{
			name: "missing significance score",
			item: models.NewsTweet{
				SentimentLabel:  strPtr(models.SentimentPositive),
				SentimentSource: strPtr(models.SourceGroq),
				Summary:         strPtr("Something."),
			},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := newsUsable(&tc.item); got != tc.expected {
				t.Errorf("newsUsable() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestEngagementRefreshCycle(t *testing.T) {
	ctx := context.Background()
	db := testdb.Setup(t)
	st := store.New(db)

	if _, err := st.LogPost(ctx, "900", "some tweet", 50000, 0, models.ContentTypeQuote); err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}

	client := &fakeEngagementClient{eng: &twitter.Engagement{Likes: 42, Retweets: 7}}
	refresher := NewEngagementRefresher(st, client, 10)

	if err := refresher.RefreshCycle(ctx); err != nil {
		t.Fatalf("RefreshCycle failed: %v", err)
	}

	if len(client.gets) != 1 || client.gets[0] != "900" {
		t.Errorf("unexpected engagement lookups: %v", client.gets)
	}

	posts, err := st.GetRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecentPosts failed: %v", err)
	}
	if posts[0].Likes != 42 || posts[0].Retweets != 7 {
		t.Errorf("expected counters updated, got likes=%d retweets=%d", posts[0].Likes, posts[0].Retweets)
	}
	if posts[0].EngagementLastChecked == nil {
		t.Error("expected engagement_last_checked to be set")
	}
}

func TestEngagementRefreshRateLimited(t *testing.T) {
	ctx := context.Background()
	db := testdb.Setup(t)
	st := store.New(db)

	if _, err := st.LogPost(ctx, "901", "some tweet", 50000, 0, models.ContentTypeQuote); err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}

	client := &fakeEngagementClient{err: &twitter.Error{Kind: twitter.KindRateLimited, StatusCode: 429}}
	refresher := NewEngagementRefresher(st, client, 10)

	if err := refresher.RefreshCycle(ctx); err != nil {
		t.Fatalf("expected rate limit to end the cycle quietly, got %v", err)
	}

	posts, err := st.GetRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("GetRecentPosts failed: %v", err)
	}
	if posts[0].EngagementLastChecked != nil {
		t.Error("expected no engagement update after rate limit")
	}
}
