package news

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/twitter"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
	"github.com/DITreneris/btcbuzzbot/test/testdb"
)

type fakeSearchClient struct {
	result    *twitter.SearchResult
	err       error
	lastQuery twitter.SearchQuery
	calls     int
}

func (f *fakeSearchClient) SearchRecent(_ context.Context, q twitter.SearchQuery) (*twitter.SearchResult, error) {
	f.calls++
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestFetcher(t *testing.T, client SearchClient) (*Fetcher, *store.Store) {
	t.Helper()

	db := testdb.Setup(t)
	st := store.New(db)

	return NewFetcher(st, client, "#bitcoin -is:retweet", 25), st
}

func sampleTweet(id string) twitter.Tweet {
	return twitter.Tweet{
		ID:             id,
		AuthorID:       "42",
		AuthorUsername: "satoshi",
		Text:           "Bitcoin ETF inflows hit a record",
		CreatedAt:      time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		LikeCount:      10,
		RetweetCount:   3,
		ReplyCount:     1,
		QuoteCount:     2,
	}
}

func TestFetchCycleStoresTweets(t *testing.T) {
	client := &fakeSearchClient{
		result: &twitter.SearchResult{
			Tweets:   []twitter.Tweet{sampleTweet("1001"), sampleTweet("1002")},
			NewestID: "1002",
		},
	}
	fetcher, st := newTestFetcher(t, client)

	if err := fetcher.FetchCycle(context.Background()); err != nil {
		t.Fatalf("FetchCycle failed: %v", err)
	}

	if client.lastQuery.Query != "#bitcoin -is:retweet lang:en" {
		t.Errorf("expected configured query with language filter, got %q", client.lastQuery.Query)
	}
	if client.lastQuery.SinceID != "" {
		t.Errorf("expected empty since_id on first cycle, got %q", client.lastQuery.SinceID)
	}
	if client.lastQuery.MaxResults != 25 {
		t.Errorf("expected max results 25, got %d", client.lastQuery.MaxResults)
	}

	items, err := st.GetUnprocessedNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetUnprocessedNews failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 stored tweets, got %d", len(items))
	}

	var item models.NewsTweet
	for _, it := range items {
		if it.ExternalTweetID == "1001" {
			item = it
		}
	}
	if item.ExternalTweetID != "1001" {
		t.Fatal("tweet 1001 not stored")
	}
	if item.Text != "Bitcoin ETF inflows hit a record" {
		t.Errorf("unexpected text: %q", item.Text)
	}
	if item.AuthorID == nil || *item.AuthorID != "42" {
		t.Errorf("unexpected author id: %v", item.AuthorID)
	}
	if item.Source != "twitter" {
		t.Errorf("unexpected source: %q", item.Source)
	}
	if item.Processed {
		t.Error("freshly fetched tweet should not be processed")
	}

	if item.Metrics == nil {
		t.Fatal("expected metrics JSON to be stored")
	}
	var metrics models.TweetMetrics
	if err := json.Unmarshal([]byte(*item.Metrics), &metrics); err != nil {
		t.Fatalf("failed to decode stored metrics: %v", err)
	}
	if metrics.AuthorUsername != "satoshi" {
		t.Errorf("expected author username in metrics, got %q", metrics.AuthorUsername)
	}
	if metrics.LikeCount != 10 || metrics.RetweetCount != 3 {
		t.Errorf("unexpected engagement counts: %+v", metrics)
	}
}

func TestFetchCyclePassesSinceID(t *testing.T) {
	client := &fakeSearchClient{result: &twitter.SearchResult{}}
	fetcher, st := newTestFetcher(t, client)

	seed := sampleTweet("100")
	item, err := newsItemFromTweet(seed)
	if err != nil {
		t.Fatalf("failed to build seed item: %v", err)
	}
	if _, _, err := st.UpsertNewsItem(context.Background(), item); err != nil {
		t.Fatalf("failed to seed news item: %v", err)
	}

	if err := fetcher.FetchCycle(context.Background()); err != nil {
		t.Fatalf("FetchCycle failed: %v", err)
	}

	if client.lastQuery.SinceID != "100" {
		t.Errorf("expected since_id 100, got %q", client.lastQuery.SinceID)
	}
}

func TestFetchCycleSkipsDuplicates(t *testing.T) {
	client := &fakeSearchClient{
		result: &twitter.SearchResult{
			Tweets: []twitter.Tweet{sampleTweet("2001")},
		},
	}
	fetcher, st := newTestFetcher(t, client)

	if err := fetcher.FetchCycle(context.Background()); err != nil {
		t.Fatalf("first FetchCycle failed: %v", err)
	}
	if err := fetcher.FetchCycle(context.Background()); err != nil {
		t.Fatalf("second FetchCycle failed: %v", err)
	}

	items, err := st.GetUnprocessedNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetUnprocessedNews failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected duplicate tweet stored once, got %d rows", len(items))
	}
}

func TestEnsureEnglish(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"#Bitcoin -is:retweet", "#Bitcoin -is:retweet lang:en"},
		{"#Bitcoin lang:en", "#Bitcoin lang:en"},
		{"#Bitcoin lang:de -is:retweet", "#Bitcoin lang:de -is:retweet"},
	}
	for _, tc := range cases {
		if got := ensureEnglish(tc.query); got != tc.want {
			t.Errorf("ensureEnglish(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestFetchCycleRateLimited(t *testing.T) {
	client := &fakeSearchClient{
		err: &twitter.Error{Kind: twitter.KindRateLimited, StatusCode: 429, Detail: "too many requests"},
	}
	fetcher, _ := newTestFetcher(t, client)

	if err := fetcher.FetchCycle(context.Background()); err != nil {
		t.Errorf("expected rate limit to be swallowed, got %v", err)
	}
}

func TestFetchCycleSearchError(t *testing.T) {
	client := &fakeSearchClient{err: errors.New("network down")}
	fetcher, _ := newTestFetcher(t, client)

	if err := fetcher.FetchCycle(context.Background()); err == nil {
		t.Error("expected search failure to be returned")
	}
}
