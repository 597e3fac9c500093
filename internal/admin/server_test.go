package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/database"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
	"github.com/DITreneris/btcbuzzbot/test/testdb"
)

type fakeScheduler struct {
	mu    sync.Mutex
	calls int
	next  *time.Time
}

func (f *fakeScheduler) Reschedule(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeScheduler) NextTweetRun() *time.Time { return f.next }

func (f *fakeScheduler) rescheduleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store, *fakeScheduler, *database.DB) {
	t.Helper()

	db := testdb.Setup(t)
	st := store.New(db)
	sched := &fakeScheduler{}

	srv := NewServer("0", db, st, sched)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, st, sched, db
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body healthResponse
	decodeBody(t, resp, &body)
	if body.Status != "healthy" || body.Database != "healthy" {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, st, _, _ := newTestServer(t)
	ctx := context.Background()

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/status", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any status, got %d", resp.StatusCode)
	}

	if err := st.LogBotStatus(ctx, models.StatusRunning, "Bot started", nil); err != nil {
		t.Fatalf("failed to seed status: %v", err)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body models.BotStatus
	decodeBody(t, resp, &body)
	if body.Status != models.StatusRunning || body.Message != "Bot started" {
		t.Errorf("unexpected status body: %+v", body)
	}
}

func TestPostsEndpoint(t *testing.T) {
	ts, st, _, _ := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("tweet-%d", i)
		if _, err := st.LogPost(ctx, id, "text "+id, 50000, 0, models.ContentTypeQuote); err != nil {
			t.Fatalf("failed to seed post: %v", err)
		}
	}

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/posts", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body postsResponse
	decodeBody(t, resp, &body)
	if body.Count != 2 {
		t.Errorf("expected 2 posts, got %d", body.Count)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/posts?limit=1", "")
	var limited postsResponse
	decodeBody(t, resp, &limited)
	if limited.Count != 1 {
		t.Errorf("expected limit to apply, got %d posts", limited.Count)
	}
}

func TestNewsEndpoint(t *testing.T) {
	ts, st, _, _ := newTestServer(t)
	ctx := context.Background()

	_, _, err := st.UpsertNewsItem(ctx, &models.NewsTweet{
		ExternalTweetID: "5001",
		Text:            "ETF approval confirmed",
		PublishedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to seed news item: %v", err)
	}

	sentiment := models.SentimentPositive
	significance := models.SignificanceHigh
	summary := "ETF approved."
	_, err = st.UpdateNewsAnalysis(ctx, "5001", models.AnalysisAnalyzed, &store.NewsAnalysis{
		SentimentLabel:    &sentiment,
		SignificanceLabel: &significance,
		Summary:           &summary,
		SentimentSource:   models.SourceGroq,
	})
	if err != nil {
		t.Fatalf("failed to seed analysis: %v", err)
	}

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/news", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body newsResponse
	decodeBody(t, resp, &body)
	if body.Count != 1 {
		t.Fatalf("expected 1 news item, got %d", body.Count)
	}
	if body.News[0].Summary == nil || *body.News[0].Summary != "ETF approved." {
		t.Errorf("unexpected news item: %+v", body.News[0])
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	ts, st, sched, _ := newTestServer(t)
	ctx := context.Background()

	resp := doRequest(t, http.MethodPut, ts.URL+"/api/schedule", `{"schedule":"21:00, 9:30"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body scheduleResponse
	decodeBody(t, resp, &body)
	if body.Schedule != "09:30,21:00" {
		t.Errorf("expected normalized schedule, got %q", body.Schedule)
	}
	if len(body.Times) != 2 || body.Times[0] != "09:30" || body.Times[1] != "21:00" {
		t.Errorf("unexpected times: %v", body.Times)
	}

	stored, err := st.GetScheduleConfig(ctx)
	if err != nil {
		t.Fatalf("GetScheduleConfig failed: %v", err)
	}
	if stored != "09:30,21:00" {
		t.Errorf("expected normalized schedule persisted, got %q", stored)
	}
	if sched.rescheduleCalls() != 1 {
		t.Errorf("expected 1 reschedule call, got %d", sched.rescheduleCalls())
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/schedule", "")
	var got scheduleResponse
	decodeBody(t, resp, &got)
	if got.Schedule != "09:30,21:00" {
		t.Errorf("unexpected schedule after round trip: %q", got.Schedule)
	}
}

func TestSchedulePutInvalid(t *testing.T) {
	ts, st, sched, _ := newTestServer(t)
	ctx := context.Background()

	resp := doRequest(t, http.MethodPut, ts.URL+"/api/schedule", `{"schedule":"25:99"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	stored, err := st.GetScheduleConfig(ctx)
	if err != nil {
		t.Fatalf("GetScheduleConfig failed: %v", err)
	}
	if stored != "" {
		t.Errorf("invalid schedule was persisted: %q", stored)
	}
	if sched.rescheduleCalls() != 0 {
		t.Errorf("expected no reschedule calls, got %d", sched.rescheduleCalls())
	}
}

func TestQuoteLifecycle(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/quotes", `{"text":"Stack sats."}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created map[string]int64
	decodeBody(t, resp, &created)
	id := created["id"]
	if id == 0 {
		t.Fatal("expected a quote id")
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/quotes", "")
	var list contentResponse
	decodeBody(t, resp, &list)
	found := false
	for _, item := range list.Items {
		if item.Text == "Stack sats." {
			found = true
		}
	}
	if !found {
		t.Error("created quote missing from list")
	}

	url := fmt.Sprintf("%s/api/quotes/%d", ts.URL, id)
	resp = doRequest(t, http.MethodDelete, url, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodDelete, url, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/quotes", `{"text":"  "}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", resp.StatusCode)
	}
}

func TestLatestPriceEndpoint(t *testing.T) {
	ts, st, _, db := newTestServer(t)
	ctx := context.Background()

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/price/latest", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any price, got %d", resp.StatusCode)
	}

	testdb.Exec(t, db,
		"INSERT INTO prices (price, timestamp, source) VALUES (?, ?, ?)",
		48000.0, time.Now().UTC().Add(-25*time.Hour), "coingecko")
	if _, err := st.StoreLatestPrice(ctx, 50000, ""); err != nil {
		t.Fatalf("failed to seed price: %v", err)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/price/latest", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body priceResponse
	decodeBody(t, resp, &body)
	if body.Price != 50000 {
		t.Errorf("unexpected price: %v", body.Price)
	}
	if body.Price24hAgo == nil || *body.Price24hAgo != 48000 {
		t.Errorf("unexpected 24h-ago price: %v", body.Price24hAgo)
	}
	if body.Change24hPct == nil || math.Abs(*body.Change24hPct-4.1667) > 1e-3 {
		t.Errorf("unexpected 24h change: %v", body.Change24hPct)
	}
}
