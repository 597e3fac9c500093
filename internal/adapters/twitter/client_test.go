package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestTwitterClient(serverURL string) *Client {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	return &Client{
		postClient:  httpClient,
		readClient:  httpClient,
		bearerToken: "test-bearer",
		baseURL:     serverURL,
	}
}

func TestPostTweet(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tweets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1852981234567890","text":"hello"}}`))
	}))
	defer server.Close()

	client := newTestTwitterClient(server.URL)

	id, err := client.PostTweet(context.Background(), "BTC: $50,000.00 | +2.50% 📈")
	if err != nil {
		t.Fatalf("PostTweet failed: %v", err)
	}
	if id != "1852981234567890" {
		t.Errorf("expected tweet id 1852981234567890, got %q", id)
	}
	if gotBody["text"] != "BTC: $50,000.00 | +2.50% 📈" {
		t.Errorf("unexpected payload text %q", gotBody["text"])
	}
}

func TestPostTweetDuplicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"You are not allowed to create a Tweet with duplicate content."}`))
	}))
	defer server.Close()

	client := newTestTwitterClient(server.URL)

	_, err := client.PostTweet(context.Background(), "same text twice")
	if err == nil {
		t.Fatal("expected error for duplicate tweet")
	}
	if !IsDuplicate(err) {
		t.Errorf("expected duplicate classification, got %v", err)
	}
}

func TestPostTweetAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized"}`))
	}))
	defer server.Close()

	client := newTestTwitterClient(server.URL)

	_, err := client.PostTweet(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Kind != KindAuth {
		t.Errorf("expected auth error kind, got %v", err)
	}
	if IsDuplicate(err) {
		t.Error("auth error must not classify as duplicate")
	}
}

func TestPostTweetRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestTwitterClient(server.URL)

	_, err := client.PostTweet(context.Background(), "text")
	if !IsRateLimited(err) {
		t.Errorf("expected rate limit classification, got %v", err)
	}
}

func TestPostTweetWithoutCredentials(t *testing.T) {
	client := &Client{
		readClient: http.DefaultClient,
		baseURL:    "http://localhost:0",
	}

	if client.CanPost() {
		t.Error("CanPost must be false without user-context credentials")
	}
	if _, err := client.PostTweet(context.Background(), "text"); err == nil {
		t.Error("expected error when posting without credentials")
	}
}

func TestGetEngagement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/12345" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-bearer" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("tweet.fields"); got != "public_metrics" {
			t.Errorf("unexpected tweet.fields %q", got)
		}
		w.Write([]byte(`{"data":{"id":"12345","public_metrics":{"retweet_count":7,"reply_count":2,"like_count":42,"quote_count":1}}}`))
	}))
	defer server.Close()

	client := newTestTwitterClient(server.URL)

	eng, err := client.GetEngagement(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetEngagement failed: %v", err)
	}
	if eng.Likes != 42 {
		t.Errorf("expected 42 likes, got %d", eng.Likes)
	}
	if eng.Retweets != 7 {
		t.Errorf("expected 7 retweets, got %d", eng.Retweets)
	}
}

func TestGetEngagementUserContextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no bearer header without a bearer token, got %q", got)
		}
		w.Write([]byte(`{"data":{"id":"12345","public_metrics":{"retweet_count":1,"reply_count":0,"like_count":3,"quote_count":0}}}`))
	}))
	defer server.Close()

	client := &Client{
		postClient: &http.Client{Timeout: 5 * time.Second},
		readClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    server.URL,
	}

	eng, err := client.GetEngagement(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetEngagement failed: %v", err)
	}
	if eng.Likes != 3 {
		t.Errorf("expected 3 likes, got %d", eng.Likes)
	}
}
