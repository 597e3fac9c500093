package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(serverURL string, retryLimit int) *CoinGeckoClient {
	return &CoinGeckoClient{
		client:     &http.Client{Timeout: 5 * time.Second},
		baseURL:    serverURL,
		retryLimit: retryLimit,
	}
}

func TestGetBTCPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ids") != "bitcoin" || q.Get("vs_currencies") != "usd" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":50000.25,"usd_24h_change":2.345}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	quote, err := client.GetBTCPrice(context.Background())
	if err != nil {
		t.Fatalf("GetBTCPrice failed: %v", err)
	}
	if quote.USD != 50000.25 {
		t.Errorf("expected price 50000.25, got %f", quote.USD)
	}
	if quote.Change24h != 2.345 {
		t.Errorf("expected 24h change 2.345, got %f", quote.Change24h)
	}
}

func TestGetBTCPriceAPIKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Write([]byte(`{"bitcoin":{"usd":1,"usd_24h_change":0}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	client.apiKey = "demo-key"

	if _, err := client.GetBTCPrice(context.Background()); err != nil {
		t.Fatalf("GetBTCPrice failed: %v", err)
	}
	if gotKey != "demo-key" {
		t.Errorf("expected api key header to be sent, got %q", gotKey)
	}
}

func TestGetBTCPriceRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"bitcoin":{"usd":48000,"usd_24h_change":-1.5}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	quote, err := client.GetBTCPrice(context.Background())
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if quote.USD != 48000 {
		t.Errorf("expected price 48000, got %f", quote.USD)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestGetBTCPriceServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.GetBTCPrice(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindProvider {
		t.Errorf("expected provider error kind, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 call for non-retryable error, got %d", got)
	}
}

func TestGetBTCPriceParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ethereum":{"usd":3000}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	_, err := client.GetBTCPrice(context.Background())
	if err == nil {
		t.Fatal("expected error when bitcoin key is missing")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindParse {
		t.Errorf("expected parse error kind, got %v", err)
	}
}

func TestGetBTCPriceExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)

	_, err := client.GetBTCPrice(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !IsRateLimited(err) {
		t.Errorf("expected wrapped rate limit error, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}
