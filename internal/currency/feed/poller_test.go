package feed_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	currency "backoffice-ledger/internal/currency/domain"
	"backoffice-ledger/internal/currency/feed"
	currencymemory "backoffice-ledger/internal/currency/infrastructure/memory"
)

func TestPollOnceStoresParseableQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rates/latest" || r.URL.Query().Get("base") != "USD" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer feed-token" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":[
			{"currency":"EUR","rate":"1.0842","date":"2025-06-01"},
			{"currency":"GBP","rate":"not-a-number","date":"2025-06-01"},
			{"currency":"JPY","rate":"0.0069","date":"06/01/2025"},
			{"currency":"CHF","rate":"-1.2","date":"2025-06-01"}
		]}`))
	}))
	defer server.Close()

	client, err := feed.NewClient(server.URL, "feed-token")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	repo := currencymemory.NewRepository()
	if err := repo.Save(context.Background(), &currency.Currency{Code: "USD", IsBase: true}); err != nil {
		t.Fatalf("save base: %v", err)
	}

	poller := feed.NewPoller(client, repo, "USD", time.Hour, log.New(io.Discard, "", 0))
	stored, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored = %d, want 1 (malformed quotes dropped)", stored)
	}

	rate, err := repo.RateOn(context.Background(), "EUR", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("rate on: %v", err)
	}
	if rate.String() != "1.0842" {
		t.Fatalf("rate = %s, want 1.0842", rate)
	}
}

func TestLatestTreatsNotFoundAsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := feed.NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	quotes, err := client.Latest(context.Background(), "USD")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(quotes) != 0 {
		t.Fatalf("quotes = %d, want 0", len(quotes))
	}
}
