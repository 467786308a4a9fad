package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Seeds a demo chart of accounts, a financial year and a handful of
// vouchers through the HTTP API.

type config struct {
	baseURL string
	token   string
	year    int
}

func main() {
	cfg := config{}
	flag.StringVar(&cfg.baseURL, "base-url", "http://localhost:8080", "ledger service base URL")
	flag.StringVar(&cfg.token, "token", "", "bearer token with operator role")
	flag.IntVar(&cfg.year, "year", time.Now().Year(), "financial year to create")
	flag.Parse()

	if cfg.token == "" {
		log.Fatal("token is required")
	}

	c := client{baseURL: cfg.baseURL, token: cfg.token}

	years := []map[string]string{
		{"name": fmt.Sprintf("FY%d", cfg.year), "start": fmt.Sprintf("%d-01-01", cfg.year), "end": fmt.Sprintf("%d-12-31", cfg.year)},
		{"name": fmt.Sprintf("FY%d", cfg.year+1), "start": fmt.Sprintf("%d-01-01", cfg.year+1), "end": fmt.Sprintf("%d-12-31", cfg.year+1)},
	}
	for _, year := range years {
		c.post("/api/v1/years", year)
	}

	chart := []map[string]any{
		{"code": "1000", "name": "Cash", "type": "asset"},
		{"code": "1010", "name": "Bank", "type": "asset"},
		{"code": "1200", "name": "Accounts Receivable", "type": "asset"},
		{"code": "2000", "name": "Accounts Payable", "type": "liability"},
		{"code": "3000", "name": "Share Capital", "type": "equity"},
		{"code": "3900", "name": "Retained Earnings", "type": "equity"},
		{"code": "4000", "name": "Sales Revenue", "type": "income"},
		{"code": "5000", "name": "Rent Expense", "type": "expense"},
		{"code": "5100", "name": "Salaries Expense", "type": "expense"},
	}
	for _, account := range chart {
		c.post("/api/v1/accounts", account)
	}

	vouchers := []map[string]any{
		{
			"type": "journal", "date": fmt.Sprintf("%d-01-05", cfg.year),
			"narration": "Owner capital injection",
			"entries": []map[string]any{
				{"account_code": "1010", "debit": 1000000},
				{"account_code": "3000", "credit": 1000000},
			},
		},
		{
			"type": "bank_receipt", "date": fmt.Sprintf("%d-02-10", cfg.year),
			"narration": "Invoice settled",
			"entries": []map[string]any{
				{"account_code": "1010", "debit": 250000},
				{"account_code": "4000", "credit": 250000},
			},
		},
		{
			"type": "bank_payment", "date": fmt.Sprintf("%d-02-28", cfg.year),
			"narration": "Office rent",
			"entries": []map[string]any{
				{"account_code": "5000", "debit": 80000},
				{"account_code": "1010", "credit": 80000},
			},
		},
	}
	for _, voucher := range vouchers {
		c.post("/api/v1/vouchers", voucher)
	}

	log.Printf("seed complete: %d years, %d accounts, %d vouchers", len(years), len(chart), len(vouchers))
}

type client struct {
	baseURL string
	token   string
}

func (c client) post(path string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal error: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		log.Fatalf("request error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		log.Fatalf("POST %s: %s: %s", path, resp.Status, bytes.TrimSpace(body))
	}
	log.Printf("POST %s -> %s", path, resp.Status)
}
